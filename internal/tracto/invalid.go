package tracto

import (
	"math"
	"sort"

	"github.com/tractometry/tractoscore/internal/monitoring"
)

// ROIAssigner resolves a streamline endpoint to an ROI identity, or -1 when
// no ROI claims the endpoint. The endpoint-to-ROI policy is pluggable; the
// scoring pipeline only requires determinism.
type ROIAssigner interface {
	AssignEndpoint(p Point3) int
}

// ShellROIAssigner is the default endpoint policy: an endpoint belongs to
// the ROI whose mask contains its voxel. When no mask contains it, the
// search expands outward in Chebyshev shells up to MaxRadius voxels and the
// nearest shell with a hit wins. Ties inside one shell resolve to the
// lowest ROI index, so assignment is deterministic.
type ShellROIAssigner struct {
	ROIs      []*ROI
	MaxRadius int
}

// AssignEndpoint implements ROIAssigner.
func (a *ShellROIAssigner) AssignEndpoint(p Point3) int {
	x := int(math.Floor(float64(p.X)))
	y := int(math.Floor(float64(p.Y)))
	z := int(math.Floor(float64(p.Z)))
	for r := 0; r <= a.MaxRadius; r++ {
		for ri, roi := range a.ROIs {
			if maskHitsShell(roi.Mask, x, y, z, r) {
				return ri
			}
		}
	}
	return -1
}

// maskHitsShell reports whether any voxel at exactly Chebyshev distance r
// from (x, y, z) is set. r == 0 checks the voxel itself.
func maskHitsShell(m *Mask, x, y, z, r int) bool {
	if r == 0 {
		return m.Contains(x, y, z)
	}
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			for dz := -r; dz <= r; dz++ {
				if max3(abs(dx), abs(dy), abs(dz)) != r {
					continue
				}
				if m.Contains(x+dx, y+dy, z+dz) {
					return true
				}
			}
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func max3(a, b, c int) int {
	if b > a {
		a = b
	}
	if c > a {
		a = c
	}
	return a
}

// InvalidBundle is a group of invalid-connection streamlines that share an
// unordered endpoint-ROI pair.
type InvalidBundle struct {
	Pair    ROIPair
	Indices []int
}

// GroupInvalidConnections groups the candidate streamlines (already
// valid-rejected and length-filtered) into invalid bundles by their
// endpoint-ROI pair. Streamlines with an unresolvable endpoint, and sole
// members of a pair group (singletons), are rejected back to the
// no-connection pool, with reasons recorded into classes.
//
// Returns the rejected indices, the count of streamlines placed into an
// invalid bundle and the bundles ordered by ROI pair.
func GroupInvalidConnections(t *Tractogram, candidates []int, assigner ROIAssigner,
	classes []Classification) (rejected []int, icCount int, bundles []InvalidBundle) {

	groups := make(map[ROIPair][]int)
	for _, idx := range candidates {
		s := t.Streamlines[idx]
		if len(s) == 0 {
			rejected = append(rejected, idx)
			classes[idx] = Classification{Class: ClassNone, Reason: NCNoEndpointROI}
			continue
		}
		head := assigner.AssignEndpoint(s[0])
		tail := assigner.AssignEndpoint(s[len(s)-1])
		if head < 0 || tail < 0 {
			rejected = append(rejected, idx)
			classes[idx] = Classification{Class: ClassNone, Reason: NCNoEndpointROI}
			continue
		}
		pair := MakeROIPair(head, tail)
		groups[pair] = append(groups[pair], idx)
	}

	pairs := make([]ROIPair, 0, len(groups))
	for pair := range groups {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})

	for _, pair := range pairs {
		members := groups[pair]
		if len(members) < 2 {
			// Singleton groups never form an invalid bundle.
			for _, idx := range members {
				rejected = append(rejected, idx)
				classes[idx] = Classification{Class: ClassNone, Reason: NCSingleton}
			}
			continue
		}
		for _, idx := range members {
			classes[idx] = Classification{Class: ClassInvalid, Pair: pair}
		}
		icCount += len(members)
		bundles = append(bundles, InvalidBundle{Pair: pair, Indices: members})
	}

	sort.Ints(rejected)
	monitoring.Logf("grouped %d IC into %d invalid bundles, rejected %d to NC",
		icCount, len(bundles), len(rejected))
	return rejected, icCount, bundles
}

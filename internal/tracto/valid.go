package tracto

import (
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/tractometry/tractoscore/internal/monitoring"
)

// ExtractValidConnections matches every submitted streamline against the
// reference bundles and returns the sorted valid-connection indices, the
// per-bundle assignment statistics (keyed by bundle name, all bundles
// present) and the raw per-streamline bundle assignment (-1 when no bundle
// qualified).
//
// Matching is independent per streamline, so the work is spread across a
// bounded worker pool. The ground truth is read-only for the whole run and
// each worker writes only its own slice entries, so no locking is needed.
func ExtractValidConnections(t *Tractogram, gt *GroundTruth, params ScoringParams) ([]int, map[string]*FoundBundleInfo, []int, error) {
	n := t.Len()
	assignments := make([]int, n)

	workers := params.Workers
	if workers < 1 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)
	chunk := (n + workers - 1) / workers
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				assignments[i] = assignBundle(t.Streamlines[i], gt.Bundles, params.NBPointsResample)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	info := make(map[string]*FoundBundleInfo, len(gt.Bundles))
	for _, b := range gt.Bundles {
		info[b.Name] = &FoundBundleInfo{}
	}

	var vcIndices []int
	for i, bi := range assignments {
		if bi < 0 {
			continue
		}
		vcIndices = append(vcIndices, i)
		fb := info[gt.Bundles[bi].Name]
		fb.NbStreamlines++
		fb.Indices = append(fb.Indices, i)
	}
	sort.Ints(vcIndices)

	for bi, b := range gt.Bundles {
		fb := info[b.Name]
		if fb.NbStreamlines == 0 {
			continue
		}
		computeBundleCoverage(fb, t, b, gt.Dim)
		monitoring.Logf("bundle %s: %d VC, overlap %.3f, overreach %.3f, f1 %.3f",
			gt.Bundles[bi].Name, fb.NbStreamlines, fb.Overlap, fb.Overreach, fb.F1Score)
	}

	return vcIndices, info, assignments, nil
}

// assignBundle returns the index of the reference bundle with the smallest
// qualifying nearest-cluster distance for one streamline, or -1 when no
// bundle's distance falls within its acceptance threshold. Ties resolve to
// the lowest bundle index.
func assignBundle(s Streamline, bundles []*ReferenceBundle, nbPoints int) int {
	resampled := Resample(s, nbPoints)

	best := -1
	bestDist := math.Inf(1)
	for bi, b := range bundles {
		_, d := b.Clusters.NearestCluster(resampled)
		if d <= b.Threshold && d < bestDist {
			bestDist = d
			best = bi
		}
	}
	return best
}

// computeBundleCoverage rasterizes the streamlines assigned to a bundle and
// fills in its agreement metrics against the ground-truth mask:
//
//	overlap        = |occ ∩ mask| / |mask|
//	overreach      = |occ \ mask| / |mask|
//	overreach_norm = |occ \ mask| / |occ|
//	f1             = harmonic mean of recall (= overlap) and
//	                 precision (= 1 − overreach_norm)
func computeBundleCoverage(fb *FoundBundleInfo, t *Tractogram, b *ReferenceBundle, dim [3]int) {
	occ := NewOccupancy(dim)
	for _, idx := range fb.Indices {
		occ.AddStreamline(t.Streamlines[idx])
	}

	inside, outside := occ.OverlapCounts(b.Mask)
	gtVolume := b.Mask.Count()
	occVolume := occ.Count()

	if gtVolume > 0 {
		fb.Overlap = float64(inside) / float64(gtVolume)
		fb.Overreach = float64(outside) / float64(gtVolume)
	}
	if occVolume > 0 {
		fb.OverreachNorm = float64(outside) / float64(occVolume)
	}

	recall := fb.Overlap
	precision := 1.0 - fb.OverreachNorm
	if precision+recall > 0 {
		fb.F1Score = 2 * precision * recall / (precision + recall)
	}
}

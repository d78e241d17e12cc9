package tracto

import (
	"fmt"
	"math"
)

// Mask is a binary volumetric mask over the reference voxel grid.
// Data is indexed x-fastest: idx = x + Dim[0]*(y + Dim[1]*z).
type Mask struct {
	Dim  [3]int
	Data []bool
}

// NewMask allocates an empty mask with the given dimensions.
func NewMask(dim [3]int) *Mask {
	return &Mask{Dim: dim, Data: make([]bool, dim[0]*dim[1]*dim[2])}
}

// Idx maps voxel coordinates to the flat data index.
func (m *Mask) Idx(x, y, z int) int { return x + m.Dim[0]*(y+m.Dim[1]*z) }

// InBounds reports whether the voxel coordinate lies inside the grid.
func (m *Mask) InBounds(x, y, z int) bool {
	return x >= 0 && x < m.Dim[0] && y >= 0 && y < m.Dim[1] && z >= 0 && z < m.Dim[2]
}

// Contains reports whether the voxel at (x, y, z) is set. Out-of-grid
// coordinates are never contained.
func (m *Mask) Contains(x, y, z int) bool {
	return m.InBounds(x, y, z) && m.Data[m.Idx(x, y, z)]
}

// Count returns the number of set voxels (the mask volume).
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Data {
		if v {
			n++
		}
	}
	return n
}

// CheckDims returns an error when the mask dimensions differ from the
// reference grid. All masks of one scoring run must share one grid.
func (m *Mask) CheckDims(dim [3]int) error {
	if m.Dim != dim {
		return fmt.Errorf("mask dimensions %v do not match reference grid %v", m.Dim, dim)
	}
	return nil
}

// Occupancy is the set of voxels visited by a group of streamlines,
// rasterized onto the reference grid. Voxels outside the grid are skipped.
type Occupancy struct {
	dim [3]int
	vox map[int]struct{}
}

// occupancyStep is the sampling interval, in voxel units, used when walking
// streamline segments. Half a voxel guarantees no voxel on the path is
// skipped for axis-aligned motion.
const occupancyStep = 0.5

// NewOccupancy creates an empty occupancy set over the given grid.
func NewOccupancy(dim [3]int) *Occupancy {
	return &Occupancy{dim: dim, vox: make(map[int]struct{})}
}

// AddStreamline rasterizes one streamline into the occupancy set. Segments
// between consecutive points are sampled at sub-voxel intervals so thin
// diagonal paths do not leave gaps.
func (o *Occupancy) AddStreamline(s Streamline) {
	if len(s) == 0 {
		return
	}
	o.addPoint(s[0])
	for i := 1; i < len(s); i++ {
		a, b := s[i-1], s[i]
		segLen := dist(a, b)
		steps := int(math.Ceil(segLen / occupancyStep))
		for k := 1; k <= steps; k++ {
			o.addPoint(lerp(a, b, float64(k)/float64(steps)))
		}
	}
}

func (o *Occupancy) addPoint(p Point3) {
	x := int(math.Floor(float64(p.X)))
	y := int(math.Floor(float64(p.Y)))
	z := int(math.Floor(float64(p.Z)))
	if x < 0 || x >= o.dim[0] || y < 0 || y >= o.dim[1] || z < 0 || z >= o.dim[2] {
		return
	}
	o.vox[x+o.dim[0]*(y+o.dim[1]*z)] = struct{}{}
}

// Count returns the number of occupied voxels.
func (o *Occupancy) Count() int { return len(o.vox) }

// OverlapCounts splits the occupancy against a mask: inside is the number of
// occupied voxels that fall within the mask, outside the number that do not.
func (o *Occupancy) OverlapCounts(m *Mask) (inside, outside int) {
	for idx := range o.vox {
		if m.Data[idx] {
			inside++
		} else {
			outside++
		}
	}
	return inside, outside
}

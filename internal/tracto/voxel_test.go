package tracto

import "testing"

// boxMask builds a mask with the inclusive box [x0,x1]×[y0,y1]×[z0,z1] set.
func boxMask(dim [3]int, x0, x1, y0, y1, z0, z1 int) *Mask {
	m := NewMask(dim)
	for z := z0; z <= z1; z++ {
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				m.Data[m.Idx(x, y, z)] = true
			}
		}
	}
	return m
}

func TestMask_ContainsAndCount(t *testing.T) {
	m := boxMask([3]int{10, 10, 10}, 2, 4, 3, 3, 5, 5)
	if !m.Contains(3, 3, 5) {
		t.Error("expected (3,3,5) to be contained")
	}
	if m.Contains(5, 3, 5) {
		t.Error("did not expect (5,3,5) to be contained")
	}
	if m.Contains(-1, 0, 0) || m.Contains(10, 0, 0) {
		t.Error("out-of-grid voxels must never be contained")
	}
	if got := m.Count(); got != 3 {
		t.Errorf("expected volume 3, got %d", got)
	}
}

func TestMask_CheckDims(t *testing.T) {
	m := NewMask([3]int{4, 5, 6})
	if err := m.CheckDims([3]int{4, 5, 6}); err != nil {
		t.Errorf("unexpected error for matching dims: %v", err)
	}
	if err := m.CheckDims([3]int{4, 5, 7}); err == nil {
		t.Error("expected error for mismatched dims")
	}
}

func TestOccupancy_StraightSegment(t *testing.T) {
	occ := NewOccupancy([3]int{20, 20, 20})
	occ.AddStreamline(Streamline{{X: 2.5, Y: 5.5, Z: 5.5}, {X: 7.5, Y: 5.5, Z: 5.5}})

	// The segment passes through voxels x = 2..7 at y = z = 5.
	if got := occ.Count(); got != 6 {
		t.Errorf("expected 6 occupied voxels, got %d", got)
	}
}

func TestOccupancy_SkipsOutOfGrid(t *testing.T) {
	occ := NewOccupancy([3]int{5, 5, 5})
	occ.AddStreamline(Streamline{{X: -3, Y: 2, Z: 2}, {X: 8, Y: 2, Z: 2}})
	if got := occ.Count(); got != 5 {
		t.Errorf("expected 5 in-grid voxels, got %d", got)
	}
}

func TestOccupancy_OverlapCounts(t *testing.T) {
	dim := [3]int{20, 20, 20}
	mask := boxMask(dim, 0, 4, 5, 5, 5, 5) // x = 0..4

	occ := NewOccupancy(dim)
	occ.AddStreamline(Streamline{{X: 2.5, Y: 5.5, Z: 5.5}, {X: 9.5, Y: 5.5, Z: 5.5}}) // x = 2..9

	inside, outside := occ.OverlapCounts(mask)
	if inside != 3 {
		t.Errorf("expected 3 voxels inside the mask, got %d", inside)
	}
	if outside != 5 {
		t.Errorf("expected 5 voxels outside the mask, got %d", outside)
	}
}

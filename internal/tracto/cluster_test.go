package tracto

import (
	"math"
	"testing"
)

// straight builds an n-point straight streamline from a to b.
func straight(a, b Point3, n int) Streamline {
	s := make(Streamline, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		s[i] = lerp(a, b, t)
	}
	return s
}

func TestMDF_Identical(t *testing.T) {
	a := straight(Point3{X: 0}, Point3{X: 10}, 12)
	if d := MDF(a, a); d != 0 {
		t.Errorf("expected zero distance for identical streamlines, got %f", d)
	}
}

func TestMDF_FlipInvariant(t *testing.T) {
	a := straight(Point3{X: 0}, Point3{X: 10}, 12)
	flipped := make(Streamline, len(a))
	for i := range a {
		flipped[i] = a[len(a)-1-i]
	}
	if d := MDF(a, flipped); d != 0 {
		t.Errorf("expected zero distance against flipped copy, got %f", d)
	}
}

func TestMDF_ParallelOffset(t *testing.T) {
	a := straight(Point3{X: 0, Y: 0}, Point3{X: 10, Y: 0}, 12)
	b := straight(Point3{X: 0, Y: 3}, Point3{X: 10, Y: 3}, 12)
	if d := MDF(a, b); math.Abs(d-3) > 1e-5 {
		t.Errorf("expected distance 3 for parallel offset, got %f", d)
	}
}

func TestMDF_MismatchedLengths(t *testing.T) {
	a := straight(Point3{}, Point3{X: 10}, 12)
	b := straight(Point3{}, Point3{X: 10}, 11)
	if d := MDF(a, b); !math.IsInf(d, 1) {
		t.Errorf("expected +Inf for mismatched point counts, got %f", d)
	}
}

func TestClusterStreamlines_SeparatedGroups(t *testing.T) {
	var input []Streamline
	// Two bundles of five streamlines, 20 units apart in Y.
	for i := 0; i < 5; i++ {
		input = append(input, straight(Point3{X: 0, Y: float32(i)}, Point3{X: 10, Y: float32(i)}, 12))
	}
	for i := 0; i < 5; i++ {
		input = append(input, straight(Point3{X: 0, Y: float32(20 + i)}, Point3{X: 10, Y: float32(20 + i)}, 12))
	}

	cm := ClusterStreamlines(input, 5.0)
	if len(cm.Clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(cm.Clusters))
	}
	if len(cm.Clusters[0].Indices) != 5 || len(cm.Clusters[1].Indices) != 5 {
		t.Errorf("expected 5 members each, got %d and %d",
			len(cm.Clusters[0].Indices), len(cm.Clusters[1].Indices))
	}
}

func TestClusterStreamlines_Empty(t *testing.T) {
	cm := ClusterStreamlines(nil, 5.0)
	if len(cm.Clusters) != 0 {
		t.Errorf("expected no clusters for empty input, got %d", len(cm.Clusters))
	}
	if ci, d := cm.NearestCluster(straight(Point3{}, Point3{X: 1}, 12)); ci != -1 || !math.IsInf(d, 1) {
		t.Errorf("expected (-1, +Inf) from empty map, got (%d, %f)", ci, d)
	}
}

func TestNearestCluster(t *testing.T) {
	input := []Streamline{
		straight(Point3{Y: 0}, Point3{X: 10, Y: 0}, 12),
		straight(Point3{Y: 30}, Point3{X: 10, Y: 30}, 12),
	}
	cm := ClusterStreamlines(input, 5.0)
	if len(cm.Clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(cm.Clusters))
	}

	query := straight(Point3{Y: 2}, Point3{X: 10, Y: 2}, 12)
	ci, d := cm.NearestCluster(query)
	if ci != 0 {
		t.Errorf("expected nearest cluster 0, got %d", ci)
	}
	if math.Abs(d-2) > 1e-5 {
		t.Errorf("expected distance 2, got %f", d)
	}
}

func TestClusterStreamlines_Deterministic(t *testing.T) {
	var input []Streamline
	for i := 0; i < 20; i++ {
		input = append(input, straight(Point3{Y: float32(i % 4)}, Point3{X: 10, Y: float32(i % 4)}, 12))
	}
	a := ClusterStreamlines(input, 3.0)
	b := ClusterStreamlines(input, 3.0)
	if len(a.Clusters) != len(b.Clusters) {
		t.Fatalf("cluster counts differ across runs: %d vs %d", len(a.Clusters), len(b.Clusters))
	}
	for i := range a.Clusters {
		if len(a.Clusters[i].Indices) != len(b.Clusters[i].Indices) {
			t.Errorf("cluster %d member counts differ", i)
		}
	}
}

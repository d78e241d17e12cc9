package tracto

import (
	"math"
	"testing"
)

func TestLength(t *testing.T) {
	if got := Length(nil); got != 0 {
		t.Errorf("expected zero length for nil streamline, got %f", got)
	}
	if got := Length(Streamline{{X: 1, Y: 2, Z: 3}}); got != 0 {
		t.Errorf("expected zero length for single point, got %f", got)
	}

	s := Streamline{{X: 0, Y: 0, Z: 0}, {X: 3, Y: 0, Z: 0}, {X: 3, Y: 4, Z: 0}}
	if got := Length(s); math.Abs(got-7) > 1e-9 {
		t.Errorf("expected length 7, got %f", got)
	}
}

func TestResample_PointCount(t *testing.T) {
	s := Streamline{{X: 0}, {X: 10}}
	for _, n := range []int{2, 5, 12, 100} {
		out := Resample(s, n)
		if len(out) != n {
			t.Errorf("Resample(n=%d) returned %d points", n, len(out))
		}
	}
}

func TestResample_PreservesEndpoints(t *testing.T) {
	s := Streamline{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}, {X: 10, Y: 2, Z: 0}}
	out := Resample(s, 12)
	if out[0] != s[0] {
		t.Errorf("first point changed: %v != %v", out[0], s[0])
	}
	if out[len(out)-1] != s[len(s)-1] {
		t.Errorf("last point changed: %v != %v", out[len(out)-1], s[len(s)-1])
	}
}

func TestResample_EvenSpacingOnStraightLine(t *testing.T) {
	s := Streamline{{X: 0}, {X: 1}, {X: 7}, {X: 10}}
	out := Resample(s, 11)
	for i, p := range out {
		want := float64(i)
		if math.Abs(float64(p.X)-want) > 1e-4 {
			t.Errorf("point %d: X = %f, want %f", i, p.X, want)
		}
	}
}

func TestResample_DegenerateInputs(t *testing.T) {
	if out := Resample(nil, 5); out != nil {
		t.Errorf("expected nil for empty streamline, got %v", out)
	}

	single := Streamline{{X: 2, Y: 2, Z: 2}}
	out := Resample(single, 4)
	if len(out) != 4 {
		t.Fatalf("expected 4 points, got %d", len(out))
	}
	for _, p := range out {
		if p != single[0] {
			t.Errorf("expected all points equal to %v, got %v", single[0], p)
		}
	}

	if out := Resample(Streamline{{X: 1}, {X: 2}}, 1); len(out) != 1 || out[0] != (Point3{X: 1}) {
		t.Errorf("n=1 should return the first point, got %v", out)
	}
}

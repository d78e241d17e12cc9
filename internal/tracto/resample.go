package tracto

import "math"

// dist returns the Euclidean distance between two points.
func dist(a, b Point3) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	dz := float64(a.Z - b.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Length returns the cumulative arc length of a streamline in voxel units.
// Streamlines with fewer than two points have zero length.
func Length(s Streamline) float64 {
	var total float64
	for i := 1; i < len(s); i++ {
		total += dist(s[i-1], s[i])
	}
	return total
}

// Resample returns a copy of s resampled to exactly n points, evenly spaced
// along its arc length. The first and last points are preserved. Cluster
// distances over resampled streamlines are position-indexed rather than
// length-dependent, which is what the bundle matching relies on.
func Resample(s Streamline, n int) Streamline {
	if len(s) == 0 || n <= 0 {
		return nil
	}
	if n == 1 {
		return Streamline{s[0]}
	}
	if len(s) == 1 {
		out := make(Streamline, n)
		for i := range out {
			out[i] = s[0]
		}
		return out
	}

	total := Length(s)
	if total == 0 {
		out := make(Streamline, n)
		for i := range out {
			out[i] = s[0]
		}
		return out
	}

	step := total / float64(n-1)
	out := make(Streamline, 0, n)
	out = append(out, s[0])

	seg := 0 // current segment index: s[seg] -> s[seg+1]
	segLen := dist(s[0], s[1])
	walked := 0.0 // distance already consumed within the current segment

	for i := 1; i < n-1; i++ {
		target := step // distance still to cover from the last emitted point
		for {
			remain := segLen - walked
			if target <= remain || seg == len(s)-2 {
				walked += target
				frac := 0.0
				if segLen > 0 {
					frac = walked / segLen
				}
				out = append(out, lerp(s[seg], s[seg+1], frac))
				break
			}
			target -= remain
			seg++
			walked = 0
			segLen = dist(s[seg], s[seg+1])
		}
	}

	out = append(out, s[len(s)-1])
	return out
}

// lerp linearly interpolates between a and b; t is clamped to [0, 1].
func lerp(a, b Point3, t float64) Point3 {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return Point3{
		X: a.X + float32(t)*(b.X-a.X),
		Y: a.Y + float32(t)*(b.Y-a.Y),
		Z: a.Z + float32(t)*(b.Z-a.Z),
	}
}

package tracto

import "math"

// Streamline clustering for bundle matching. This is a single-pass
// centroid clusterer over fixed-length resampled streamlines under the MDF
// (minimum average direct-flip) metric: each streamline joins the nearest
// existing centroid when the distance is within the threshold, otherwise it
// seeds a new cluster. Assignment is deterministic: input order drives
// cluster creation and ties go to the lowest cluster index.

// MDF returns the minimum average direct-flip pointwise Euclidean distance
// between two streamlines with the same number of points. The flipped
// orientation is considered because streamline point order is arbitrary.
// Mismatched lengths yield +Inf so such pairs never qualify.
func MDF(a, b Streamline) float64 {
	n := len(a)
	if n == 0 || n != len(b) {
		return math.Inf(1)
	}
	var direct, flipped float64
	for i := 0; i < n; i++ {
		direct += dist(a[i], b[i])
		flipped += dist(a[i], b[n-1-i])
	}
	direct /= float64(n)
	flipped /= float64(n)
	if flipped < direct {
		return flipped
	}
	return direct
}

// Cluster is one group of streamlines with a running per-position centroid.
type Cluster struct {
	Indices  []int
	Centroid Streamline

	// sums accumulate per-position coordinates so the centroid is an exact
	// running mean regardless of insertion order.
	sums [][3]float64
}

func newCluster(nPoints int) *Cluster {
	return &Cluster{
		Centroid: make(Streamline, nPoints),
		sums:     make([][3]float64, nPoints),
	}
}

// add folds a streamline into the cluster, flipping it first when the
// flipped orientation is closer to the current centroid.
func (c *Cluster) add(idx int, s Streamline) {
	if len(c.Indices) > 0 {
		var direct, flipped float64
		n := len(s)
		for i := 0; i < n; i++ {
			direct += dist(s[i], c.Centroid[i])
			flipped += dist(s[i], c.Centroid[n-1-i])
		}
		if flipped < direct {
			rev := make(Streamline, n)
			for i := range s {
				rev[i] = s[n-1-i]
			}
			s = rev
		}
	}
	c.Indices = append(c.Indices, idx)
	k := float64(len(c.Indices))
	for i, p := range s {
		c.sums[i][0] += float64(p.X)
		c.sums[i][1] += float64(p.Y)
		c.sums[i][2] += float64(p.Z)
		c.Centroid[i] = Point3{
			X: float32(c.sums[i][0] / k),
			Y: float32(c.sums[i][1] / k),
			Z: float32(c.sums[i][2] / k),
		}
	}
}

// ClusterMap groups resampled streamlines into clusters and answers
// nearest-cluster queries.
type ClusterMap struct {
	NPoints  int
	Clusters []*Cluster
}

// ClusterStreamlines clusters fixed-length streamlines under the MDF metric
// with the given merge threshold. All inputs must share the same point
// count; the caller resamples beforehand.
func ClusterStreamlines(streamlines []Streamline, threshold float64) *ClusterMap {
	cm := &ClusterMap{}
	if len(streamlines) == 0 {
		return cm
	}
	cm.NPoints = len(streamlines[0])

	for idx, s := range streamlines {
		best := -1
		bestDist := math.Inf(1)
		for ci, c := range cm.Clusters {
			if d := MDF(s, c.Centroid); d < bestDist {
				bestDist = d
				best = ci
			}
		}
		if best >= 0 && bestDist <= threshold {
			cm.Clusters[best].add(idx, s)
			continue
		}
		c := newCluster(len(s))
		c.add(idx, s)
		cm.Clusters = append(cm.Clusters, c)
	}
	return cm
}

// NearestCluster returns the index of the cluster whose centroid is closest
// to the query streamline under MDF, along with the distance. Returns
// (-1, +Inf) for an empty map. Ties resolve to the lowest cluster index.
func (cm *ClusterMap) NearestCluster(query Streamline) (int, float64) {
	best := -1
	bestDist := math.Inf(1)
	for ci, c := range cm.Clusters {
		if d := MDF(query, c.Centroid); d < bestDist {
			bestDist = d
			best = ci
		}
	}
	return best, bestDist
}

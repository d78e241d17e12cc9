package tracto

import (
	"fmt"
)

// Point3 is a position in the reference voxel coordinate space.
type Point3 struct {
	X, Y, Z float32
}

// Streamline is an ordered sequence of 3-D points representing one
// reconstructed fibre path. Streamlines are immutable once loaded and are
// identified within a submission by their integer index.
type Streamline []Point3

// Tractogram holds the full ordered streamline collection for one submission
// plus two parallel auxiliary tables. The auxiliary data is opaque to the
// scoring pipeline: it is carried through unchanged and sliced by index set
// when subsets are written back out.
type Tractogram struct {
	Streamlines []Streamline

	// DataPerStreamline holds one opaque scalar row per streamline, or nil.
	DataPerStreamline [][]float32

	// DataPerPoint holds one opaque scalar row per point per streamline, or nil.
	DataPerPoint [][][]float32
}

// Len returns the number of streamlines in the tractogram.
func (t *Tractogram) Len() int { return len(t.Streamlines) }

// Subset returns a new tractogram containing only the given streamline
// indices, in the order provided. Auxiliary tables are sliced in parallel.
func (t *Tractogram) Subset(indices []int) *Tractogram {
	sub := &Tractogram{
		Streamlines: make([]Streamline, 0, len(indices)),
	}
	if t.DataPerStreamline != nil {
		sub.DataPerStreamline = make([][]float32, 0, len(indices))
	}
	if t.DataPerPoint != nil {
		sub.DataPerPoint = make([][][]float32, 0, len(indices))
	}
	for _, idx := range indices {
		sub.Streamlines = append(sub.Streamlines, t.Streamlines[idx])
		if t.DataPerStreamline != nil {
			sub.DataPerStreamline = append(sub.DataPerStreamline, t.DataPerStreamline[idx])
		}
		if t.DataPerPoint != nil {
			sub.DataPerPoint = append(sub.DataPerPoint, t.DataPerPoint[idx])
		}
	}
	return sub
}

// ReferenceBundle is one ground-truth anatomical bundle: its pre-clustered
// reference streamlines, per-bundle acceptance threshold and binary mask.
// Built once per scoring run and read-only thereafter. Downstream components
// reference bundles by their position in the loader's ordered slice.
type ReferenceBundle struct {
	Name      string
	Threshold float64
	Clusters  *ClusterMap
	Mask      *Mask
}

// ROI is a region-of-interest mask used as a connection endpoint anchor when
// grouping invalid bundles. ROI identity is its position in the sorted load
// order.
type ROI struct {
	Name string
	Mask *Mask
}

// FoundBundleInfo records the assignment statistics for one reference bundle
// after valid-connection extraction. Immutable once extraction completes.
// Bundles with zero assigned streamlines keep zero metrics and are excluded
// from the per-bundle scorecard maps.
type FoundBundleInfo struct {
	NbStreamlines int
	Overlap       float64
	Overreach     float64
	OverreachNorm float64
	F1Score       float64

	// Indices of the submitted streamlines assigned to this bundle.
	Indices []int
}

// ROIPair is an unordered pair of ROI identities; A <= B always holds.
type ROIPair struct {
	A, B int
}

// MakeROIPair normalises two ROI indices into canonical order.
func MakeROIPair(a, b int) ROIPair {
	if a > b {
		a, b = b, a
	}
	return ROIPair{A: a, B: b}
}

// Key returns the pair identity used in persisted invalid-bundle filenames.
func (p ROIPair) Key() string { return fmt.Sprintf("%d_%d", p.A, p.B) }

// TractAttributes carries submission-file attributes that some streamline
// formats need at load time. Orientation is required for formats that do not
// encode it themselves (e.g. legacy VTK exports).
type TractAttributes struct {
	Orientation string
}

// TractogramReader loads a streamline file already expressed in the
// reference voxel space. The concrete reader owns format and coordinate
// handling; the scoring core never inspects file bytes.
type TractogramReader interface {
	ReadTractogram(path string, attribs TractAttributes) (*Tractogram, error)
}

// TractogramWriter persists a tractogram subset to a streamline file.
type TractogramWriter interface {
	WriteTractogram(path string, t *Tractogram) error
}

// MaskReader loads a binary volumetric mask in the reference voxel space.
type MaskReader interface {
	ReadMask(path string) (*Mask, error)
}

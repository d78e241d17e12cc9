package tracto

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/tractometry/tractoscore/internal/monitoring"
)

// Scorecard schema versions. The schema version tracks the output mapping
// layout; the algo version tracks the classification algorithm itself.
const (
	ScorecardVersion = 2
	AlgoVersion      = 5
)

// ErrPartitionMismatch signals that the VC/IC/NC partition failed its
// consistency check: some streamline was silently dropped or double-counted.
// This is an internal classification bug, never a recoverable condition.
var ErrPartitionMismatch = errors.New("classification partition mismatch")

// Scorecard is the final output of one scoring run. It is assembled once at
// the end of the pipeline and never mutated afterwards. The per-bundle maps
// contain only bundles with at least one assigned streamline.
type Scorecard struct {
	Version     int `json:"version"`
	AlgoVersion int `json:"algo_version"`

	// Class fractions over the full submission; VC+IC+NC == 1.
	VC   float64 `json:"VC"`
	IC   float64 `json:"IC"`
	NC   float64 `json:"NC"`
	VCWP float64 `json:"VCWP"` // reserved, always 0

	VB                    int            `json:"VB"`
	IB                    int            `json:"IB"`
	StreamlinesPerBundle  map[string]int `json:"streamlines_per_bundle"`
	TotalStreamlinesCount int            `json:"total_streamlines_count"`

	OverlapPerBundle         map[string]float64 `json:"overlap_per_bundle"`
	OverreachPerBundle       map[string]float64 `json:"overreach_per_bundle"`
	OverreachNormGTPerBundle map[string]float64 `json:"overreach_norm_gt_per_bundle"`
	F1ScorePerBundle         map[string]float64 `json:"f1_score_per_bundle"`

	MeanOL  float64 `json:"mean_OL"`
	MeanOR  float64 `json:"mean_OR"`
	MeanORn float64 `json:"mean_ORn"`
	MeanF1  float64 `json:"mean_F1"`
}

// SaveFlags selects which classified subsets get persisted after scoring.
type SaveFlags struct {
	FullVC bool
	FullIC bool
	FullNC bool
	IBs    bool
	VBs    bool
}

// Any reports whether at least one subset is requested.
func (f SaveFlags) Any() bool {
	return f.FullVC || f.FullIC || f.FullNC || f.IBs || f.VBs
}

// ScoreOptions carries per-run output settings.
type ScoreOptions struct {
	Save     SaveFlags
	OutDir   string
	BaseName string
	OutExt   string // streamline file extension, e.g. "tck"
}

// Scorer runs the scoring pipeline. The I/O collaborators own file formats
// and coordinate handling; the scorer owns classification and metrics.
type Scorer struct {
	Params ScoringParams
	Tracts TractogramReader
	Masks  MaskReader
	Writer TractogramWriter // required only when save flags are set
}

// ScoreSubmission scores one submitted streamline file against the ground
// truth under baseDir. It either returns a complete, internally consistent
// scorecard or an error; partial results are never surfaced.
func (sc *Scorer) ScoreSubmission(submissionPath string, attribs TractAttributes,
	baseDir string, bundleAttribs map[string]BundleAttributes, opts ScoreOptions) (*Scorecard, error) {

	monitoring.Logf("preparing ground-truth data from %s", baseDir)
	gt, err := LoadGroundTruth(DataLayout(baseDir), bundleAttribs, sc.Params, sc.Tracts, sc.Masks)
	if err != nil {
		return nil, err
	}

	tractogram, err := sc.Tracts.ReadTractogram(submissionPath, attribs)
	if err != nil {
		return nil, fmt.Errorf("load submission %s: %w", submissionPath, err)
	}

	scores, _, err := sc.ScoreTractogram(tractogram, gt, opts)
	return scores, err
}

// ScoreTractogram classifies a loaded tractogram against a loaded ground
// truth and assembles the scorecard. The returned classification slice holds
// the per-streamline tagged outcome, index-aligned with the tractogram.
func (sc *Scorer) ScoreTractogram(t *Tractogram, gt *GroundTruth, opts ScoreOptions) (*Scorecard, []Classification, error) {
	total := t.Len()
	classes := make([]Classification, total)

	// Step 1: extract valid connections and per-bundle stats.
	vcIndices, vbInfo, assignments, err := ExtractValidConnections(t, gt, sc.Params)
	if err != nil {
		return nil, nil, err
	}
	for i, bi := range assignments {
		if bi >= 0 {
			classes[i] = Classification{Class: ClassValid, Bundle: bi}
		}
	}
	monitoring.Logf("found %d VC of %d streamlines", len(vcIndices), total)

	if opts.Save.VBs || opts.Save.FullVC {
		if err := sc.saveValidConnections(t, gt, vbInfo, vcIndices, opts); err != nil {
			return nil, nil, err
		}
	}

	// Step 2: length-filter the remaining candidates. Too-short streamlines
	// go straight to NC; the filter never touches VC streamlines.
	inVC := make([]bool, total)
	for _, idx := range vcIndices {
		inVC[idx] = true
	}
	var candidateNotVC, candidates, rejected []int
	for idx := 0; idx < total; idx++ {
		if inVC[idx] {
			continue
		}
		candidateNotVC = append(candidateNotVC, idx)
		if Length(t.Streamlines[idx]) >= sc.Params.LengthThreshold {
			candidates = append(candidates, idx)
		} else {
			rejected = append(rejected, idx)
			classes[idx] = Classification{Class: ClassNone, Reason: NCTooShort}
		}
	}
	monitoring.Logf("found %d candidate IC, %d too short", len(candidates), len(rejected))

	// Steps 3-5: group candidates into invalid bundles by endpoint ROI pair.
	var icCount int
	var ibs []InvalidBundle
	if len(candidates) > 0 {
		assigner := &ShellROIAssigner{ROIs: gt.ROIs, MaxRadius: sc.Params.MaxShellRadius}
		var moreRejected []int
		moreRejected, icCount, ibs = GroupInvalidConnections(t, candidates, assigner, classes)
		rejected = append(rejected, moreRejected...)
	}

	// Step 6: everything rejected along the way is NC. The tagged
	// classification makes the partition structural; the original count
	// identity is still enforced as a cross-check.
	if icCount != len(candidateNotVC)-len(rejected) {
		return nil, nil, fmt.Errorf("%w: %d IC != %d candidates - %d rejected",
			ErrPartitionMismatch, icCount, len(candidateNotVC), len(rejected))
	}
	vcN, icN, ncN, unassigned := CountClasses(classes)
	if unassigned != 0 || vcN+icN+ncN != total {
		return nil, nil, fmt.Errorf("%w: VC %d + IC %d + NC %d != total %d (%d unassigned)",
			ErrPartitionMismatch, vcN, icN, ncN, total, unassigned)
	}

	if opts.Save.IBs || opts.Save.FullIC {
		if err := sc.saveInvalidConnections(t, ibs, opts); err != nil {
			return nil, nil, err
		}
	}
	if opts.Save.FullNC && len(rejected) > 0 {
		sort.Ints(rejected)
		path := subsetPath(opts, "NC")
		if err := sc.Writer.WriteTractogram(path, t.Subset(rejected)); err != nil {
			return nil, nil, fmt.Errorf("save NC subset: %w", err)
		}
	}

	return buildScorecard(total, vcN, icN, ncN, len(ibs), vbInfo), classes, nil
}

// buildScorecard aggregates counts and per-bundle stats into the final
// output mapping. Bundles with zero assigned streamlines are absent from the
// per-bundle maps and do not contribute to the means.
func buildScorecard(total, vcN, icN, ncN, nbIB int, vbInfo map[string]*FoundBundleInfo) *Scorecard {
	scores := &Scorecard{
		Version:                  ScorecardVersion,
		AlgoVersion:              AlgoVersion,
		VCWP:                     0, // reserved metric, deliberately constant
		IB:                       nbIB,
		TotalStreamlinesCount:    total,
		StreamlinesPerBundle:     make(map[string]int),
		OverlapPerBundle:         make(map[string]float64),
		OverreachPerBundle:       make(map[string]float64),
		OverreachNormGTPerBundle: make(map[string]float64),
		F1ScorePerBundle:         make(map[string]float64),
	}
	if total > 0 {
		scores.VC = float64(vcN) / float64(total)
		scores.IC = float64(icN) / float64(total)
		scores.NC = float64(ncN) / float64(total)
	}

	var ols, ors, orns, f1s []float64
	for name, fb := range vbInfo {
		if fb.NbStreamlines == 0 {
			continue
		}
		scores.VB++
		scores.StreamlinesPerBundle[name] = fb.NbStreamlines
		scores.OverlapPerBundle[name] = fb.Overlap
		scores.OverreachPerBundle[name] = fb.Overreach
		scores.OverreachNormGTPerBundle[name] = fb.OverreachNorm
		scores.F1ScorePerBundle[name] = fb.F1Score
		ols = append(ols, fb.Overlap)
		ors = append(ors, fb.Overreach)
		orns = append(orns, fb.OverreachNorm)
		f1s = append(f1s, fb.F1Score)
	}
	if len(ols) > 0 {
		scores.MeanOL = stat.Mean(ols, nil)
		scores.MeanOR = stat.Mean(ors, nil)
		scores.MeanORn = stat.Mean(orns, nil)
		scores.MeanF1 = stat.Mean(f1s, nil)
	}
	return scores
}

// saveValidConnections writes the per-bundle VB files and the full VC file,
// as requested by the save flags.
func (sc *Scorer) saveValidConnections(t *Tractogram, gt *GroundTruth,
	vbInfo map[string]*FoundBundleInfo, vcIndices []int, opts ScoreOptions) error {

	if opts.Save.VBs {
		for _, b := range gt.Bundles {
			fb := vbInfo[b.Name]
			if fb.NbStreamlines == 0 {
				continue
			}
			path := subsetPath(opts, "VB_"+b.Name)
			if err := sc.Writer.WriteTractogram(path, t.Subset(fb.Indices)); err != nil {
				return fmt.Errorf("save VB %s: %w", b.Name, err)
			}
		}
	}
	if opts.Save.FullVC && len(vcIndices) > 0 {
		path := subsetPath(opts, "VC")
		if err := sc.Writer.WriteTractogram(path, t.Subset(vcIndices)); err != nil {
			return fmt.Errorf("save VC subset: %w", err)
		}
	}
	return nil
}

// saveInvalidConnections writes the per-pair IB files and the full IC file.
func (sc *Scorer) saveInvalidConnections(t *Tractogram, ibs []InvalidBundle, opts ScoreOptions) error {
	var icIndices []int
	for _, ib := range ibs {
		if opts.Save.IBs {
			path := subsetPath(opts, "IB_"+ib.Pair.Key())
			if err := sc.Writer.WriteTractogram(path, t.Subset(ib.Indices)); err != nil {
				return fmt.Errorf("save IB %s: %w", ib.Pair.Key(), err)
			}
		}
		icIndices = append(icIndices, ib.Indices...)
	}
	if opts.Save.FullIC && len(icIndices) > 0 {
		sort.Ints(icIndices)
		path := subsetPath(opts, "IC")
		if err := sc.Writer.WriteTractogram(path, t.Subset(icIndices)); err != nil {
			return fmt.Errorf("save IC subset: %w", err)
		}
	}
	return nil
}

// subsetPath builds the output filename {base}_{TAG}.{ext} under OutDir.
func subsetPath(opts ScoreOptions, tag string) string {
	ext := opts.OutExt
	if ext == "" {
		ext = "tck"
	}
	return filepath.Join(opts.OutDir, fmt.Sprintf("%s_%s.%s", opts.BaseName, tag, ext))
}

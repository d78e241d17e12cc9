package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tractometry/tractoscore/internal/monitoring"
	"github.com/tractometry/tractoscore/internal/tracto"
	"github.com/tractometry/tractoscore/internal/tracto/nifti"
	"github.com/tractometry/tractoscore/internal/tracto/report"
	"github.com/tractometry/tractoscore/internal/tracto/storage/sqlite"
	"github.com/tractometry/tractoscore/internal/tracto/tckio"
)

var scoreFlags struct {
	dataDir     string
	attribsPath string
	paramsPath  string
	orientation string
	outPath     string

	saveFullVC bool
	saveFullIC bool
	saveFullNC bool
	saveIBs    bool
	saveVBs    bool
	outDir     string
	baseName   string
	outExt     string

	dbPath     string
	reportHTML string
	reportPNG  string
	verbose    bool
}

var scoreCmd = &cobra.Command{
	Use:   "score <submission>",
	Short: "Score one submitted tractogram against the ground truth",
	Long: `Score a submission, classifying each streamline as a Valid Connection,
Invalid Connection or No Connection, and computing per-bundle
overlap/overreach/f1 against the ground-truth masks.

The ground-truth directory must contain bundles/, masks/bundles/,
masks/rois/ and masks/wm.nii.gz. The attributes file maps each bundle
filename to its acceptance threshold:

  {"CST_left.tck": {"cluster_threshold": 12.0}, ...}`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.StringVar(&scoreFlags.dataDir, "data-dir", "", "Ground-truth base directory (required)")
	f.StringVar(&scoreFlags.attribsPath, "attribs", "", "Per-bundle attributes JSON file (required)")
	f.StringVar(&scoreFlags.paramsPath, "params", "", "Scoring parameters JSON override file")
	f.StringVar(&scoreFlags.orientation, "orientation", "", "Submission orientation attribute (format-dependent)")
	f.StringVarP(&scoreFlags.outPath, "out", "o", "", "Write the scorecard JSON to this file (default stdout)")

	f.BoolVar(&scoreFlags.saveFullVC, "save-full-vc", false, "Write the full VC subset")
	f.BoolVar(&scoreFlags.saveFullIC, "save-full-ic", false, "Write the full IC subset")
	f.BoolVar(&scoreFlags.saveFullNC, "save-full-nc", false, "Write the full NC subset")
	f.BoolVar(&scoreFlags.saveIBs, "save-ibs", false, "Write one file per invalid bundle")
	f.BoolVar(&scoreFlags.saveVBs, "save-vbs", false, "Write one file per valid bundle")
	f.StringVar(&scoreFlags.outDir, "segmented-dir", ".", "Directory for segmented subset files")
	f.StringVar(&scoreFlags.baseName, "base-name", "", "Base name for segmented files (default: submission stem)")
	f.StringVar(&scoreFlags.outExt, "out-ext", "tck", "Extension for segmented files")

	f.StringVar(&scoreFlags.dbPath, "db", "", "Persist the scorecard to this SQLite database")
	f.StringVar(&scoreFlags.reportHTML, "report-html", "", "Render an HTML chart report to this file")
	f.StringVar(&scoreFlags.reportPNG, "report-png", "", "Render a PNG F1 chart to this file")
	f.BoolVar(&scoreFlags.verbose, "verbose", false, "Log pipeline progress")

	_ = scoreCmd.MarkFlagRequired("data-dir")
	_ = scoreCmd.MarkFlagRequired("attribs")
}

func runScore(cmd *cobra.Command, args []string) error {
	submission := args[0]

	if !scoreFlags.verbose {
		monitoring.SetLogger(nil)
	}

	params := tracto.DefaultScoringParams()
	if scoreFlags.paramsPath != "" {
		var err error
		params, err = tracto.LoadScoringParams(scoreFlags.paramsPath)
		if err != nil {
			return err
		}
	}

	attribs, err := loadBundleAttribs(scoreFlags.attribsPath)
	if err != nil {
		return err
	}

	baseName := scoreFlags.baseName
	if baseName == "" {
		baseName = strings.TrimSuffix(filepath.Base(submission), filepath.Ext(submission))
	}

	scorer := &tracto.Scorer{
		Params: params,
		Tracts: tckio.IO{},
		Masks:  nifti.Reader{},
		Writer: tckio.IO{},
	}
	opts := tracto.ScoreOptions{
		Save: tracto.SaveFlags{
			FullVC: scoreFlags.saveFullVC,
			FullIC: scoreFlags.saveFullIC,
			FullNC: scoreFlags.saveFullNC,
			IBs:    scoreFlags.saveIBs,
			VBs:    scoreFlags.saveVBs,
		},
		OutDir:   scoreFlags.outDir,
		BaseName: baseName,
		OutExt:   scoreFlags.outExt,
	}

	scores, err := scorer.ScoreSubmission(submission,
		tracto.TractAttributes{Orientation: scoreFlags.orientation},
		scoreFlags.dataDir, attribs, opts)
	if err != nil {
		return err
	}

	detail, err := json.MarshalIndent(scores, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal scorecard: %w", err)
	}
	if scoreFlags.outPath != "" {
		if err := os.WriteFile(scoreFlags.outPath, append(detail, '\n'), 0o644); err != nil {
			return fmt.Errorf("write scorecard: %w", err)
		}
	} else {
		fmt.Println(string(detail))
	}

	if scoreFlags.dbPath != "" {
		if err := persistScore(scores, submission, baseName, detail); err != nil {
			return err
		}
	}
	if scoreFlags.reportHTML != "" {
		if err := report.WriteHTML(scores, scoreFlags.reportHTML); err != nil {
			return err
		}
	}
	if scoreFlags.reportPNG != "" {
		if err := report.WritePNG(scores, scoreFlags.reportPNG); err != nil {
			return err
		}
	}
	return nil
}

func loadBundleAttribs(path string) (map[string]tracto.BundleAttributes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read attributes file: %w", err)
	}
	attribs := make(map[string]tracto.BundleAttributes)
	if err := json.Unmarshal(data, &attribs); err != nil {
		return nil, fmt.Errorf("parse attributes file: %w", err)
	}
	return attribs, nil
}

func persistScore(scores *tracto.Scorecard, submission, baseName string, detail []byte) error {
	db, err := sqlite.Open(scoreFlags.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := sqlite.MigrateUp(db); err != nil {
		return err
	}
	store := sqlite.NewScoreStore(db)
	rec := &sqlite.ScoreRecord{
		SubmissionPath:   submission,
		BaseName:         baseName,
		VC:               scores.VC,
		IC:               scores.IC,
		NC:               scores.NC,
		VB:               scores.VB,
		IB:               scores.IB,
		TotalStreamlines: scores.TotalStreamlinesCount,
		MeanOL:           scores.MeanOL,
		MeanOR:           scores.MeanOR,
		MeanORn:          scores.MeanORn,
		MeanF1:           scores.MeanF1,
		DetailJSON:       detail,
	}
	if err := store.Insert(rec); err != nil {
		return fmt.Errorf("persist scorecard: %w", err)
	}
	monitoring.Logf("stored scorecard %s", rec.ScoreID)
	return nil
}

package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tractometry/tractoscore/internal/tracto"
)

func sampleScorecard() *tracto.Scorecard {
	return &tracto.Scorecard{
		Version:               tracto.ScorecardVersion,
		AlgoVersion:           tracto.AlgoVersion,
		VC:                    0.6,
		IC:                    0.15,
		NC:                    0.25,
		VB:                    2,
		IB:                    1,
		TotalStreamlinesCount: 100,
		StreamlinesPerBundle:  map[string]int{"CST_L": 40, "AF_R": 20},
		OverlapPerBundle:      map[string]float64{"CST_L": 0.9, "AF_R": 0.7},
		OverreachPerBundle:    map[string]float64{"CST_L": 0.1, "AF_R": 0.3},
		OverreachNormGTPerBundle: map[string]float64{
			"CST_L": 0.08, "AF_R": 0.2,
		},
		F1ScorePerBundle: map[string]float64{"CST_L": 0.9, "AF_R": 0.73},
		MeanOL:           0.8,
		MeanF1:           0.815,
	}
}

func TestBundleNamesSorted(t *testing.T) {
	names := bundleNames(sampleScorecard())
	if len(names) != 2 || names[0] != "AF_R" || names[1] != "CST_L" {
		t.Errorf("expected sorted bundle names, got %v", names)
	}
}

func TestWriteHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	if err := WriteHTML(sampleScorecard(), path); err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	html := string(data)
	for _, want := range []string{"Per-bundle agreement", "Connection classes", "CST_L", "AF_R"} {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestWritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.png")
	if err := WritePNG(sampleScorecard(), path); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Error("PNG report is empty")
	}
}

func TestWriteHTMLEmptyScorecard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	scores := &tracto.Scorecard{
		Version:              tracto.ScorecardVersion,
		AlgoVersion:          tracto.AlgoVersion,
		StreamlinesPerBundle: map[string]int{},
	}
	if err := WriteHTML(scores, path); err != nil {
		t.Fatalf("WriteHTML on empty scorecard: %v", err)
	}
}

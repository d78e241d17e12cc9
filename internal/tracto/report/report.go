// Package report renders per-bundle scoring metrics as charts: an HTML page
// (go-echarts) for interactive review and a PNG bar chart (gonum/plot) for
// embedding in writeups.
package report

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/tractometry/tractoscore/internal/tracto"
)

// bundleNames returns the scored bundle names in stable sorted order.
func bundleNames(scores *tracto.Scorecard) []string {
	names := make([]string, 0, len(scores.StreamlinesPerBundle))
	for name := range scores.StreamlinesPerBundle {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WriteHTML renders the scorecard as an HTML page with one bar chart of the
// per-bundle agreement metrics and one of the class fractions.
func WriteHTML(scores *tracto.Scorecard, path string) error {
	names := bundleNames(scores)

	metrics := charts.NewBar()
	metrics.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Tractogram Scoring", Width: "1100px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Per-bundle agreement",
			Subtitle: fmt.Sprintf("VB=%d IB=%d streamlines=%d", scores.VB, scores.IB, scores.TotalStreamlinesCount),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	metrics.SetXAxis(names).
		AddSeries("overlap", barValues(names, scores.OverlapPerBundle)).
		AddSeries("overreach", barValues(names, scores.OverreachPerBundle)).
		AddSeries("overreach_norm", barValues(names, scores.OverreachNormGTPerBundle)).
		AddSeries("f1", barValues(names, scores.F1ScorePerBundle))

	fractions := charts.NewBar()
	fractions.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Connection classes"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	fractions.SetXAxis([]string{"VC", "IC", "NC", "VCWP"}).
		AddSeries("fraction", []opts.BarData{
			{Value: scores.VC}, {Value: scores.IC}, {Value: scores.NC}, {Value: scores.VCWP},
		}, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))

	page := components.NewPage()
	page.AddCharts(metrics, fractions)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func barValues(names []string, m map[string]float64) []opts.BarData {
	data := make([]opts.BarData, len(names))
	for i, name := range names {
		data[i] = opts.BarData{Value: m[name]}
	}
	return data
}

// WritePNG renders the per-bundle F1 scores as a PNG bar chart.
func WritePNG(scores *tracto.Scorecard, path string) error {
	names := bundleNames(scores)

	values := make(plotter.Values, len(names))
	for i, name := range names {
		values[i] = scores.F1ScorePerBundle[name]
	}

	p := plot.New()
	p.Title.Text = "Per-bundle F1"
	p.Y.Label.Text = "f1 score"
	p.Y.Min, p.Y.Max = 0, 1

	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return fmt.Errorf("build bar chart: %w", err)
	}
	p.Add(bars)
	p.NominalX(names...)

	if err := p.Save(vg.Length(len(names)+4)*vg.Inch/2, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	return nil
}

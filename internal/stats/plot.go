package stats

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"knapevo/internal/model"
)

// PlotTitle mirrors the chart title the solver has always used.
func PlotTitle(capacity float64) string {
	return fmt.Sprintf("Van shop problem (van volume: %g)\ngenetic algorithm optimization", capacity)
}

// WriteFitnessPlot renders best fitness per generation as a PNG (or any
// format gonum infers from the extension). When diagnostics are present the
// population mean is drawn as a second line. The y axis stays linear because
// infeasible generations score negative.
func WriteFitnessPlot(path string, history []float64, diagnostics []model.GenerationDiagnostics, capacity float64) error {
	if len(history) == 0 {
		return fmt.Errorf("fitness history is empty")
	}

	p := plot.New()
	p.Title.Text = PlotTitle(capacity)
	p.X.Label.Text = "Generation"
	p.Y.Label.Text = "Fitness"

	bestPts := make(plotter.XYs, len(history))
	for i, best := range history {
		bestPts[i].X = float64(i + 1)
		bestPts[i].Y = best
	}
	bestLine, err := plotter.NewLine(bestPts)
	if err != nil {
		return err
	}
	p.Add(bestLine)
	p.Legend.Add("best", bestLine)

	if len(diagnostics) > 0 {
		meanPts := make(plotter.XYs, len(diagnostics))
		for i, d := range diagnostics {
			meanPts[i].X = float64(d.Generation)
			meanPts[i].Y = d.MeanFitness
		}
		meanLine, err := plotter.NewLine(meanPts)
		if err != nil {
			return err
		}
		meanLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(meanLine)
		p.Legend.Add("mean", meanLine)
	}
	p.Legend.Top = true
	p.Legend.Left = true

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

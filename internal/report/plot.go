package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/tetratrack/gaitd/internal/gait"
	"github.com/tetratrack/gaitd/internal/session"
)

// RenderTimelinePNG writes a PNG of the gait timeline: gait index as a
// piecewise-constant trace over ride minutes.
func RenderTimelinePNG(w io.Writer, s *session.Summary) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Gait Timeline %s", s.SessionID)
	p.X.Label.Text = "minutes"
	p.Y.Label.Text = "gait index"
	p.Y.Min = 0
	p.Y.Max = float64(len(gait.Gaits) - 1)

	pts := make(plotter.XYs, 0, 2*len(s.Segments))
	for _, seg := range s.Segments {
		idx := float64(seg.Gait.Index())
		pts = append(pts,
			plotter.XY{X: seg.Start.Sub(s.StartedAt).Minutes(), Y: idx},
			plotter.XY{X: seg.End.Sub(s.StartedAt).Minutes(), Y: idx},
		)
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("timeline line: %w", err)
	}
	line.Width = vg.Points(1.5)
	line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	p.Add(line)
	p.Add(plotter.NewGrid())

	wt, err := p.WriterTo(12*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render timeline png: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// RenderDynamicsPNG writes a PNG of an HMM transition diagnostic: the
// target gait's posterior probability after each tick, with the decision
// threshold marked.
func RenderDynamicsPNG(w io.Writer, dyn gait.TransitionDynamics, threshold float64) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Transition %s -> %s", dyn.From, dyn.To)
	p.X.Label.Text = "ticks"
	p.Y.Label.Text = fmt.Sprintf("P(%s)", dyn.To)
	p.Y.Min = 0
	p.Y.Max = 1

	pts := make(plotter.XYs, 0, len(dyn.Trajectory))
	for i, prob := range dyn.Trajectory {
		pts = append(pts, plotter.XY{X: float64(i + 1), Y: prob})
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("trajectory line: %w", err)
	}
	line.Width = vg.Points(1.5)
	line.Color = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	p.Add(line)

	thresholdLine, err := plotter.NewLine(plotter.XYs{
		{X: 1, Y: threshold},
		{X: float64(len(dyn.Trajectory)), Y: threshold},
	})
	if err != nil {
		return fmt.Errorf("threshold line: %w", err)
	}
	thresholdLine.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	thresholdLine.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	p.Add(thresholdLine)
	p.Add(plotter.NewGrid())

	wt, err := p.WriterTo(8*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render dynamics png: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// Package report renders ride summaries as charts: a browser-facing
// go-echarts page and gonum/plot PNGs for offline analysis.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/tetratrack/gaitd/internal/gait"
	"github.com/tetratrack/gaitd/internal/session"
	"github.com/tetratrack/gaitd/internal/units"
)

// RenderSessionCharts writes an HTML page with a gait timeline and a
// per-gait duration breakdown for one ride.
func RenderSessionCharts(w io.Writer, s *session.Summary, speedUnits string) error {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("Ride %s", s.SessionID)

	page.AddCharts(gaitTimelineChart(s), gaitDurationChart(s, speedUnits))

	return page.Render(w)
}

// gaitTimelineChart plots the committed gait as a piecewise-constant line
// over the ride, one point at each segment boundary.
func gaitTimelineChart(s *session.Summary) *charts.Line {
	var xs []string
	var ys []opts.LineData
	for _, seg := range s.Segments {
		xs = append(xs, offsetLabel(s.StartedAt, seg.Start), offsetLabel(s.StartedAt, seg.End))
		idx := seg.Gait.Index()
		ys = append(ys, opts.LineData{Value: idx}, opts.LineData{Value: idx})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Gait Timeline",
			Subtitle: fmt.Sprintf("session %s, started %s", s.SessionID, s.StartedAt.Format(time.RFC3339)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{
			Min:  0,
			Max:  len(gait.Gaits) - 1,
			Name: "gait (0=stationary .. 4=gallop)",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "time"}),
	)
	line.SetXAxis(xs).AddSeries("gait", ys)
	return line
}

// gaitDurationChart shows total time in each gait plus the ride aggregates
// in the subtitle.
func gaitDurationChart(s *session.Summary, speedUnits string) *charts.Bar {
	var xs []string
	var ys []opts.BarData
	for _, g := range gait.Gaits {
		xs = append(xs, string(g))
		ys = append(ys, opts.BarData{Value: s.GaitDurations[g].Seconds()})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{
			Title: "Time in Gait (seconds)",
			Subtitle: fmt.Sprintf("%.0f m, avg %.1f %s, max %.1f %s, %.1f s gallop",
				s.DistanceM,
				units.ConvertSpeed(s.AvgSpeedMps, speedUnits), speedUnits,
				units.ConvertSpeed(s.MaxSpeedMps, speedUnits), speedUnits,
				s.GallopSeconds),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(xs).AddSeries("duration", ys,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))
	return bar
}

func offsetLabel(start, t time.Time) string {
	d := t.Sub(start)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

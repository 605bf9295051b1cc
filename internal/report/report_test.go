package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/tetratrack/gaitd/internal/gait"
	"github.com/tetratrack/gaitd/internal/session"
	"github.com/tetratrack/gaitd/internal/units"
)

func sampleSummary() *session.Summary {
	start := time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC)
	return &session.Summary{
		SessionID:   "ride-test",
		StartedAt:   start,
		EndedAt:     start.Add(10 * time.Minute),
		DistanceM:   1800,
		AvgSpeedMps: 3.0,
		MaxSpeedMps: 7.2,
		GaitDurations: map[gait.Gait]time.Duration{
			gait.GaitWalk:   4 * time.Minute,
			gait.GaitTrot:   4 * time.Minute,
			gait.GaitCanter: 2 * time.Minute,
		},
		Segments: []session.Segment{
			{Gait: gait.GaitWalk, Start: start, End: start.Add(4 * time.Minute), Elapsed: 4 * time.Minute},
			{Gait: gait.GaitTrot, Start: start.Add(4 * time.Minute), End: start.Add(8 * time.Minute), Elapsed: 4 * time.Minute},
			{Gait: gait.GaitCanter, Start: start.Add(8 * time.Minute), End: start.Add(10 * time.Minute), Elapsed: 2 * time.Minute},
		},
	}
}

func TestRenderSessionCharts(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSessionCharts(&buf, sampleSummary(), units.KMPH); err != nil {
		t.Fatalf("RenderSessionCharts: %v", err)
	}
	html := buf.String()
	if !strings.Contains(html, "Gait Timeline") {
		t.Error("rendered page missing timeline chart title")
	}
	if !strings.Contains(html, "Time in Gait") {
		t.Error("rendered page missing duration chart title")
	}
	if !strings.Contains(html, "ride-test") {
		t.Error("rendered page missing session id")
	}
}

func TestRenderTimelinePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderTimelinePNG(&buf, sampleSummary()); err != nil {
		t.Fatalf("RenderTimelinePNG: %v", err)
	}
	// PNG magic bytes
	if buf.Len() < 8 || !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
}

func TestRenderDynamicsPNG(t *testing.T) {
	dyn := gait.TransitionDynamics{
		From:       gait.GaitWalk,
		To:         gait.GaitTrot,
		Steps:      3,
		Seconds:    0.75,
		Converged:  true,
		Trajectory: []float64{0.2, 0.45, 0.7, 0.85},
	}
	var buf bytes.Buffer
	if err := RenderDynamicsPNG(&buf, dyn, 0.6); err != nil {
		t.Fatalf("RenderDynamicsPNG: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
}

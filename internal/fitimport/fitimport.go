// Package fitimport replays FIT activity files through a GPS-only gait
// analysis pass, producing the same ride summary a live session would.
package fitimport

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/tormoder/fit"

	"github.com/tetratrack/gaitd/internal/config"
	"github.com/tetratrack/gaitd/internal/gait"
	"github.com/tetratrack/gaitd/internal/imu"
	"github.com/tetratrack/gaitd/internal/session"
)

// ImportFile decodes the FIT file at path and replays it.
func ImportFile(path string, cfg *config.TuningConfig) (*session.Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Import(f, cfg)
}

// Import decodes FIT activity data and replays its record stream through a
// fresh analyzer. Only the GPS channel is available in a FIT file, so
// classification runs on speed candidates alone; motion-derived features
// are absent.
func Import(r io.Reader, cfg *config.TuningConfig) (*session.Summary, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode fit: %w", err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("not an activity file: %w", err)
	}
	if len(activity.Records) == 0 {
		return nil, fmt.Errorf("activity has no records")
	}

	analyzer := gait.NewGaitAnalyzer(gait.AnalyzerConfigFromTuning(cfg))

	var start time.Time
	for _, rec := range activity.Records {
		if rec == nil || rec.Timestamp.IsZero() {
			continue
		}
		start = rec.Timestamp
		break
	}
	if start.IsZero() {
		return nil, fmt.Errorf("activity has no timestamped records")
	}

	recorder := session.NewRecorder(start)

	// The change callback needs the timestamp of the record being
	// replayed, not wall-clock time.
	at := start
	analyzer.OnGaitChange = func(change gait.GaitChange) {
		recorder.RecordGaitChange(at, change)
	}
	analyzer.StartAnalyzing()

	last := start
	for _, rec := range activity.Records {
		if rec == nil || rec.Timestamp.IsZero() {
			continue
		}
		speed := rec.GetSpeedScaled()
		if math.IsNaN(speed) {
			continue
		}
		distance := rec.GetDistanceScaled()
		if math.IsNaN(distance) {
			distance = 0
		}

		at = rec.Timestamp
		last = rec.Timestamp
		loc := imu.LocationSample{
			Timestamp: rec.Timestamp,
			SpeedMps:  speed,
			DistanceM: distance,
		}
		analyzer.ProcessLocation(loc)
		recorder.RecordLocation(loc)
	}

	analyzer.StopAnalyzing()
	summary := recorder.Finish(last)
	return &summary, nil
}

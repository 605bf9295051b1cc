package db

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tetratrack/gaitd/internal/gait"
	"github.com/tetratrack/gaitd/internal/session"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}
	return database
}

func testSummary(id string, start time.Time) *session.Summary {
	return &session.Summary{
		SessionID:   id,
		StartedAt:   start,
		EndedAt:     start.Add(5 * time.Minute),
		DistanceM:   850,
		AvgSpeedMps: 2.8,
		MaxSpeedMps: 6.1,
		GaitDurations: map[gait.Gait]time.Duration{
			gait.GaitWalk: 2 * time.Minute,
			gait.GaitTrot: 3 * time.Minute,
		},
		Segments: []session.Segment{
			{Gait: gait.GaitWalk, Start: start, End: start.Add(2 * time.Minute), Elapsed: 2 * time.Minute},
			{Gait: gait.GaitTrot, Start: start.Add(2 * time.Minute), End: start.Add(5 * time.Minute), Elapsed: 3 * time.Minute},
		},
		Transitions: []session.Transition{
			{At: start.Add(2 * time.Minute), From: gait.GaitWalk, To: gait.GaitTrot},
		},
		Recalibrations: []session.RecalibrationEvent{
			{At: start.Add(30 * time.Second), AngleDeg: 24.5, Ordinal: 1},
		},
		GallopSeconds:    0,
		LongestGallopRun: 0,
	}
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	database := openTestDB(t)
	if err := database.MigrateUp(); err != nil {
		t.Fatalf("second MigrateUp: %v", err)
	}
	version, dirty, err := database.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if dirty {
		t.Error("migration state is dirty")
	}
	if version != 1 {
		t.Errorf("version = %d, want 1", version)
	}
}

func TestSaveAndGetSummary(t *testing.T) {
	database := openTestDB(t)
	start := time.Date(2025, 6, 14, 9, 30, 0, 0, time.UTC)
	want := testSummary("ride-1", start)

	if err := database.SaveSummary(want); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}

	got, err := database.GetSummary("ride-1")
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}

	if !got.StartedAt.Equal(want.StartedAt) || !got.EndedAt.Equal(want.EndedAt) {
		t.Errorf("times = %v..%v, want %v..%v", got.StartedAt, got.EndedAt, want.StartedAt, want.EndedAt)
	}
	if got.DistanceM != want.DistanceM || got.AvgSpeedMps != want.AvgSpeedMps || got.MaxSpeedMps != want.MaxSpeedMps {
		t.Errorf("aggregates = %v/%v/%v", got.DistanceM, got.AvgSpeedMps, got.MaxSpeedMps)
	}
	if len(got.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(got.Segments))
	}
	if got.Segments[0].Gait != gait.GaitWalk || got.Segments[1].Gait != gait.GaitTrot {
		t.Errorf("segment gaits = %v, %v", got.Segments[0].Gait, got.Segments[1].Gait)
	}
	if got.GaitDurations[gait.GaitWalk] != 2*time.Minute {
		t.Errorf("walk duration = %v, want 2m", got.GaitDurations[gait.GaitWalk])
	}
	if len(got.Transitions) != 1 || got.Transitions[0].To != gait.GaitTrot {
		t.Errorf("transitions = %+v", got.Transitions)
	}
	if len(got.Recalibrations) != 1 || got.Recalibrations[0].AngleDeg != 24.5 {
		t.Errorf("recalibrations = %+v", got.Recalibrations)
	}
}

func TestGetSummaryNotFound(t *testing.T) {
	database := openTestDB(t)
	if _, err := database.GetSummary("no-such-ride"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListSessionsMostRecentFirst(t *testing.T) {
	database := openTestDB(t)
	base := time.Date(2025, 6, 14, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"ride-a", "ride-b", "ride-c"} {
		s := testSummary(id, base.Add(time.Duration(i)*time.Hour))
		if err := database.SaveSummary(s); err != nil {
			t.Fatalf("SaveSummary(%s): %v", id, err)
		}
	}

	rows, err := database.ListSessions(10)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0].SessionID != "ride-c" || rows[2].SessionID != "ride-a" {
		t.Errorf("order = %s, %s, %s", rows[0].SessionID, rows[1].SessionID, rows[2].SessionID)
	}
}

func TestListSessionsLimit(t *testing.T) {
	database := openTestDB(t)
	base := time.Date(2025, 6, 14, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s := testSummary(string(rune('a'+i)), base.Add(time.Duration(i)*time.Hour))
		if err := database.SaveSummary(s); err != nil {
			t.Fatalf("SaveSummary: %v", err)
		}
	}
	rows, err := database.ListSessions(2)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("rows = %d, want 2", len(rows))
	}
}

func TestDuplicateSessionIDRejected(t *testing.T) {
	database := openTestDB(t)
	start := time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC)
	s := testSummary("ride-dup", start)
	if err := database.SaveSummary(s); err != nil {
		t.Fatalf("first SaveSummary: %v", err)
	}
	if err := database.SaveSummary(s); err == nil {
		t.Error("second SaveSummary succeeded, want primary key violation")
	}
}

func TestMigrateDown(t *testing.T) {
	database := openTestDB(t)
	if err := database.MigrateDown(); err != nil {
		t.Fatalf("MigrateDown: %v", err)
	}
	version, _, err := database.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if version != 0 {
		t.Errorf("version after down = %d, want 0", version)
	}
}

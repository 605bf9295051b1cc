package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tetratrack/gaitd/internal/gait"
	"github.com/tetratrack/gaitd/internal/session"
)

// ErrNotFound is returned when a session id does not exist.
var ErrNotFound = errors.New("session not found")

// SessionRow is the listing view of a stored session.
type SessionRow struct {
	SessionID     string    `json:"session_id"`
	StartedAt     time.Time `json:"started_at"`
	EndedAt       time.Time `json:"ended_at"`
	DistanceM     float64   `json:"distance_m"`
	AvgSpeedMps   float64   `json:"avg_speed_mps"`
	MaxSpeedMps   float64   `json:"max_speed_mps"`
	GallopSeconds float64   `json:"gallop_seconds"`
}

// SaveSummary stores a finished ride summary and its child rows in one
// transaction.
func (db *DB) SaveSummary(s *session.Summary) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sessions (
			session_id, started_at, ended_at,
			distance_m, avg_speed_mps, max_speed_mps,
			gallop_seconds, longest_gallop_s
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.SessionID, s.StartedAt.UTC(), s.EndedAt.UTC(),
		s.DistanceM, s.AvgSpeedMps, s.MaxSpeedMps,
		s.GallopSeconds, s.LongestGallopRun,
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", s.SessionID, err)
	}

	for _, seg := range s.Segments {
		_, err = tx.Exec(`
			INSERT INTO gait_segments (session_id, gait, started_at, ended_at, duration_s)
			VALUES (?, ?, ?, ?, ?)`,
			s.SessionID, string(seg.Gait), seg.Start.UTC(), seg.End.UTC(), seg.Elapsed.Seconds(),
		)
		if err != nil {
			return fmt.Errorf("insert segment: %w", err)
		}
	}

	for _, tr := range s.Transitions {
		_, err = tx.Exec(`
			INSERT INTO gait_transitions (session_id, at, from_gait, to_gait)
			VALUES (?, ?, ?, ?)`,
			s.SessionID, tr.At.UTC(), string(tr.From), string(tr.To),
		)
		if err != nil {
			return fmt.Errorf("insert transition: %w", err)
		}
	}

	for _, rc := range s.Recalibrations {
		_, err = tx.Exec(`
			INSERT INTO recalibrations (session_id, at, angle_deg, ordinal)
			VALUES (?, ?, ?, ?)`,
			s.SessionID, rc.At.UTC(), rc.AngleDeg, rc.Ordinal,
		)
		if err != nil {
			return fmt.Errorf("insert recalibration: %w", err)
		}
	}

	return tx.Commit()
}

// ListSessions returns stored sessions, most recent first.
func (db *DB) ListSessions(limit int) ([]SessionRow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`
		SELECT session_id, started_at, ended_at,
		       distance_m, avg_speed_mps, max_speed_mps, gallop_seconds
		FROM sessions
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var r SessionRow
		if err := rows.Scan(&r.SessionID, &r.StartedAt, &r.EndedAt,
			&r.DistanceM, &r.AvgSpeedMps, &r.MaxSpeedMps, &r.GallopSeconds); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetSummary reconstructs the full summary for one session id.
// Per-gait durations are derived from the stored segments.
func (db *DB) GetSummary(sessionID string) (*session.Summary, error) {
	s := &session.Summary{
		SessionID:     sessionID,
		GaitDurations: make(map[gait.Gait]time.Duration),
	}

	err := db.QueryRow(`
		SELECT started_at, ended_at, distance_m, avg_speed_mps, max_speed_mps,
		       gallop_seconds, longest_gallop_s
		FROM sessions WHERE session_id = ?`, sessionID).
		Scan(&s.StartedAt, &s.EndedAt, &s.DistanceM, &s.AvgSpeedMps, &s.MaxSpeedMps,
			&s.GallopSeconds, &s.LongestGallopRun)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}

	segRows, err := db.Query(`
		SELECT gait, started_at, ended_at, duration_s
		FROM gait_segments WHERE session_id = ? ORDER BY started_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get segments: %w", err)
	}
	defer segRows.Close()
	for segRows.Next() {
		var seg session.Segment
		var g string
		var durS float64
		if err := segRows.Scan(&g, &seg.Start, &seg.End, &durS); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		seg.Gait = gait.Gait(g)
		seg.Elapsed = time.Duration(durS * float64(time.Second))
		s.Segments = append(s.Segments, seg)
		s.GaitDurations[seg.Gait] += seg.Elapsed
	}
	if err := segRows.Err(); err != nil {
		return nil, err
	}

	trRows, err := db.Query(`
		SELECT at, from_gait, to_gait
		FROM gait_transitions WHERE session_id = ? ORDER BY at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get transitions: %w", err)
	}
	defer trRows.Close()
	for trRows.Next() {
		var tr session.Transition
		var from, to string
		if err := trRows.Scan(&tr.At, &from, &to); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		tr.From, tr.To = gait.Gait(from), gait.Gait(to)
		s.Transitions = append(s.Transitions, tr)
	}
	if err := trRows.Err(); err != nil {
		return nil, err
	}

	rcRows, err := db.Query(`
		SELECT at, angle_deg, ordinal
		FROM recalibrations WHERE session_id = ? ORDER BY at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get recalibrations: %w", err)
	}
	defer rcRows.Close()
	for rcRows.Next() {
		var rc session.RecalibrationEvent
		if err := rcRows.Scan(&rc.At, &rc.AngleDeg, &rc.Ordinal); err != nil {
			return nil, fmt.Errorf("scan recalibration: %w", err)
		}
		s.Recalibrations = append(s.Recalibrations, rc)
	}
	return s, rcRows.Err()
}

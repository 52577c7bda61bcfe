// Package recorder persists capture sessions for offline calibration: every
// tracker frame (compressed CBOR), the committed selections and the
// panel-created events, in SQLite with embedded migrations.
package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/livepanels/internal/panel"
	"github.com/banshee-data/livepanels/internal/placement"
	"github.com/banshee-data/livepanels/internal/session"
	"github.com/banshee-data/livepanels/internal/surface"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("capture session not found")

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// Store is the capture database. It implements session.FrameRecorder and
// panel.EventSink.
type Store struct {
	db *sql.DB

	mu     sync.Mutex
	active string // session id that panel events are attributed to
}

var (
	_ session.FrameRecorder = (*Store)(nil)
	_ panel.EventSink       = (*Store)(nil)
)

// Open opens (creating if needed) the capture database at path and applies
// pending migrations. Foreign keys and the busy timeout are set per
// connection through the DSN since database/sql pools connections.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	if err := MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	opsf("capture database ready at %s", path)
	return NewStore(db), nil
}

// NewStore wraps an already migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SessionSummary is a capture session row plus its frame count.
type SessionSummary struct {
	ID             string
	StartedAt      time.Time
	EndedAt        time.Time // zero while the session is open
	HitTest        bool
	PlaneDetection bool
	SourceCode     string
	Frames         int
	Selections     int
}

// SessionStarted implements session.FrameRecorder.
func (s *Store) SessionStarted(ctx context.Context, info session.Info) error {
	s.mu.Lock()
	s.active = info.ID
	s.mu.Unlock()

	return retryOnBusy(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO capture_sessions (session_id, started_at, hit_test, plane_detection, source_code)
			VALUES (?, ?, ?, ?, ?)`,
			info.ID, info.StartedAt.UnixNano(), info.Capabilities.HitTest, info.Capabilities.PlaneDetection, info.SourceCode,
		)
		if err != nil {
			return fmt.Errorf("insert capture session: %w", err)
		}
		return nil
	})
}

// FrameRecorded implements session.FrameRecorder. A frame that committed a
// panel also gets a capture_selections row.
func (s *Store) FrameRecorded(ctx context.Context, rec session.FrameRecord) error {
	blob, err := EncodeFrame(rec.Frame, rec.Result)
	if err != nil {
		return err
	}
	res := rec.Result
	kind, source := placement.KindNone.String(), ""
	if res.HasPlacement {
		kind, source = res.Placement.Kind.String(), string(res.Placement.Source)
	}

	var selJSON []byte
	if rec.CommittedID != "" && res.HasPlacement {
		if selJSON, err = placement.Marshal(res.Placement); err != nil {
			return fmt.Errorf("marshal selection: %w", err)
		}
	}

	return retryOnBusy(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin frame tx: %w", err)
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO capture_frames (
				session_id, seq, frame_time, status, has_placement, kind, source,
				floor_score, wall_score, frame_blob
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.SessionID, rec.Seq, rec.Frame.Time.UnixNano(), string(res.Status), res.HasPlacement,
			kind, source, res.FloorScore, res.WallScore, blob,
		)
		if err != nil {
			return fmt.Errorf("insert capture frame: %w", err)
		}
		if selJSON != nil {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO capture_selections (session_id, seq, panel_id, placement_json)
				VALUES (?, ?, ?, ?)`,
				rec.SessionID, rec.Seq, rec.CommittedID, string(selJSON),
			)
			if err != nil {
				return fmt.Errorf("insert capture selection: %w", err)
			}
		}
		tracef("frame %s/%d %d bytes", rec.SessionID, rec.Seq, len(blob))
		return tx.Commit()
	})
}

// SessionEnded implements session.FrameRecorder.
func (s *Store) SessionEnded(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	if s.active == id {
		s.active = ""
	}
	s.mu.Unlock()

	return retryOnBusy(func() error {
		result, err := s.db.ExecContext(ctx, `UPDATE capture_sessions SET ended_at = ? WHERE session_id = ?`, at.UnixNano(), id)
		if err != nil {
			return fmt.Errorf("update capture session: %w", err)
		}
		if n, err := result.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("end %s: %w", id, ErrSessionNotFound)
		}
		return nil
	})
}

// PanelCreated implements panel.EventSink.
func (s *Store) PanelCreated(ctx context.Context, ev panel.CreatedEvent) error {
	s.mu.Lock()
	sessionID := s.active
	s.mu.Unlock()

	placementJSON, err := marshalRecord(ev.Placement)
	if err != nil {
		return err
	}
	var sid interface{}
	if sessionID != "" {
		sid = sessionID
	}
	return retryOnBusy(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO panel_events (panel_id, session_id, created_at, source_code, placement_json, snapshot_png)
			VALUES (?, ?, ?, ?, ?, ?)`,
			ev.ID, sid, ev.CreatedAt.UnixNano(), ev.SourceCode, placementJSON, ev.SnapshotImage,
		)
		if err != nil {
			return fmt.Errorf("insert panel event: %w", err)
		}
		return nil
	})
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, sessionQuery+` GROUP BY s.session_id ORDER BY s.started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query capture sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		sum, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// GetSession returns one session.
func (s *Store) GetSession(ctx context.Context, id string) (SessionSummary, error) {
	row := s.db.QueryRowContext(ctx, sessionQuery+` WHERE s.session_id = ? GROUP BY s.session_id`, id)
	sum, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionSummary{}, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	return sum, err
}

// LatestSession returns the most recently started session.
func (s *Store) LatestSession(ctx context.Context) (SessionSummary, error) {
	row := s.db.QueryRowContext(ctx, sessionQuery+` GROUP BY s.session_id ORDER BY s.started_at DESC LIMIT 1`)
	sum, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionSummary{}, ErrSessionNotFound
	}
	return sum, err
}

const sessionQuery = `
	SELECT s.session_id, s.started_at, s.ended_at, s.hit_test, s.plane_detection, s.source_code,
	       (SELECT COUNT(*) FROM capture_frames f WHERE f.session_id = s.session_id),
	       (SELECT COUNT(*) FROM capture_selections c WHERE c.session_id = s.session_id)
	FROM capture_sessions s`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (SessionSummary, error) {
	var (
		sum     SessionSummary
		started int64
		ended   sql.NullInt64
	)
	err := row.Scan(&sum.ID, &started, &ended, &sum.HitTest, &sum.PlaneDetection, &sum.SourceCode, &sum.Frames, &sum.Selections)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SessionSummary{}, err
		}
		return SessionSummary{}, fmt.Errorf("scan capture session: %w", err)
	}
	sum.StartedAt = time.Unix(0, started).UTC()
	if ended.Valid {
		sum.EndedAt = time.Unix(0, ended.Int64).UTC()
	}
	return sum, nil
}

// RecordedFrame is one stored frame, decoded.
type RecordedFrame struct {
	Seq          int
	Frame        surface.Frame
	Status       surface.Status
	HasPlacement bool
	Placement    placement.Placement
	FloorScore   float64
	WallScore    float64
	CommittedID  string
}

// LoadFrames returns a session's frames in sequence order.
func (s *Store) LoadFrames(ctx context.Context, sessionID string) ([]RecordedFrame, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.seq, f.status, f.floor_score, f.wall_score, f.frame_blob, COALESCE(c.panel_id, '')
		FROM capture_frames f
		LEFT JOIN capture_selections c ON c.session_id = f.session_id AND c.seq = f.seq
		WHERE f.session_id = ?
		ORDER BY f.seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query capture frames: %w", err)
	}
	defer rows.Close()

	var out []RecordedFrame
	for rows.Next() {
		var (
			rf     RecordedFrame
			status string
			blob   []byte
		)
		if err := rows.Scan(&rf.Seq, &status, &rf.FloorScore, &rf.WallScore, &blob, &rf.CommittedID); err != nil {
			return nil, fmt.Errorf("scan capture frame: %w", err)
		}
		rf.Status = surface.Status(status)
		rf.Frame, rf.Placement, rf.HasPlacement, err = DecodeFrame(blob)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", rf.Seq, err)
		}
		out = append(out, rf)
	}
	return out, rows.Err()
}

// PanelEvents returns the panel-created events of a session, oldest first.
// Events whose stored placement no longer parses are skipped.
func (s *Store) PanelEvents(ctx context.Context, sessionID string) ([]panel.CreatedEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT panel_id, created_at, source_code, placement_json, snapshot_png
		FROM panel_events
		WHERE session_id = ?
		ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query panel events: %w", err)
	}
	defer rows.Close()

	var out []panel.CreatedEvent
	for rows.Next() {
		var (
			ev        panel.CreatedEvent
			createdAt int64
			raw       string
		)
		if err := rows.Scan(&ev.ID, &createdAt, &ev.SourceCode, &raw, &ev.SnapshotImage); err != nil {
			return nil, fmt.Errorf("scan panel event: %w", err)
		}
		p, ok := placement.Unmarshal([]byte(raw))
		if !ok {
			opsf("panel event %s: stored placement unreadable, skipping", ev.ID)
			continue
		}
		ev.Placement = placement.ToRecord(p)
		ev.CreatedAt = time.Unix(0, createdAt).UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}

// DeleteSession removes a session and everything recorded under it.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return retryOnBusy(func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM capture_sessions WHERE session_id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete capture session: %w", err)
		}
		if n, err := result.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("delete %s: %w", id, ErrSessionNotFound)
		}
		_, err = s.db.ExecContext(ctx, `DELETE FROM panel_events WHERE session_id = ?`, id)
		return err
	})
}

// Package store persists tracking sessions in SQLite
package store

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"time"

	"github.com/LdDl/spheroid-mot/internal/monitoring"
	"github.com/LdDl/spheroid-mot/mot"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// ErrSessionNotFound is returned for unknown session ids
var ErrSessionNotFound = errors.New("session not found")

// SessionRow is a stored session header
type SessionRow struct {
	SessionID    uuid.UUID
	Source       string
	CreatedAt    time.Time
	State        string
	FailedFrames int
	FinishedAt   *time.Time
}

// BoundsChange is a stored size bounds update
type BoundsChange struct {
	SessionID uuid.UUID
	ChangedAt time.Time
	Previous  mot.SizeBounds
	Current   mot.SizeBounds
}

// Store wraps SQLite database with tracking tables
type Store struct {
	db *sql.DB
}

// Open opens (or creates) database at path and applies schema
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open %s", path)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "can't enable foreign keys")
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "can't apply schema")
	}
	monitoring.Logf("initialized tracking database %s", path)
	return &Store{db: db}, nil
}

// Close closes underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSession stores session header
func (s *Store) CreateSession(id uuid.UUID, source string) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (session_id, source, created_unix_nanos, state) VALUES (?, ?, ?, ?)`,
		id.String(), source, time.Now().UnixNano(), mot.StateInit.String(),
	)
	if err != nil {
		return errors.Wrap(err, "insert session")
	}
	return nil
}

// FinishSession stores final state of the session
func (s *Store) FinishSession(id uuid.UUID, state mot.SessionState, failedFrames int) error {
	res, err := s.db.Exec(
		`UPDATE sessions SET state = ?, failed_frames = ?, finished_unix_nanos = ? WHERE session_id = ?`,
		state.String(), failedFrames, time.Now().UnixNano(), id.String(),
	)
	if err != nil {
		return errors.Wrap(err, "update session")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update session")
	}
	if n == 0 {
		return errors.Wrapf(ErrSessionNotFound, "session %s", id)
	}
	return nil
}

// Session returns stored session header
func (s *Store) Session(id uuid.UUID) (*SessionRow, error) {
	row := &SessionRow{SessionID: id}
	var created int64
	var finished sql.NullInt64
	err := s.db.QueryRow(
		`SELECT source, created_unix_nanos, state, failed_frames, finished_unix_nanos FROM sessions WHERE session_id = ?`,
		id.String(),
	).Scan(&row.Source, &created, &row.State, &row.FailedFrames, &finished)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrSessionNotFound, "session %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select session")
	}
	row.CreatedAt = time.Unix(0, created)
	if finished.Valid {
		finishedAt := time.Unix(0, finished.Int64)
		row.FinishedAt = &finishedAt
	}
	return row, nil
}

// InsertRecords stores records of a single frame atomically
func (s *Store) InsertRecords(id uuid.UUID, records []mot.TrackRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO track_records (
			session_id, frame_num, local_index, track_id,
			box_x, box_y, box_width, box_height, polygon_json,
			confidence, diameter, area, volume, iou
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.Wrap(err, "prepare insert records")
	}
	defer stmt.Close()

	for _, record := range records {
		polygonJSON, err := json.Marshal(polygonToPairs(record.Polygon))
		if err != nil {
			return errors.Wrap(err, "encode polygon")
		}
		_, err = stmt.Exec(
			id.String(), record.FrameNum, int(record.LocalIndex), int(record.TrackID),
			record.Box.X, record.Box.Y, record.Box.Width, record.Box.Height, string(polygonJSON),
			record.Confidence, record.Diameter, record.Area, record.Volume, record.IoU,
		)
		if err != nil {
			return errors.Wrapf(err, "insert record frame %d index %d", record.FrameNum, record.LocalIndex)
		}
	}
	return errors.Wrap(tx.Commit(), "commit records")
}

// Records returns stored records ordered by frame and local index
func (s *Store) Records(id uuid.UUID) ([]mot.TrackRecord, error) {
	rows, err := s.db.Query(`
		SELECT frame_num, local_index, track_id,
		       box_x, box_y, box_width, box_height, polygon_json,
		       confidence, diameter, area, volume, iou
		FROM track_records
		WHERE session_id = ?
		ORDER BY frame_num, local_index
	`, id.String())
	if err != nil {
		return nil, errors.Wrap(err, "select records")
	}
	defer rows.Close()

	records := []mot.TrackRecord{}
	for rows.Next() {
		var record mot.TrackRecord
		var localIndex, trackID int
		var polygonJSON string
		err := rows.Scan(
			&record.FrameNum, &localIndex, &trackID,
			&record.Box.X, &record.Box.Y, &record.Box.Width, &record.Box.Height, &polygonJSON,
			&record.Confidence, &record.Diameter, &record.Area, &record.Volume, &record.IoU,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scan record")
		}
		var pairs [][2]float64
		if err := json.Unmarshal([]byte(polygonJSON), &pairs); err != nil {
			return nil, errors.Wrapf(err, "decode polygon of frame %d", record.FrameNum)
		}
		record.LocalIndex = mot.LocalIndex(localIndex)
		record.TrackID = mot.TrackID(trackID)
		record.Polygon = pairsToPolygon(pairs)
		records = append(records, record)
	}
	return records, errors.Wrap(rows.Err(), "iterate records")
}

// InsertBoundsChange stores a size bounds update
func (s *Store) InsertBoundsChange(id uuid.UUID, previous, current mot.SizeBounds) error {
	_, err := s.db.Exec(
		`INSERT INTO bounds_changes (session_id, changed_unix_nanos, prev_min, prev_max, new_min, new_max) VALUES (?, ?, ?, ?, ?, ?)`,
		id.String(), time.Now().UnixNano(), previous.MinSize, previous.MaxSize, current.MinSize, current.MaxSize,
	)
	return errors.Wrap(err, "insert bounds change")
}

// BoundsChanges returns stored bounds updates in insertion order
func (s *Store) BoundsChanges(id uuid.UUID) ([]BoundsChange, error) {
	rows, err := s.db.Query(
		`SELECT changed_unix_nanos, prev_min, prev_max, new_min, new_max FROM bounds_changes WHERE session_id = ? ORDER BY change_id`,
		id.String(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "select bounds changes")
	}
	defer rows.Close()

	changes := []BoundsChange{}
	for rows.Next() {
		change := BoundsChange{SessionID: id}
		var changed int64
		err := rows.Scan(&changed, &change.Previous.MinSize, &change.Previous.MaxSize, &change.Current.MinSize, &change.Current.MaxSize)
		if err != nil {
			return nil, errors.Wrap(err, "scan bounds change")
		}
		change.ChangedAt = time.Unix(0, changed)
		changes = append(changes, change)
	}
	return changes, errors.Wrap(rows.Err(), "iterate bounds changes")
}

// FrameObserver persists records of every processed frame.
// Write failures are logged; tracking is not interrupted.
func (s *Store) FrameObserver() mot.FrameObserver {
	return mot.FrameObserverFunc(func(report mot.FrameReport) {
		if err := s.InsertRecords(report.SessionID, report.Records); err != nil {
			monitoring.Warnf("session %s: can't store frame %d: %v", report.SessionID, report.FrameNum, err)
		}
	})
}

// BoundsObserver persists size bounds updates of the session
func (s *Store) BoundsObserver(id uuid.UUID) mot.BoundsObserver {
	return mot.BoundsObserverFunc(func(previous, current mot.SizeBounds) {
		if err := s.InsertBoundsChange(id, previous, current); err != nil {
			monitoring.Warnf("session %s: can't store bounds change: %v", id, err)
		}
	})
}

func polygonToPairs(p mot.Polygon) [][2]float64 {
	pairs := make([][2]float64, len(p))
	for i, pt := range p {
		pairs[i] = [2]float64{pt.X, pt.Y}
	}
	return pairs
}

func pairsToPolygon(pairs [][2]float64) mot.Polygon {
	p := make(mot.Polygon, len(pairs))
	for i, pair := range pairs {
		p[i] = mot.NewPoint(pair[0], pair[1])
	}
	return p
}

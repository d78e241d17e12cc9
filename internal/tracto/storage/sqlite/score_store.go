// Package sqlite persists scoring results so submissions can be compared
// across runs. It uses the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ScoreRecord is a persisted scorecard for one submission. DetailJSON holds
// the full scorecard mapping; the scalar columns are denormalised for
// queries and listings.
type ScoreRecord struct {
	ScoreID          string          `json:"score_id"`
	SubmissionPath   string          `json:"submission_path"`
	BaseName         string          `json:"base_name"`
	VC               float64         `json:"vc"`
	IC               float64         `json:"ic"`
	NC               float64         `json:"nc"`
	VB               int             `json:"vb"`
	IB               int             `json:"ib"`
	TotalStreamlines int             `json:"total_streamlines"`
	MeanOL           float64         `json:"mean_ol"`
	MeanOR           float64         `json:"mean_or"`
	MeanORn          float64         `json:"mean_orn"`
	MeanF1           float64         `json:"mean_f1"`
	DetailJSON       json.RawMessage `json:"detail_json,omitempty"`
	CreatedAt        int64           `json:"created_at"`
}

// ScoreStore provides persistence for scoring results.
type ScoreStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the scores database at path.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open scores db: %w", err)
	}
	return db, nil
}

// NewScoreStore creates a ScoreStore backed by the given database.
func NewScoreStore(db *sql.DB) *ScoreStore {
	return &ScoreStore{db: db}
}

// Insert persists a new score record. If ScoreID is empty, a UUID is generated.
func (s *ScoreStore) Insert(rec *ScoreRecord) error {
	if rec.ScoreID == "" {
		rec.ScoreID = uuid.New().String()
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().UnixNano()
	}

	var detailStr interface{}
	if len(rec.DetailJSON) > 0 {
		detailStr = string(rec.DetailJSON)
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO tracto_scores (
				score_id, submission_path, base_name,
				vc, ic, nc, vb, ib, total_streamlines,
				mean_ol, mean_or, mean_orn, mean_f1,
				detail_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ScoreID, rec.SubmissionPath, rec.BaseName,
			rec.VC, rec.IC, rec.NC, rec.VB, rec.IB, rec.TotalStreamlines,
			rec.MeanOL, rec.MeanOR, rec.MeanORn, rec.MeanF1,
			detailStr, rec.CreatedAt,
		)
		return err
	})
}

// Get returns one score record by ID.
func (s *ScoreStore) Get(scoreID string) (*ScoreRecord, error) {
	row := s.db.QueryRow(scoreSelect+` WHERE score_id = ?`, scoreID)
	rec, err := scanScore(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("score %s not found", scoreID)
	}
	return rec, err
}

// ListRecent returns the most recent score records, newest first.
func (s *ScoreStore) ListRecent(limit int) ([]*ScoreRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(scoreSelect+` ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var recs []*ScoreRecord
	for rows.Next() {
		rec, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

const scoreSelect = `
	SELECT score_id, submission_path, base_name,
	       vc, ic, nc, vb, ib, total_streamlines,
	       mean_ol, mean_or, mean_orn, mean_f1,
	       detail_json, created_at
	FROM tracto_scores`

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanScore(row rowScanner) (*ScoreRecord, error) {
	rec := &ScoreRecord{}
	var detail sql.NullString
	err := row.Scan(
		&rec.ScoreID, &rec.SubmissionPath, &rec.BaseName,
		&rec.VC, &rec.IC, &rec.NC, &rec.VB, &rec.IB, &rec.TotalStreamlines,
		&rec.MeanOL, &rec.MeanOR, &rec.MeanORn, &rec.MeanF1,
		&detail, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if detail.Valid {
		rec.DetailJSON = json.RawMessage(detail.String)
	}
	return rec, nil
}

// retryOnBusy retries a write a few times when SQLite reports a locked or
// busy database, which happens under concurrent CLI invocations.
func retryOnBusy(fn func() error) error {
	const attempts = 5
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		msg := err.Error()
		if !strings.Contains(msg, "database is locked") && !strings.Contains(msg, "busy") {
			return err
		}
		time.Sleep(time.Duration(i+1) * 10 * time.Millisecond)
	}
	return err
}

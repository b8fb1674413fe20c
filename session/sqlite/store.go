package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/hupe1980/interviewmesh/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS interview_sessions (
	id              TEXT PRIMARY KEY,
	resume_text     TEXT NOT NULL DEFAULT '',
	job_description TEXT NOT NULL DEFAULT '',
	role            TEXT NOT NULL DEFAULT '',
	profile         TEXT NOT NULL DEFAULT '{}',
	status          TEXT NOT NULL,
	current_phase   TEXT NOT NULL,
	started_at      TEXT,
	ended_at        TEXT,
	scores          TEXT NOT NULL DEFAULT '{}',
	qa_history      TEXT NOT NULL DEFAULT '[]',
	final_report    TEXT NOT NULL DEFAULT '',
	recommendation  TEXT NOT NULL DEFAULT '',
	skill_roadmap   TEXT NOT NULL DEFAULT '[]',
	memory_opt_in   INTEGER NOT NULL DEFAULT 0,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);
`

// Store is a SQLite-backed core.SessionStore.
type Store struct {
	db *sql.DB
}

var _ core.SessionStore = (*Store)(nil)

// Open opens (creating if necessary) the database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Create inserts (or replaces) the session row.
func (s *Store) Create(sess *core.Session) error {
	snap := sess.Clone()
	profile, _ := json.Marshal(snap.Profile)
	scores, _ := json.Marshal(snap.Scores)
	history, _ := json.Marshal(snap.QAHistory)
	roadmap, _ := json.Marshal(snap.SkillRoadmap)

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO interview_sessions
		(id, resume_text, job_description, role, profile, status, current_phase,
		 started_at, ended_at, scores, qa_history, final_report, recommendation,
		 skill_roadmap, memory_opt_in, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.ResumeText, snap.JobDescription, snap.Role, string(profile),
		snap.Status, string(snap.Phase), timeText(snap.StartedAt), timeText(snap.EndedAt),
		string(scores), string(history), snap.Report, string(snap.Recommendation),
		string(roadmap), boolInt(snap.MemoryOptIn),
		snap.Created.Format(time.RFC3339Nano), snap.Updated.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Get reads one session row by id.
func (s *Store) Get(id string) (*core.Session, error) {
	row := s.db.QueryRow(`
		SELECT id, resume_text, job_description, role, profile, status, current_phase,
		       started_at, ended_at, scores, qa_history, final_report, recommendation,
		       skill_roadmap, memory_opt_in, created_at, updated_at
		FROM interview_sessions WHERE id = ?`, id)
	return scanSession(row)
}

// AppendQA appends one item to the stored Q&A history.
func (s *Store) AppendQA(sessionID string, item core.QAItem) error {
	return s.withHistory(sessionID, func(history []core.QAItem) []core.QAItem {
		return append(history, item)
	})
}

// withHistory rewrites qa_history through fn inside a transaction.
func (s *Store) withHistory(sessionID string, fn func([]core.QAItem) []core.QAItem) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRow(`SELECT qa_history FROM interview_sessions WHERE id = ?`, sessionID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	var history []core.QAItem
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return fmt.Errorf("decode history: %w", err)
	}
	updated, err := json.Marshal(fn(history))
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	if _, err := tx.Exec(`UPDATE interview_sessions SET qa_history = ?, updated_at = ? WHERE id = ?`,
		string(updated), now(), sessionID); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return tx.Commit()
}

// UpdateScores overwrites the stored running average.
func (s *Store) UpdateScores(sessionID string, scores core.ScoreCard) error {
	encoded, _ := json.Marshal(scores)
	return s.update(sessionID, `UPDATE interview_sessions SET scores = ?, updated_at = ? WHERE id = ?`,
		string(encoded), now(), sessionID)
}

// UpdatePhase overwrites the stored phase.
func (s *Store) UpdatePhase(sessionID string, phase core.Phase) error {
	return s.update(sessionID, `UPDATE interview_sessions SET current_phase = ?, updated_at = ? WHERE id = ?`,
		string(phase), now(), sessionID)
}

// UpdateMemoryOptIn overwrites the stored memory consent flag.
func (s *Store) UpdateMemoryOptIn(sessionID string, optIn bool) error {
	return s.update(sessionID, `UPDATE interview_sessions SET memory_opt_in = ?, updated_at = ? WHERE id = ?`,
		boolInt(optIn), now(), sessionID)
}

// Finalize seals the session row with its final artifacts.
func (s *Store) Finalize(sessionID string, report string, rec core.Recommendation, roadmap []string, endedAt time.Time) error {
	encoded, _ := json.Marshal(roadmap)
	return s.update(sessionID, `
		UPDATE interview_sessions
		SET final_report = ?, recommendation = ?, skill_roadmap = ?,
		    status = ?, current_phase = ?, ended_at = ?, updated_at = ?
		WHERE id = ?`,
		report, string(rec), string(encoded),
		core.StatusCompleted, string(core.PhaseCompleted),
		endedAt.UTC().Format(time.RFC3339Nano), now(), sessionID)
}

func (s *Store) update(sessionID, query string, args ...any) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrSessionNotFound
	}
	return nil
}

// PastSessions returns summaries of stored sessions, newest first.
func (s *Store) PastSessions(limit int, completedOnly bool) ([]core.Summary, error) {
	query := `
		SELECT id, resume_text, job_description, role, profile, status, current_phase,
		       started_at, ended_at, scores, qa_history, final_report, recommendation,
		       skill_roadmap, memory_opt_in, created_at, updated_at
		FROM interview_sessions`
	if completedOnly {
		query += ` WHERE status = '` + core.StatusCompleted + `'`
	}
	query += ` ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var summaries []core.Summary
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, sess.Summarize())
	}
	return summaries, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*core.Session, error) {
	var (
		sess                              core.Session
		profile, scores, history, roadmap string
		phase, status, rec                string
		startedAt, endedAt                sql.NullString
		createdAt, updatedAt              string
		optIn                             int
	)
	err := row.Scan(&sess.ID, &sess.ResumeText, &sess.JobDescription, &sess.Role,
		&profile, &status, &phase, &startedAt, &endedAt, &scores, &history,
		&sess.Report, &rec, &roadmap, &optIn, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	sess.Status = status
	sess.Phase = core.Phase(phase)
	sess.Recommendation = core.Recommendation(rec)
	sess.MemoryOptIn = optIn != 0
	if err := json.Unmarshal([]byte(profile), &sess.Profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if err := json.Unmarshal([]byte(scores), &sess.Scores); err != nil {
		return nil, fmt.Errorf("decode scores: %w", err)
	}
	if err := json.Unmarshal([]byte(history), &sess.QAHistory); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	if err := json.Unmarshal([]byte(roadmap), &sess.SkillRoadmap); err != nil {
		return nil, fmt.Errorf("decode roadmap: %w", err)
	}
	sess.StartedAt = parseTime(startedAt)
	sess.EndedAt = parseTime(endedAt)
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		sess.Created = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		sess.Updated = t
	}
	return &sess, nil
}

func parseTime(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil
	}
	return &t
}

func timeText(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

package pgrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klauspost/compress/zstd"
	"github.com/paper-guides/backend/logger"
	"github.com/paper-guides/backend/subm"
)

var (
	encoder, _ = zstd.NewWriter(nil)
	decoder, _ = zstd.NewReader(nil)
)

// Store is a subm.ContentStore backed by PostgreSQL. Blobs are kept
// zstd-compressed; rows are never removed.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

const selectColumns = `
	id, uuid, kind, parent_uuid,
	board, subject, level, component, topic, difficulty, year, session,
	question_blob, solution_blob, question_mime, solution_mime,
	question_sha256, solution_sha256, question_size, solution_size,
	submitted_by, submitted_on, submitter_ip,
	status, moderated_by, moderated_on`

// listColumns skips the blobs of rows whose digests were recorded on insert.
const listColumns = `
	id, uuid, kind, parent_uuid,
	board, subject, level, component, topic, difficulty, year, session,
	CASE WHEN question_sha256 = '' THEN question_blob END,
	CASE WHEN question_sha256 = '' THEN solution_blob END,
	question_mime, solution_mime,
	question_sha256, solution_sha256, question_size, solution_size,
	submitted_by, submitted_on, submitter_ip,
	status, moderated_by, moderated_on`

// Insert implements subm.ContentStore
func (r *Store) Insert(ctx context.Context, s subm.Subm, children ...subm.Subm) (uuid.UUID, error) {
	log := logger.FromContext(ctx)
	log.Debug("inserting submission", "uuid", s.UUID, "children", len(children))

	for _, c := range children {
		if c.ParentUUID == nil || *c.ParentUUID != s.UUID {
			return uuid.Nil, fmt.Errorf("child %s does not reference parent %s", c.UUID, s.UUID)
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, row := range append([]subm.Subm{s}, children...) {
		if err := insertRow(ctx, tx, row); err != nil {
			return uuid.Nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.UUID, nil
}

func insertRow(ctx context.Context, tx pgx.Tx, s subm.Subm) error {
	if s.UUID == uuid.Nil {
		return fmt.Errorf("submission uuid is not set")
	}
	status := s.Status
	if status == "" {
		status = subm.StatusPending
	}

	query := `
		INSERT INTO submissions (
			uuid, kind, parent_uuid,
			board, subject, level, component, topic, difficulty, year, session,
			question_blob, solution_blob, question_mime, solution_mime,
			question_sha256, solution_sha256, question_size, solution_size,
			submitted_by, submitted_on, submitter_ip, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23)
	`
	_, err := tx.Exec(ctx, query,
		s.UUID,
		string(s.Kind),
		s.ParentUUID,
		s.Board,
		s.Subject,
		s.Level,
		s.Component,
		s.Topic,
		s.Difficulty,
		s.Year,
		s.Session,
		compress(s.QuestionBlob),
		compress(s.SolutionBlob),
		s.QuestionMime,
		s.SolutionMime,
		s.QuestionFingerprint,
		s.SolutionFingerprint,
		s.QuestionSize,
		s.SolutionSize,
		s.SubmittedBy,
		s.SubmittedOn,
		s.SubmitterIP,
		string(status),
	)
	if err != nil {
		return fmt.Errorf("failed to insert submission %s: %w", s.UUID, err)
	}
	return nil
}

// GetByUUID implements subm.ContentStore
func (r *Store) GetByUUID(ctx context.Context, id uuid.UUID) (*subm.Subm, error) {
	query := `SELECT ` + selectColumns + ` FROM submissions WHERE uuid = $1`
	s, err := scanSubm(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, subm.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission %s: %w", id, err)
	}
	return s, nil
}

// ListByStatus implements subm.ContentStore
func (r *Store) ListByStatus(ctx context.Context, status subm.Status, kind subm.Kind) ([]subm.Subm, error) {
	query := `SELECT ` + listColumns + ` FROM submissions
		WHERE status = $1 AND kind = $2
		ORDER BY submitted_on, id`
	return r.list(ctx, query, string(status), string(kind))
}

// ListChildren implements subm.ContentStore
func (r *Store) ListChildren(ctx context.Context, parent uuid.UUID) ([]subm.Subm, error) {
	query := `SELECT ` + listColumns + ` FROM submissions
		WHERE parent_uuid = $1
		ORDER BY submitted_on, id`
	return r.list(ctx, query, parent)
}

func (r *Store) list(ctx context.Context, query string, args ...any) ([]subm.Subm, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	res := make([]subm.Subm, 0)
	for rows.Next() {
		s, err := scanSubm(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		res = append(res, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}
	return res, nil
}

// UpdateStatus implements subm.ContentStore. The row lock taken by the
// conditional UPDATE serializes concurrent moderators.
func (r *Store) UpdateStatus(ctx context.Context, id uuid.UUID, expected subm.Status, next subm.Status, actor string) (bool, error) {
	if !expected.CanTransitionTo(next) {
		return false, fmt.Errorf("illegal status transition %s -> %s", expected, next)
	}
	return r.transition(ctx, id, actor, next,
		`UPDATE submissions SET status = $2, moderated_by = $3, moderated_on = $4
		 WHERE uuid = $1 AND status = $5`,
		`UPDATE submissions SET status = $2, moderated_by = $3, moderated_on = $4
		 WHERE parent_uuid = $1 AND status = $5`,
		string(expected))
}

// Delete implements subm.ContentStore
func (r *Store) Delete(ctx context.Context, id uuid.UUID, actor string) (bool, error) {
	return r.transition(ctx, id, actor, subm.StatusDeleted,
		`UPDATE submissions SET status = $2, moderated_by = $3, moderated_on = $4
		 WHERE uuid = $1 AND status <> $5`,
		`UPDATE submissions SET status = $2, moderated_by = $3, moderated_on = $4
		 WHERE parent_uuid = $1 AND status <> $5`,
		string(subm.StatusDeleted))
}

func (r *Store) transition(ctx context.Context, id uuid.UUID, actor string, next subm.Status, parentQuery, childQuery string, cond string) (bool, error) {
	log := logger.FromContext(ctx)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := r.now().UTC()
	tag, err := tx.Exec(ctx, parentQuery, id, string(next), actor, now, cond)
	if err != nil {
		return false, fmt.Errorf("failed to update submission %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM submissions WHERE uuid = $1)`, id).Scan(&exists)
		if err != nil {
			return false, fmt.Errorf("failed to check submission %s: %w", id, err)
		}
		if !exists {
			return false, subm.ErrNotFound
		}
		return false, nil
	}

	tag, err = tx.Exec(ctx, childQuery, id, string(next), actor, now, cond)
	if err != nil {
		return false, fmt.Errorf("failed to cascade to children of %s: %w", id, err)
	}
	log.Debug("submission status changed", "uuid", id, "status", next, "children", tag.RowsAffected())

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

func scanSubm(row pgx.Row) (*subm.Subm, error) {
	var (
		s            subm.Subm
		kind, status string
		question     []byte
		solution     []byte
		moderatedBy  *string
	)
	err := row.Scan(
		&s.ID, &s.UUID, &kind, &s.ParentUUID,
		&s.Board, &s.Subject, &s.Level, &s.Component, &s.Topic, &s.Difficulty, &s.Year, &s.Session,
		&question, &solution, &s.QuestionMime, &s.SolutionMime,
		&s.QuestionFingerprint, &s.SolutionFingerprint, &s.QuestionSize, &s.SolutionSize,
		&s.SubmittedBy, &s.SubmittedOn, &s.SubmitterIP,
		&status, &moderatedBy, &s.ModeratedOn,
	)
	if err != nil {
		return nil, err
	}
	s.Kind = subm.Kind(kind)
	s.Status = subm.Status(status)
	if moderatedBy != nil {
		s.ModeratedBy = *moderatedBy
	}
	if s.QuestionBlob, err = decompress(question); err != nil {
		return nil, fmt.Errorf("failed to decompress question of %s: %w", s.UUID, err)
	}
	if s.SolutionBlob, err = decompress(solution); err != nil {
		return nil, fmt.Errorf("failed to decompress solution of %s: %w", s.UUID, err)
	}
	if s.QuestionFingerprint == "" {
		s.QuestionSize = len(s.QuestionBlob)
		s.SolutionSize = len(s.SolutionBlob)
	}
	return &s, nil
}

func compress(blob []byte) []byte {
	if len(blob) == 0 {
		return []byte{}
	}
	return encoder.EncodeAll(blob, make([]byte, 0, len(blob)))
}

func decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return decoder.DecodeAll(data, nil)
}

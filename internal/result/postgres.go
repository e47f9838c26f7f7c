package result

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/quizplay/internal/domain"
	"github.com/victornm/quizplay/internal/errors"
)

const codeUniqueViolation = "23505"

// PostgresStore stores results in the quiz_results and puzzle_results tables created by the
// migrations package. Durations are stored in microseconds.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) AddQuizResult(ctx context.Context, r domain.QuizResult) error {
	const stmt = `
INSERT INTO quiz_results (id, session_id, username, quiz_id, score, total_questions, correct_answers, time_spent_us, completed_at, answers)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`

	answers := r.Answers
	if answers == nil {
		answers = []domain.Answer{}
	}

	_, err := p.db.Exec(ctx, stmt,
		r.ID, r.SessionID, r.Username, r.QuizID, r.Score, r.TotalQuestions, r.CorrectAnswers,
		r.TimeSpent.Microseconds(), r.CompletedAt, answers)
	return insertError("quiz result", r.ID, err)
}

func (p *PostgresStore) AddPuzzleResult(ctx context.Context, r domain.PuzzleResult) error {
	const stmt = `
INSERT INTO puzzle_results (id, session_id, username, puzzle_id, base_points, completed, solved, time_spent_us, hints_used, attempts, completed_at, final_answer)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);`

	_, err := p.db.Exec(ctx, stmt,
		r.ID, r.SessionID, r.Username, r.PuzzleID, r.BasePoints, r.Completed, r.Solved,
		r.TimeSpent.Microseconds(), r.HintsUsed, r.Attempts, r.CompletedAt, r.FinalAnswer)
	return insertError("puzzle result", r.ID, err)
}

func (p *PostgresStore) ListQuizResults(ctx context.Context, username string) ([]domain.QuizResult, error) {
	const stmt = `
SELECT id, session_id, username, quiz_id, score, total_questions, correct_answers, time_spent_us, completed_at, answers
FROM quiz_results
WHERE username = $1
ORDER BY completed_at, id;`

	rows, err := p.db.Query(ctx, stmt, username)
	if err != nil {
		return nil, fmt.Errorf("list quiz results: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.QuizResult, error) {
		var (
			r     domain.QuizResult
			spent int64
		)
		if err := row.Scan(&r.ID, &r.SessionID, &r.Username, &r.QuizID, &r.Score, &r.TotalQuestions,
			&r.CorrectAnswers, &spent, &r.CompletedAt, &r.Answers); err != nil {
			return domain.QuizResult{}, err
		}
		r.TimeSpent = time.Duration(spent) * time.Microsecond
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan quiz results: %w", err)
	}

	return results, nil
}

func (p *PostgresStore) ListPuzzleResults(ctx context.Context, username string) ([]domain.PuzzleResult, error) {
	const stmt = `
SELECT id, session_id, username, puzzle_id, base_points, completed, solved, time_spent_us, hints_used, attempts, completed_at, final_answer
FROM puzzle_results
WHERE username = $1
ORDER BY completed_at, id;`

	rows, err := p.db.Query(ctx, stmt, username)
	if err != nil {
		return nil, fmt.Errorf("list puzzle results: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.PuzzleResult, error) {
		var (
			r     domain.PuzzleResult
			spent int64
		)
		if err := row.Scan(&r.ID, &r.SessionID, &r.Username, &r.PuzzleID, &r.BasePoints, &r.Completed,
			&r.Solved, &spent, &r.HintsUsed, &r.Attempts, &r.CompletedAt, &r.FinalAnswer); err != nil {
			return domain.PuzzleResult{}, err
		}
		r.TimeSpent = time.Duration(spent) * time.Microsecond
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan puzzle results: %w", err)
	}

	return results, nil
}

// DeleteUserResults removes the user's quiz and puzzle results in one transaction.
func (p *PostgresStore) DeleteUserResults(ctx context.Context, username string) (int, error) {
	var n int64
	err := pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		b := &pgx.Batch{}
		b.Queue(`DELETE FROM quiz_results WHERE username = $1;`, username)
		b.Queue(`DELETE FROM puzzle_results WHERE username = $1;`, username)

		br := tx.SendBatch(ctx, b)
		for range b.Len() {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return err
			}
			n += tag.RowsAffected()
		}
		return br.Close()
	})
	if err != nil {
		return 0, fmt.Errorf("delete results of %s: %w", username, err)
	}

	return int(n), nil
}

func insertError(what, id string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("%s %s already stored", what, id),
			errors.WithCause(err))
	}

	return fmt.Errorf("insert %s: %w", what, err)
}

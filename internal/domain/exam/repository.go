package exam

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

// Repository defines exam and session data access
type Repository interface {
	ListExams(ctx context.Context) ([]Exam, error)
	GetExam(ctx context.Context, id uuid.UUID) (*Exam, error)
	ListQuestions(ctx context.Context, examID uuid.UUID) ([]Question, error)
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	SubmitSession(ctx context.Context, id uuid.UUID, score int, submittedAt time.Time) error
	AbandonSession(ctx context.Context, id uuid.UUID) error
	ListSessionsByUser(ctx context.Context, userID uuid.UUID) ([]Session, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates exam repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListExams(ctx context.Context) ([]Exam, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var exams []Exam
	err := r.db.SelectContext(ctx2, &exams, `
		SELECT * FROM exams
		ORDER BY difficulty, title
	`)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, nil
}

func (r *repository) GetExam(ctx context.Context, id uuid.UUID) (*Exam, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var e Exam
	err := r.db.GetContext(ctx2, &e, `SELECT * FROM exams WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return &e, nil
}

func (r *repository) ListQuestions(ctx context.Context, examID uuid.UUID) ([]Question, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var questions []Question
	err := r.db.SelectContext(ctx2, &questions, `
		SELECT * FROM questions
		WHERE exam_id = $1
		ORDER BY position
	`, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

func (r *repository) CreateSession(ctx context.Context, s *Session) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx2, `
		INSERT INTO exam_sessions (id, exam_id, user_id, status, started_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.ExamID, s.UserID, s.Status, s.StartedAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *repository) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var s Session
	err := r.db.GetContext(ctx2, &s, `SELECT * FROM exam_sessions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

// SubmitSession closes an in-progress session with its final score.
// The status guard keeps a double submit from rewriting the score.
func (r *repository) SubmitSession(ctx context.Context, id uuid.UUID, score int, submittedAt time.Time) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx2, `
		UPDATE exam_sessions
		SET status = $2, score = $3, submitted_at = $4
		WHERE id = $1 AND status = $5
	`, id, StatusSubmitted, score, submittedAt, StatusInProgress)
	if err != nil {
		return fmt.Errorf("submit session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionClosed
	}
	return nil
}

// AbandonSession closes an in-progress session without a score.
func (r *repository) AbandonSession(ctx context.Context, id uuid.UUID) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx2, `
		UPDATE exam_sessions
		SET status = $2
		WHERE id = $1 AND status = $3
	`, id, StatusExpired, StatusInProgress)
	if err != nil {
		return fmt.Errorf("abandon session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionClosed
	}
	return nil
}

func (r *repository) ListSessionsByUser(ctx context.Context, userID uuid.UUID) ([]Session, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var sessions []Session
	err := r.db.SelectContext(ctx2, &sessions, `
		SELECT * FROM exam_sessions
		WHERE user_id = $1
		ORDER BY started_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

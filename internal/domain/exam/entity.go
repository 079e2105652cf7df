package exam

import (
	"time"

	"github.com/google/uuid"

	"github.com/coduxa/coduxa-api/internal/pkg/pgutil"
)

// Session statuses
const (
	StatusInProgress = "in_progress"
	StatusSubmitted  = "submitted"
	StatusExpired    = "expired"
)

// Question kinds
const (
	KindSingleChoice = "single_choice"
	KindMultiChoice  = "multi_choice"
	KindCode         = "code"
	KindBoolean      = "boolean"
)

// Exam is a certification exam definition
type Exam struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Slug            string    `db:"slug" json:"slug"`
	Title           string    `db:"title" json:"title"`
	Description     string    `db:"description" json:"description"`
	Difficulty      string    `db:"difficulty" json:"difficulty"`
	CreditCost      int       `db:"credit_cost" json:"credit_cost"`
	PassScore       int       `db:"pass_score" json:"pass_score"`
	QuestionCount   int       `db:"question_count" json:"question_count"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Question belongs to an exam. Correct holds the answer key and must
// never be serialized into API responses.
type Question struct {
	ID       string         `db:"id" json:"id"`
	ExamID   uuid.UUID      `db:"exam_id" json:"exam_id"`
	Position int            `db:"position" json:"position"`
	Prompt   string         `db:"prompt" json:"prompt"`
	Kind     string         `db:"kind" json:"kind"`
	Options  pgutil.JSONRaw `db:"options" json:"options,omitempty"`
	Correct  pgutil.JSONRaw `db:"correct" json:"-"`
}

// Session is one user's attempt at an exam
type Session struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	ExamID      uuid.UUID  `db:"exam_id" json:"exam_id"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	Status      string     `db:"status" json:"status"`
	Score       *int       `db:"score" json:"score,omitempty"`
	StartedAt   time.Time  `db:"started_at" json:"started_at"`
	SubmittedAt *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
}

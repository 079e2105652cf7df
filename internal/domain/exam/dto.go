package exam

import (
	"encoding/json"
	"time"
)

// SaveProgressRequest for PUT /exams/sessions/{sessionID}/progress
type SaveProgressRequest struct {
	CurrentQuestionIndex int                        `json:"current_question_index" validate:"min=0"`
	Answers              map[string]json.RawMessage `json:"answers"`
	FlaggedQuestions     []string                   `json:"flagged_questions"`
}

// SubmitRequest for POST /exams/sessions/{sessionID}/submit
type SubmitRequest struct {
	Answers map[string]json.RawMessage `json:"answers" validate:"required"`
}

// ProgressResponse is restored autosave state
type ProgressResponse struct {
	CurrentQuestionIndex int                        `json:"current_question_index"`
	Answers              map[string]json.RawMessage `json:"answers"`
	FlaggedQuestions     []string                   `json:"flagged_questions"`
	SavedAt              time.Time                  `json:"saved_at"`
}

// ResumeResponse for GET /exams/sessions/{sessionID}
type ResumeResponse struct {
	Session   *Session          `json:"session"`
	Exam      *Exam             `json:"exam"`
	Progress  *ProgressResponse `json:"progress,omitempty"`
	Questions []QuestionView    `json:"questions"`
}

// QuestionView is a question without its answer key
type QuestionView struct {
	ID       string          `json:"id"`
	Position int             `json:"position"`
	Prompt   string          `json:"prompt"`
	Kind     string          `json:"kind"`
	Options  json.RawMessage `json:"options,omitempty"`
}

// SubmitResponse for POST /exams/sessions/{sessionID}/submit
type SubmitResponse struct {
	SessionID string `json:"session_id"`
	Score     int    `json:"score"`
	PassScore int    `json:"pass_score"`
	Passed    bool   `json:"passed"`
}

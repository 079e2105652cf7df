package exam

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// freshnessWindow bounds how old a saved progress record may be before
// resume discards it and the session starts fresh.
const freshnessWindow = 24 * time.Hour

// Progress is the autosaved client state of an in-flight exam session.
// Answers are opaque: a value may be a plain string, a {code, language}
// object, a list of option ids or a boolean, depending on question kind.
type Progress struct {
	SessionID            uuid.UUID
	ExamID               uuid.UUID
	UserID               uuid.UUID
	CurrentQuestionIndex int
	Answers              map[string]json.RawMessage
	Flagged              map[string]struct{}
	SavedAt              time.Time
}

// Flag marks a question as flagged for review
func (p *Progress) Flag(questionID string) {
	if p.Flagged == nil {
		p.Flagged = make(map[string]struct{})
	}
	p.Flagged[questionID] = struct{}{}
}

// IsFlagged reports whether a question is flagged
func (p *Progress) IsFlagged(questionID string) bool {
	_, ok := p.Flagged[questionID]
	return ok
}

// FlaggedList returns the flagged set as a slice. Order carries no
// meaning; callers must compare as sets.
func (p *Progress) FlaggedList() []string {
	out := make([]string, 0, len(p.Flagged))
	for q := range p.Flagged {
		out = append(out, q)
	}
	return out
}

// progressRecord is the stored wire form. The field names match the
// web client's own localStorage format so records written by either
// side stay readable by the other.
type progressRecord struct {
	ExamSession progressSession `json:"examSession"`
	Timestamp   int64           `json:"timestamp"`
}

type progressSession struct {
	ID                   string                     `json:"id"`
	ExamID               string                     `json:"examId"`
	UserID               string                     `json:"userId"`
	CurrentQuestionIndex int                        `json:"currentQuestionIndex"`
	Answers              map[string]json.RawMessage `json:"answers"`
	FlaggedQuestions     []string                   `json:"flaggedQuestions"`
}

// encodeProgress serializes a progress snapshot, stamping it with now.
func encodeProgress(p *Progress, now time.Time) ([]byte, error) {
	rec := progressRecord{
		ExamSession: progressSession{
			ID:                   p.SessionID.String(),
			ExamID:               p.ExamID.String(),
			UserID:               p.UserID.String(),
			CurrentQuestionIndex: p.CurrentQuestionIndex,
			Answers:              p.Answers,
			FlaggedQuestions:     p.FlaggedList(),
		},
		Timestamp: now.UnixMilli(),
	}
	return json.Marshal(rec)
}

// decodeProgress parses a stored record. It returns nil whenever the
// session should start fresh: corrupted data, unparseable ids, or a
// record older than the freshness window. It never returns an error;
// a bad record is indistinguishable from an absent one by contract.
func decodeProgress(data []byte, now time.Time) *Progress {
	if len(data) == 0 {
		return nil
	}

	var rec progressRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil
	}

	savedAt := time.UnixMilli(rec.Timestamp)
	if now.Sub(savedAt) > freshnessWindow {
		return nil
	}

	sessionID, err := uuid.Parse(rec.ExamSession.ID)
	if err != nil {
		return nil
	}
	examID, err := uuid.Parse(rec.ExamSession.ExamID)
	if err != nil {
		return nil
	}
	userID, err := uuid.Parse(rec.ExamSession.UserID)
	if err != nil {
		return nil
	}

	flagged := make(map[string]struct{}, len(rec.ExamSession.FlaggedQuestions))
	for _, q := range rec.ExamSession.FlaggedQuestions {
		flagged[q] = struct{}{}
	}

	answers := rec.ExamSession.Answers
	if answers == nil {
		answers = map[string]json.RawMessage{}
	}

	return &Progress{
		SessionID:            sessionID,
		ExamID:               examID,
		UserID:               userID,
		CurrentQuestionIndex: rec.ExamSession.CurrentQuestionIndex,
		Answers:              answers,
		Flagged:              flagged,
		SavedAt:              savedAt,
	}
}

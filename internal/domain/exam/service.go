package exam

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/coduxa/coduxa-api/internal/domain/activity"
	"github.com/coduxa/coduxa-api/internal/domain/credits"
)

// ResultReporter receives finished exam results (leaderboard)
type ResultReporter interface {
	RecordResult(ctx context.Context, userID uuid.UUID, examID uuid.UUID, score int) error
}

// CertificateIssuer issues a certificate for a passed exam
type CertificateIssuer interface {
	IssueForExam(ctx context.Context, userID, examID uuid.UUID, score int) error
}

// Service handles exam lifecycle business logic
type Service struct {
	repo       Repository
	credits    credits.Service
	store      ProgressStore
	throttle   *saveThrottle
	activities activity.Recorder // nil disables activity logging

	// both optional; a missing reporter or issuer only skips the
	// corresponding post-submit side effect
	leaderboard ResultReporter
	certs       CertificateIssuer
}

// NewService creates exam service
func NewService(
	repo Repository,
	creditsService credits.Service,
	store ProgressStore,
	saveInterval time.Duration,
	activities activity.Recorder,
	leaderboard ResultReporter,
	certs CertificateIssuer,
) *Service {
	return &Service{
		repo:        repo,
		credits:     creditsService,
		store:       store,
		throttle:    newSaveThrottle(saveInterval),
		activities:  activities,
		leaderboard: leaderboard,
		certs:       certs,
	}
}

// ListExams returns the exam catalog
func (s *Service) ListExams(ctx context.Context) ([]Exam, error) {
	return s.repo.ListExams(ctx)
}

// GetExam returns one exam by id
func (s *Service) GetExam(ctx context.Context, id uuid.UUID) (*Exam, error) {
	return s.repo.GetExam(ctx, id)
}

// Start charges the exam's credit cost and opens a new session.
// The spend is atomic; an insufficient balance surfaces as
// credits.ErrInsufficientCredits and no session is created.
func (s *Service) Start(ctx context.Context, userID, examID uuid.UUID) (*Session, error) {
	e, err := s.repo.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:        uuid.New(),
		ExamID:    e.ID,
		UserID:    userID,
		Status:    StatusInProgress,
		StartedAt: time.Now(),
	}

	if e.CreditCost > 0 {
		err := s.credits.Spend(ctx, userID, e.CreditCost, credits.TransactionMeta{
			RelatedEntityType: "exam_session",
			RelatedEntityID:   session.ID.String(),
			Description:       "Exam started: " + e.Title,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	s.recordUsage(ctx, userID, e, session)
	return session, nil
}

// SaveProgress persists the client's current exam state. Saves are
// throttled per session with a leading edge: the first save in each
// window lands, the rest are dropped. A dropped or failed save is
// silent; the client will be back within a second with newer state.
func (s *Service) SaveProgress(ctx context.Context, userID, sessionID uuid.UUID, req *SaveProgressRequest) error {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if session.Status != StatusInProgress {
		return ErrSessionClosed
	}

	if !s.throttle.allow(sessionID) {
		return nil
	}

	flagged := make(map[string]struct{}, len(req.FlaggedQuestions))
	for _, q := range req.FlaggedQuestions {
		flagged[q] = struct{}{}
	}

	p := &Progress{
		SessionID:            sessionID,
		ExamID:               session.ExamID,
		UserID:               userID,
		CurrentQuestionIndex: req.CurrentQuestionIndex,
		Answers:              req.Answers,
		Flagged:              flagged,
	}

	if err := s.store.Save(ctx, p); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("progress save failed")
	}
	return nil
}

// Resume returns the session with its exam, questions and any restored
// progress. Absent, corrupted or stale progress means a fresh start.
func (s *Service) Resume(ctx context.Context, userID, sessionID uuid.UUID) (*ResumeResponse, error) {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	e, err := s.repo.GetExam(ctx, session.ExamID)
	if err != nil {
		return nil, err
	}

	questions, err := s.repo.ListQuestions(ctx, session.ExamID)
	if err != nil {
		return nil, err
	}

	resp := &ResumeResponse{
		Session:   session,
		Exam:      e,
		Questions: toQuestionViews(questions),
	}

	progress, err := s.store.Load(ctx, sessionID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("progress load failed, starting fresh")
		return resp, nil
	}
	if progress != nil {
		resp.Progress = &ProgressResponse{
			CurrentQuestionIndex: progress.CurrentQuestionIndex,
			Answers:              progress.Answers,
			FlaggedQuestions:     progress.FlaggedList(),
			SavedAt:              progress.SavedAt,
		}
	}
	return resp, nil
}

// Submit grades the session, closes it and runs post-submit effects.
// Progress removal, leaderboard reporting and certificate issuance are
// all best-effort; the recorded score is the source of truth.
func (s *Service) Submit(ctx context.Context, userID, sessionID uuid.UUID, req *SubmitRequest) (*SubmitResponse, error) {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != StatusInProgress {
		return nil, ErrSessionClosed
	}

	e, err := s.repo.GetExam(ctx, session.ExamID)
	if err != nil {
		return nil, err
	}

	questions, err := s.repo.ListQuestions(ctx, session.ExamID)
	if err != nil {
		return nil, err
	}

	score := scoreAnswers(questions, req.Answers)
	if err := s.repo.SubmitSession(ctx, sessionID, score, time.Now()); err != nil {
		return nil, err
	}

	if err := s.store.Remove(ctx, sessionID); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("progress cleanup failed")
	}
	s.throttle.forget(sessionID)

	if s.leaderboard != nil {
		if err := s.leaderboard.RecordResult(ctx, userID, e.ID, score); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("leaderboard update failed")
		}
	}

	passed := score >= e.PassScore
	if passed && s.certs != nil {
		if err := s.certs.IssueForExam(ctx, userID, e.ID, score); err != nil {
			log.Error().Err(err).Str("session_id", sessionID.String()).Msg("certificate issuance failed")
		}
	}

	return &SubmitResponse{
		SessionID: sessionID.String(),
		Score:     score,
		PassScore: e.PassScore,
		Passed:    passed,
	}, nil
}

// Abandon closes a session the user walked away from and clears its
// saved progress. A failed removal is swallowed; the stored record
// would be judged stale on its own.
func (s *Service) Abandon(ctx context.Context, userID, sessionID uuid.UUID) error {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if session.Status != StatusInProgress {
		return ErrSessionClosed
	}

	if err := s.repo.AbandonSession(ctx, sessionID); err != nil {
		return err
	}

	if err := s.store.Remove(ctx, sessionID); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("progress cleanup failed")
	}
	s.throttle.forget(sessionID)
	return nil
}

// MySessions lists the user's exam attempts
func (s *Service) MySessions(ctx context.Context, userID uuid.UUID) ([]Session, error) {
	return s.repo.ListSessionsByUser(ctx, userID)
}

// ownedSession loads a session and hides other users' sessions behind
// not-found.
func (s *Service) ownedSession(ctx context.Context, userID, sessionID uuid.UUID) (*Session, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *Service) recordUsage(ctx context.Context, userID uuid.UUID, e *Exam, session *Session) {
	if s.activities == nil {
		return
	}
	amount := -e.CreditCost
	entry := &activity.Entry{
		ID:          uuid.New(),
		Type:        activity.TypeCreditUsage,
		UserID:      userID.String(),
		Amount:      &amount,
		Description: "Started exam: " + e.Title,
		CreatedAt:   time.Now(),
	}
	if err := s.activities.Insert(ctx, entry); err != nil {
		log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("failed to record exam activity")
	}
}

func toQuestionViews(questions []Question) []QuestionView {
	views := make([]QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, QuestionView{
			ID:       q.ID,
			Position: q.Position,
			Prompt:   q.Prompt,
			Kind:     q.Kind,
			Options:  json.RawMessage(q.Options),
		})
	}
	return views
}

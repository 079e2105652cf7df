package exam

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/coduxa/coduxa-api/internal/domain/activity"
	"github.com/coduxa/coduxa-api/internal/domain/credits"
)

/* =========================
   Fakes
   ========================= */

type fakeExamRepo struct {
	exams     map[uuid.UUID]*Exam
	questions map[uuid.UUID][]Question
	sessions  map[uuid.UUID]*Session
}

func newFakeExamRepo() *fakeExamRepo {
	return &fakeExamRepo{
		exams:     map[uuid.UUID]*Exam{},
		questions: map[uuid.UUID][]Question{},
		sessions:  map[uuid.UUID]*Session{},
	}
}

func (f *fakeExamRepo) ListExams(ctx context.Context) ([]Exam, error) {
	var out []Exam
	for _, e := range f.exams {
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeExamRepo) GetExam(ctx context.Context, id uuid.UUID) (*Exam, error) {
	e, ok := f.exams[id]
	if !ok {
		return nil, ErrExamNotFound
	}
	return e, nil
}

func (f *fakeExamRepo) ListQuestions(ctx context.Context, examID uuid.UUID) ([]Question, error) {
	return f.questions[examID], nil
}

func (f *fakeExamRepo) CreateSession(ctx context.Context, s *Session) error {
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeExamRepo) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeExamRepo) SubmitSession(ctx context.Context, id uuid.UUID, score int, submittedAt time.Time) error {
	s, ok := f.sessions[id]
	if !ok || s.Status != StatusInProgress {
		return ErrSessionClosed
	}
	s.Status = StatusSubmitted
	s.Score = &score
	s.SubmittedAt = &submittedAt
	return nil
}

func (f *fakeExamRepo) AbandonSession(ctx context.Context, id uuid.UUID) error {
	s, ok := f.sessions[id]
	if !ok || s.Status != StatusInProgress {
		return ErrSessionClosed
	}
	s.Status = StatusExpired
	return nil
}

func (f *fakeExamRepo) ListSessionsByUser(ctx context.Context, userID uuid.UUID) ([]Session, error) {
	var out []Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

// stubProgressStore keeps progress in a map, mirroring the Redis
// store's fresh-on-absent contract.
type stubProgressStore struct {
	records map[uuid.UUID]*Progress
	saveErr error
	saves   int
}

func newStubProgressStore() *stubProgressStore {
	return &stubProgressStore{records: map[uuid.UUID]*Progress{}}
}

func (m *stubProgressStore) Save(ctx context.Context, p *Progress) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.records[p.SessionID] = p
	return nil
}

func (m *stubProgressStore) Load(ctx context.Context, sessionID uuid.UUID) (*Progress, error) {
	return m.records[sessionID], nil
}

func (m *stubProgressStore) Remove(ctx context.Context, sessionID uuid.UUID) error {
	delete(m.records, sessionID)
	return nil
}

type fakeCredits struct {
	balances map[uuid.UUID]int
	spends   []int
}

func (f *fakeCredits) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	return f.balances[userID], nil
}

func (f *fakeCredits) Add(ctx context.Context, userID uuid.UUID, amount int, txType credits.TxType, meta credits.TransactionMeta) error {
	f.balances[userID] += amount
	return nil
}

func (f *fakeCredits) Spend(ctx context.Context, userID uuid.UUID, amount int, meta credits.TransactionMeta) error {
	if f.balances[userID] < amount {
		return credits.ErrInsufficientCredits
	}
	f.balances[userID] -= amount
	f.spends = append(f.spends, amount)
	return nil
}

func (f *fakeCredits) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]credits.Transaction, error) {
	return nil, nil
}

func (f *fakeCredits) SearchTransactions(ctx context.Context, filters credits.SearchFilters) ([]credits.Transaction, error) {
	return nil, nil
}

type fakeReporter struct {
	results []int
	err     error
}

func (f *fakeReporter) RecordResult(ctx context.Context, userID, examID uuid.UUID, score int) error {
	if f.err != nil {
		return f.err
	}
	f.results = append(f.results, score)
	return nil
}

type fakeIssuer struct {
	issued []int
}

func (f *fakeIssuer) IssueForExam(ctx context.Context, userID, examID uuid.UUID, score int) error {
	f.issued = append(f.issued, score)
	return nil
}

type fakeActivities struct {
	entries []*activity.Entry
}

func (f *fakeActivities) Insert(ctx context.Context, e *activity.Entry) error {
	f.entries = append(f.entries, e)
	return nil
}

/* =========================
   Fixture
   ========================= */

type examFixture struct {
	svc      *Service
	repo     *fakeExamRepo
	store    *stubProgressStore
	credits  *fakeCredits
	reporter *fakeReporter
	issuer   *fakeIssuer
	acts     *fakeActivities
	exam     *Exam
	userID   uuid.UUID
}

func newExamFixture(t *testing.T, balance int) *examFixture {
	t.Helper()

	repo := newFakeExamRepo()
	store := newStubProgressStore()
	reporter := &fakeReporter{}
	issuer := &fakeIssuer{}
	acts := &fakeActivities{}
	userID := uuid.New()
	creditsSvc := &fakeCredits{balances: map[uuid.UUID]int{userID: balance}}

	e := &Exam{
		ID:         uuid.New(),
		Slug:       "go-basics",
		Title:      "Go Basics",
		Difficulty: "beginner",
		CreditCost: 5,
		PassScore:  70,
	}
	repo.exams[e.ID] = e
	repo.questions[e.ID] = []Question{
		{ID: "1", ExamID: e.ID, Position: 1, Kind: KindSingleChoice, Correct: []byte(`"b"`)},
		{ID: "2", ExamID: e.ID, Position: 2, Kind: KindMultiChoice, Correct: []byte(`["a","c"]`)},
		{ID: "3", ExamID: e.ID, Position: 3, Kind: KindBoolean, Correct: []byte(`true`)},
		{ID: "4", ExamID: e.ID, Position: 4, Kind: KindSingleChoice, Correct: []byte(`"d"`)},
	}

	svc := NewService(repo, creditsSvc, store, time.Second, acts, reporter, issuer)

	return &examFixture{
		svc: svc, repo: repo, store: store, credits: creditsSvc,
		reporter: reporter, issuer: issuer, acts: acts, exam: e, userID: userID,
	}
}

func (f *examFixture) startSession(t *testing.T) *Session {
	t.Helper()
	session, err := f.svc.Start(context.Background(), f.userID, f.exam.ID)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	return session
}

/* =========================
   Tests
   ========================= */

func TestStartSpendsCredits(t *testing.T) {
	f := newExamFixture(t, 10)

	session := f.startSession(t)

	if f.credits.balances[f.userID] != 5 {
		t.Fatalf("expected 5 credits left, got %d", f.credits.balances[f.userID])
	}
	if session.Status != StatusInProgress {
		t.Fatalf("expected in_progress session, got %q", session.Status)
	}
	if len(f.acts.entries) != 1 || f.acts.entries[0].Type != activity.TypeCreditUsage {
		t.Fatalf("expected one credit_usage entry, got %+v", f.acts.entries)
	}
}

func TestStartInsufficientCredits(t *testing.T) {
	f := newExamFixture(t, 3)

	_, err := f.svc.Start(context.Background(), f.userID, f.exam.ID)
	if !errors.Is(err, credits.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if len(f.repo.sessions) != 0 {
		t.Fatal("no session may exist after a failed spend")
	}
}

func TestSaveProgressThrottled(t *testing.T) {
	f := newExamFixture(t, 10)
	session := f.startSession(t)

	now := time.Now()
	f.svc.throttle.now = func() time.Time { return now }

	req := &SaveProgressRequest{
		CurrentQuestionIndex: 1,
		Answers:              map[string]json.RawMessage{"1": json.RawMessage(`"b"`)},
		FlaggedQuestions:     []string{"2"},
	}

	if err := f.svc.SaveProgress(context.Background(), f.userID, session.ID, req); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if f.store.saves != 1 {
		t.Fatalf("expected 1 stored save, got %d", f.store.saves)
	}

	// inside the window: accepted, silently dropped
	now = now.Add(400 * time.Millisecond)
	if err := f.svc.SaveProgress(context.Background(), f.userID, session.ID, req); err != nil {
		t.Fatalf("throttled save must not error: %v", err)
	}
	if f.store.saves != 1 {
		t.Fatalf("throttled save must not hit the store, got %d saves", f.store.saves)
	}

	now = now.Add(time.Second)
	if err := f.svc.SaveProgress(context.Background(), f.userID, session.ID, req); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if f.store.saves != 2 {
		t.Fatalf("expected 2 stored saves, got %d", f.store.saves)
	}
}

func TestSaveProgressStoreFailureSilent(t *testing.T) {
	f := newExamFixture(t, 10)
	session := f.startSession(t)
	f.store.saveErr = errors.New("redis down")

	err := f.svc.SaveProgress(context.Background(), f.userID, session.ID, &SaveProgressRequest{})
	if err != nil {
		t.Fatalf("a failed background save must stay silent, got %v", err)
	}
}

func TestSaveProgressWrongUser(t *testing.T) {
	f := newExamFixture(t, 10)
	session := f.startSession(t)

	err := f.svc.SaveProgress(context.Background(), uuid.New(), session.ID, &SaveProgressRequest{})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("foreign session must read as not found, got %v", err)
	}
}

func TestResumeRestoresProgress(t *testing.T) {
	f := newExamFixture(t, 10)
	session := f.startSession(t)

	req := &SaveProgressRequest{
		CurrentQuestionIndex: 2,
		Answers: map[string]json.RawMessage{
			"1": json.RawMessage(`"b"`),
			"2": json.RawMessage(`["a","c"]`),
		},
		FlaggedQuestions: []string{"1", "3"},
	}
	if err := f.svc.SaveProgress(context.Background(), f.userID, session.ID, req); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	resp, err := f.svc.Resume(context.Background(), f.userID, session.ID)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if resp.Progress == nil {
		t.Fatal("expected restored progress")
	}
	if resp.Progress.CurrentQuestionIndex != 2 {
		t.Fatalf("expected index 2, got %d", resp.Progress.CurrentQuestionIndex)
	}
	flagged := map[string]bool{}
	for _, q := range resp.Progress.FlaggedQuestions {
		flagged[q] = true
	}
	if len(flagged) != 2 || !flagged["1"] || !flagged["3"] {
		t.Fatalf("flag set did not survive: %v", resp.Progress.FlaggedQuestions)
	}
	if len(resp.Questions) != 4 {
		t.Fatalf("expected 4 questions, got %d", len(resp.Questions))
	}
}

func TestResumeFreshWhenNoProgress(t *testing.T) {
	f := newExamFixture(t, 10)
	session := f.startSession(t)

	resp, err := f.svc.Resume(context.Background(), f.userID, session.ID)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if resp.Progress != nil {
		t.Fatalf("expected fresh start, got %+v", resp.Progress)
	}
}

func TestSubmitScoresAndCleansUp(t *testing.T) {
	f := newExamFixture(t, 10)
	session := f.startSession(t)

	if err := f.svc.SaveProgress(context.Background(), f.userID, session.ID, &SaveProgressRequest{}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// 3 of 4 correct; multi-choice answer arrives in a different order
	result, err := f.svc.Submit(context.Background(), f.userID, session.ID, &SubmitRequest{
		Answers: map[string]json.RawMessage{
			"1": json.RawMessage(`"b"`),
			"2": json.RawMessage(`["c","a"]`),
			"3": json.RawMessage(`true`),
			"4": json.RawMessage(`"a"`),
		},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if result.Score != 75 {
		t.Fatalf("expected score 75, got %d", result.Score)
	}
	if !result.Passed {
		t.Fatal("75 against a pass score of 70 must pass")
	}
	if _, ok := f.store.records[session.ID]; ok {
		t.Fatal("progress must be removed on submit")
	}
	if len(f.reporter.results) != 1 || f.reporter.results[0] != 75 {
		t.Fatalf("expected leaderboard report of 75, got %v", f.reporter.results)
	}
	if len(f.issuer.issued) != 1 {
		t.Fatalf("expected a certificate for a passed exam, got %v", f.issuer.issued)
	}
}

func TestSubmitFailingScoreNoCertificate(t *testing.T) {
	f := newExamFixture(t, 10)
	session := f.startSession(t)

	result, err := f.svc.Submit(context.Background(), f.userID, session.ID, &SubmitRequest{
		Answers: map[string]json.RawMessage{"1": json.RawMessage(`"b"`)},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.Passed {
		t.Fatalf("score %d must not pass", result.Score)
	}
	if len(f.issuer.issued) != 0 {
		t.Fatal("no certificate for a failed exam")
	}
	if len(f.reporter.results) != 1 {
		t.Fatal("failed exams still report to the leaderboard")
	}
}

func TestSubmitTwiceRejected(t *testing.T) {
	f := newExamFixture(t, 10)
	session := f.startSession(t)

	req := &SubmitRequest{Answers: map[string]json.RawMessage{}}
	if _, err := f.svc.Submit(context.Background(), f.userID, session.ID, req); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if _, err := f.svc.Submit(context.Background(), f.userID, session.ID, req); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestAbandonClosesSessionAndClearsProgress(t *testing.T) {
	f := newExamFixture(t, 10)
	session := f.startSession(t)

	if err := f.svc.SaveProgress(context.Background(), f.userID, session.ID, &SaveProgressRequest{
		Answers: map[string]json.RawMessage{"1": json.RawMessage(`"b"`)},
	}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if err := f.svc.Abandon(context.Background(), f.userID, session.ID); err != nil {
		t.Fatalf("abandon failed: %v", err)
	}

	if f.repo.sessions[session.ID].Status != StatusExpired {
		t.Fatalf("expected expired session, got %q", f.repo.sessions[session.ID].Status)
	}
	if _, ok := f.store.records[session.ID]; ok {
		t.Fatal("progress must be removed on abandon")
	}
}

func TestAbandonWrongUser(t *testing.T) {
	f := newExamFixture(t, 10)
	session := f.startSession(t)

	err := f.svc.Abandon(context.Background(), uuid.New(), session.ID)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("foreign session must read as not found, got %v", err)
	}
}

func TestAbandonAfterSubmitRejected(t *testing.T) {
	f := newExamFixture(t, 10)
	session := f.startSession(t)

	if _, err := f.svc.Submit(context.Background(), f.userID, session.ID, &SubmitRequest{
		Answers: map[string]json.RawMessage{},
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if err := f.svc.Abandon(context.Background(), f.userID, session.ID); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestSubmitReporterFailureNonFatal(t *testing.T) {
	f := newExamFixture(t, 10)
	session := f.startSession(t)
	f.reporter.err = errors.New("redis down")

	if _, err := f.svc.Submit(context.Background(), f.userID, session.ID, &SubmitRequest{
		Answers: map[string]json.RawMessage{},
	}); err != nil {
		t.Fatalf("a leaderboard failure must not fail the submit: %v", err)
	}
}

package certificate

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type fakeRepo struct {
	certs     map[uuid.UUID]*Certificate
	insertErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{certs: map[uuid.UUID]*Certificate{}}
}

func (f *fakeRepo) Insert(ctx context.Context, c *Certificate) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	copied := *c
	f.certs[c.ID] = &copied
	return nil
}

func (f *fakeRepo) UpdateArtifactURL(ctx context.Context, id uuid.UUID, url string) error {
	if c, ok := f.certs[id]; ok {
		c.ArtifactURL = url
	}
	return nil
}

func (f *fakeRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]Certificate, error) {
	var out []Certificate
	for _, c := range f.certs {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetBySerial(ctx context.Context, serial string) (*Certificate, error) {
	for _, c := range f.certs {
		if c.Serial == serial {
			copied := *c
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.certs[id]; !ok {
		return ErrNotFound
	}
	delete(f.certs, id)
	return nil
}

type fakeStorage struct {
	objects   map[string][]byte
	putErr    error
	deleteErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (f *fakeStorage) Put(ctx context.Context, key string, reader io.Reader, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeStorage) PublicURL(key string) string {
	return "https://certs.example.com/" + key
}

func TestIssueForExam(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeStorage()
	svc := NewService(repo, store)

	userID := uuid.New()
	if err := svc.IssueForExam(context.Background(), userID, uuid.New(), 85); err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	certs, _ := svc.ListByUser(context.Background(), userID)
	if len(certs) != 1 {
		t.Fatalf("expected 1 certificate, got %d", len(certs))
	}
	cert := certs[0]

	if cert.Score != 85 {
		t.Fatalf("expected score 85, got %d", cert.Score)
	}
	if !strings.HasPrefix(cert.Serial, "CDX-") {
		t.Fatalf("unexpected serial format: %q", cert.Serial)
	}
	if cert.ArtifactURL == "" {
		t.Fatal("expected an artifact URL after a successful upload")
	}
	if len(store.objects) != 1 {
		t.Fatalf("expected 1 uploaded artifact, got %d", len(store.objects))
	}
}

func TestIssueUploadFailureNonFatal(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeStorage()
	store.putErr = errors.New("bucket unavailable")
	svc := NewService(repo, store)

	userID := uuid.New()
	if err := svc.IssueForExam(context.Background(), userID, uuid.New(), 90); err != nil {
		t.Fatalf("a failed upload must not fail issuance: %v", err)
	}

	certs, _ := svc.ListByUser(context.Background(), userID)
	if len(certs) != 1 {
		t.Fatalf("expected the certificate row regardless, got %d", len(certs))
	}
	if certs[0].ArtifactURL != "" {
		t.Fatal("no artifact URL without a successful upload")
	}
}

func TestIssueWithoutStorage(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	if err := svc.IssueForExam(context.Background(), uuid.New(), uuid.New(), 70); err != nil {
		t.Fatalf("issue without storage failed: %v", err)
	}
}

func TestRevokeDeletesRowAndArtifact(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeStorage()
	svc := NewService(repo, store)

	userID := uuid.New()
	if err := svc.IssueForExam(context.Background(), userID, uuid.New(), 85); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	certs, _ := svc.ListByUser(context.Background(), userID)
	serial := certs[0].Serial

	if err := svc.Revoke(context.Background(), strings.ToLower(serial)); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	if _, err := svc.Verify(context.Background(), serial); !errors.Is(err, ErrNotFound) {
		t.Fatalf("revoked certificate must not verify, got %v", err)
	}
	if len(store.objects) != 0 {
		t.Fatalf("expected artifact removed, %d objects remain", len(store.objects))
	}
}

func TestRevokeArtifactDeleteFailureNonFatal(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeStorage()
	svc := NewService(repo, store)

	userID := uuid.New()
	if err := svc.IssueForExam(context.Background(), userID, uuid.New(), 85); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	certs, _ := svc.ListByUser(context.Background(), userID)
	store.deleteErr = errors.New("bucket unavailable")

	if err := svc.Revoke(context.Background(), certs[0].Serial); err != nil {
		t.Fatalf("a failed artifact delete must not fail revocation: %v", err)
	}
	if _, err := svc.Verify(context.Background(), certs[0].Serial); !errors.Is(err, ErrNotFound) {
		t.Fatal("row delete is authoritative regardless of the artifact")
	}
}

func TestRevokeUnknownSerial(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	if err := svc.Revoke(context.Background(), "CDX-2026-DOESNOTEX"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVerifyNormalizesSerial(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	userID := uuid.New()
	if err := svc.IssueForExam(context.Background(), userID, uuid.New(), 80); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	certs, _ := svc.ListByUser(context.Background(), userID)
	serial := certs[0].Serial

	got, err := svc.Verify(context.Background(), "  "+strings.ToLower(serial)+" ")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if got.Serial != serial {
		t.Fatalf("expected %q, got %q", serial, got.Serial)
	}

	if _, err := svc.Verify(context.Background(), "CDX-2026-DOESNOTEX"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

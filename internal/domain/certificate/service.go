package certificate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/coduxa/coduxa-api/internal/pkg/storage"
)

// Service issues and serves certificates
type Service struct {
	repo  Repository
	store storage.Storage // nil disables artifact upload
}

// NewService creates certificate service
func NewService(repo Repository, store storage.Storage) *Service {
	return &Service{repo: repo, store: store}
}

// IssueForExam creates a certificate for a passed exam and uploads a
// JSON artifact. The row insert is the only required step; a failed
// upload leaves the certificate valid with no artifact URL.
// Implements the exam service's CertificateIssuer.
func (s *Service) IssueForExam(ctx context.Context, userID, examID uuid.UUID, score int) error {
	now := time.Now()
	cert := &Certificate{
		ID:       uuid.New(),
		UserID:   userID,
		ExamID:   examID,
		Score:    score,
		Serial:   newSerial(now),
		IssuedAt: now,
	}

	if err := s.repo.Insert(ctx, cert); err != nil {
		return err
	}

	s.uploadArtifact(ctx, cert)
	return nil
}

// ListByUser returns a user's certificates
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]Certificate, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Verify resolves a certificate by its public serial
func (s *Service) Verify(ctx context.Context, serial string) (*Certificate, error) {
	return s.repo.GetBySerial(ctx, strings.ToUpper(strings.TrimSpace(serial)))
}

// Revoke removes a certificate and its published artifact. The row
// delete is authoritative; artifact removal is best-effort.
func (s *Service) Revoke(ctx context.Context, serial string) error {
	cert, err := s.Verify(ctx, serial)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, cert.ID); err != nil {
		return err
	}

	if s.store != nil {
		if err := s.store.Delete(ctx, artifactKey(cert.Serial)); err != nil {
			log.Warn().Err(err).Str("serial", cert.Serial).Msg("certificate artifact delete failed")
		}
	}
	return nil
}

func (s *Service) uploadArtifact(ctx context.Context, cert *Certificate) {
	if s.store == nil {
		return
	}

	artifact, err := json.Marshal(map[string]interface{}{
		"serial":    cert.Serial,
		"user_id":   cert.UserID,
		"exam_id":   cert.ExamID,
		"score":     cert.Score,
		"issued_at": cert.IssuedAt,
	})
	if err != nil {
		log.Error().Err(err).Str("serial", cert.Serial).Msg("certificate artifact encode failed")
		return
	}

	key := artifactKey(cert.Serial)
	if err := s.store.Put(ctx, key, bytes.NewReader(artifact), "application/json"); err != nil {
		log.Warn().Err(err).Str("serial", cert.Serial).Msg("certificate artifact upload failed")
		return
	}

	url := s.store.PublicURL(key)
	cert.ArtifactURL = url
	if err := s.repo.UpdateArtifactURL(ctx, cert.ID, url); err != nil {
		log.Warn().Err(err).Str("serial", cert.Serial).Msg("certificate artifact url update failed")
	}
}

func artifactKey(serial string) string {
	return fmt.Sprintf("certificates/%s.json", serial)
}

// newSerial builds a short human-readable serial like CDX-2026-1A2B3C4D
func newSerial(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("CDX-%d-%s", now.Year(), suffix)
}

package certificate

import (
	"time"

	"github.com/google/uuid"
)

// Certificate records a passed exam. The database row is the source of
// truth; the uploaded artifact is a convenience copy.
type Certificate struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	ExamID      uuid.UUID `db:"exam_id" json:"exam_id"`
	Score       int       `db:"score" json:"score"`
	Serial      string    `db:"serial" json:"serial"`
	IssuedAt    time.Time `db:"issued_at" json:"issued_at"`
	ArtifactURL string    `db:"artifact_url" json:"artifact_url,omitempty"`
}

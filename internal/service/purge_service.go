package service

import (
	"alcyxob/checkin-scheduler/internal/domain"
	"alcyxob/checkin-scheduler/internal/repository"
	"alcyxob/checkin-scheduler/internal/telemetry"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// MaxPurgeBatch bounds a single purge request.
const MaxPurgeBatch = 500

// Archiver stores a snapshot of records before they are hard-deleted.
type Archiver interface {
	ArchiveCheckIns(ctx context.Context, batchID string, records []domain.CheckIn) (string, error)
	DownloadURL(ctx context.Context, key string) (string, error)
}

// PurgeReport is the partial-success tally of a purge.
type PurgeReport struct {
	BatchID    string                     `json:"batchId"`
	Requested  int                        `json:"requested"`
	Deleted    int                        `json:"deleted"`
	Failed     int                        `json:"failed"`
	DeletedIDs []string                   `json:"deletedIds"`
	Failures   []repository.DeleteFailure `json:"failures"`
	ArchiveKey string                     `json:"archiveKey,omitempty"`
	ArchiveURL string                     `json:"archiveUrl,omitempty"`
}

// PurgeService hard-deletes check-ins in bulk. Admin only.
type PurgeService interface {
	Purge(ctx context.Context, actor domain.Actor, ids []string) (*PurgeReport, error)
}

type purgeService struct {
	checkInRepo repository.CheckInRepository
	archiver    Archiver
}

// NewPurgeService creates a new PurgeService. archiver may be nil, in which
// case nothing is archived.
func NewPurgeService(checkInRepo repository.CheckInRepository, archiver Archiver) PurgeService {
	return &purgeService{checkInRepo: checkInRepo, archiver: archiver}
}

func (s *purgeService) Purge(ctx context.Context, actor domain.Actor, ids []string) (_ *PurgeReport, err error) {
	ctx, span := tracer.Start(ctx, "PurgeService.Purge")
	defer func() { finishSpan(span, err) }()

	if !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}

	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no check-in ids given", ErrInvalidRequest)
	}
	if len(ids) > MaxPurgeBatch {
		return nil, fmt.Errorf("%w: at most %d ids per purge", ErrInvalidRequest, MaxPurgeBatch)
	}

	report := &PurgeReport{BatchID: uuid.NewString(), Requested: len(ids)}
	span.SetAttributes(attribute.String("batch_id", report.BatchID), attribute.Int("requested", len(ids)))

	// 1. Snapshot what still exists. Unknown ids surface later as delete failures.
	if s.archiver != nil {
		records := make([]domain.CheckIn, 0, len(ids))
		for _, id := range ids {
			checkIn, err := s.checkInRepo.GetByID(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					continue
				}
				return nil, fmt.Errorf("read %s for archive: %w", id, err)
			}
			records = append(records, *checkIn)
		}

		if len(records) > 0 {
			key, err := s.archiver.ArchiveCheckIns(ctx, report.BatchID, records)
			if err != nil {
				return nil, fmt.Errorf("archive purge batch: %w", err)
			}
			report.ArchiveKey = key

			if url, err := s.archiver.DownloadURL(ctx, key); err != nil {
				slog.WarnContext(ctx, "Could not presign purge archive", "key", key, "error", err)
			} else {
				report.ArchiveURL = url
			}
		}
	}

	// 2. Delete each id on its own
	result := s.checkInRepo.DeleteMany(ctx, ids)
	report.DeletedIDs = result.Deleted
	report.Failures = result.Failed
	report.Deleted = len(result.Deleted)
	report.Failed = len(result.Failed)

	telemetry.PurgedTotal.WithLabelValues("deleted").Add(float64(report.Deleted))
	telemetry.PurgedTotal.WithLabelValues("failed").Add(float64(report.Failed))

	slog.InfoContext(ctx, "Purge finished",
		"batch_id", report.BatchID,
		"admin_id", actor.ID,
		"requested", report.Requested,
		"deleted", report.Deleted,
		"failed", report.Failed,
	)
	return report, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getplaybook/playbook/pkg/persistence"
)

// SweepReport summarizes one retention pass.
type SweepReport struct {
	TemplatesPurged int `json:"templates_purged"`
	DraftsPurged    int `json:"drafts_purged"`
}

// Sweeper enforces retention: soft-deleted templates past the retention
// window are removed for good, along with draft instances that were never
// started.
type Sweeper struct {
	persistence       persistence.Persistence
	templateRetention time.Duration
	draftRetention    time.Duration
	logger            *slog.Logger
	now               func() time.Time
}

// NewSweeper creates a retention sweeper.
func NewSweeper(persistence persistence.Persistence, templateRetention, draftRetention time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		persistence:       persistence,
		templateRetention: templateRetention,
		draftRetention:    draftRetention,
		logger:            logger,
		now:               time.Now,
	}
}

// Sweep runs one retention pass. A template that fails to purge is logged
// and skipped so one bad row does not block the rest.
func (s *Sweeper) Sweep(ctx context.Context) (*SweepReport, error) {
	report := &SweepReport{}
	now := s.now().UTC()

	expired, err := s.persistence.Templates().ListDeletedBefore(ctx, now.Add(-s.templateRetention))
	if err != nil {
		return nil, fmt.Errorf("failed to list expired templates: %w", err)
	}

	for _, template := range expired {
		if err := s.persistence.Templates().HardDelete(ctx, template.ID); err != nil {
			s.logger.ErrorContext(ctx, "failed to purge template",
				"template_id", template.ID, "error", err)

			continue
		}

		report.TemplatesPurged++
	}

	drafts, err := s.persistence.Instances().DeleteDraftsBefore(ctx, now.Add(-s.draftRetention))
	if err != nil {
		return nil, fmt.Errorf("failed to purge stale draft instances: %w", err)
	}

	report.DraftsPurged = drafts

	s.logger.InfoContext(ctx, "retention sweep completed",
		"templates_purged", report.TemplatesPurged, "drafts_purged", report.DraftsPurged)

	return report, nil
}

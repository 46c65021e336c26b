package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/getplaybook/playbook/pkg/models"
	"github.com/getplaybook/playbook/pkg/persistence"
)

const trailingMonths = 12

// Analytics aggregates instance outcomes per template.
type Analytics struct {
	persistence persistence.Persistence
	now         func() time.Time
}

// NewAnalytics creates an analytics aggregator.
func NewAnalytics(persistence persistence.Persistence) *Analytics {
	return &Analytics{persistence: persistence, now: time.Now}
}

// MonthlyUsage counts instances created and completed within one calendar
// month.
type MonthlyUsage struct {
	Month     string `json:"month"` // formatted "2006-01"
	Created   int    `json:"created"`
	Completed int    `json:"completed"`
}

// TemplateAnalytics summarizes all instances of one template.
type TemplateAnalytics struct {
	TemplateID                   string         `json:"template_id"`
	TotalInstances               int            `json:"total_instances"`
	CompletedInstances           int            `json:"completed_instances"`
	CompletionRate               float64        `json:"completion_rate"` // percentage, 2 decimals
	AverageCompletionTimeMinutes float64        `json:"average_completion_time_minutes"`
	UsageByMonth                 []MonthlyUsage `json:"usage_by_month"` // oldest to newest, 12 entries
}

// ForTemplate computes completion rate, mean completion duration, and a
// trailing 12-calendar-month usage histogram ending with the current month.
func (a *Analytics) ForTemplate(ctx context.Context, templateID string) (*TemplateAnalytics, error) {
	template, err := a.persistence.Templates().GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	if template == nil {
		return nil, persistence.ErrTemplateNotFound
	}

	instances, err := a.persistence.Instances().ListByTemplateID(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	result := &TemplateAnalytics{
		TemplateID:     templateID,
		TotalInstances: len(instances),
	}

	var totalDuration time.Duration

	timed := 0

	for _, instance := range instances {
		if instance.Status == models.InstanceStatusCompleted {
			result.CompletedInstances++
		}

		if instance.StartedAt != nil && instance.CompletedAt != nil {
			totalDuration += instance.CompletedAt.Sub(*instance.StartedAt)
			timed++
		}
	}

	if result.TotalInstances > 0 {
		rate := 100 * float64(result.CompletedInstances) / float64(result.TotalInstances)
		result.CompletionRate = math.Round(rate*100) / 100
	}

	if timed > 0 {
		result.AverageCompletionTimeMinutes = totalDuration.Minutes() / float64(timed)
	}

	usage, err := a.usageByMonth(ctx, templateID)
	if err != nil {
		return nil, err
	}

	result.UsageByMonth = usage

	return result, nil
}

// usageByMonth issues one created-count and one completed-count range query
// per calendar month in the trailing window.
func (a *Analytics) usageByMonth(ctx context.Context, templateID string) ([]MonthlyUsage, error) {
	now := a.now().UTC()
	usage := make([]MonthlyUsage, 0, trailingMonths)

	for offset := trailingMonths - 1; offset >= 0; offset-- {
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -offset, 0)
		end := start.AddDate(0, 1, 0)

		created, err := a.persistence.Instances().CountCreatedBetween(ctx, templateID, start, end)
		if err != nil {
			return nil, fmt.Errorf("failed to count created instances for %s: %w", start.Format("2006-01"), err)
		}

		completed, err := a.persistence.Instances().CountCompletedBetween(ctx, templateID, start, end)
		if err != nil {
			return nil, fmt.Errorf("failed to count completed instances for %s: %w", start.Format("2006-01"), err)
		}

		usage = append(usage, MonthlyUsage{
			Month:     start.Format("2006-01"),
			Created:   created,
			Completed: completed,
		})
	}

	return usage, nil
}

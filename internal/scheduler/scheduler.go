// Package scheduler evaluates recurring report definitions and drives
// compilation, delivery and export, at most once per due occurrence.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/coopmetrics/internal/config"
	"github.com/mamadbah2/coopmetrics/internal/domain/models"
	"github.com/mamadbah2/coopmetrics/internal/repository"
	"github.com/mamadbah2/coopmetrics/internal/service/reporting"
)

// Notifier delivers compiled reports and alert batches to recipients.
type Notifier interface {
	SendReport(ctx context.Context, recipient string, report *models.ComprehensiveReport) error
	SendAlerts(ctx context.Context, recipient string, alerts []models.Alert) error
}

// Exporter receives delivered reports for archival, e.g. a spreadsheet.
type Exporter interface {
	AppendReport(ctx context.Context, report *models.ComprehensiveReport) error
}

// RunSummary captures one ProcessDueReports invocation. Every due
// definition lands in exactly one of delivered, skipped or failed.
type RunSummary struct {
	Due       int `json:"due"`
	Delivered int `json:"delivered"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// NotifySummary captures one alert notification fan-out.
type NotifySummary struct {
	Alerts int `json:"alerts"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Scheduler manages the periodic triggers and the per-definition occurrence
// state machine.
type Scheduler struct {
	cron         *cron.Cron
	store        repository.Store
	reportingSvc *reporting.Service
	notifier     Notifier
	exporter     Exporter
	cfg          config.SchedulerConfig
	logger       *zap.Logger
}

// NewScheduler creates a new scheduler instance. exporter may be nil when
// no export target is configured.
func NewScheduler(store repository.Store, reportingSvc *reporting.Service, notifier Notifier, exporter Exporter, cfg config.SchedulerConfig, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("unknown timezone, falling back to UTC", zap.String("timezone", cfg.Timezone))
		loc = time.UTC
	}

	return &Scheduler{
		cron:         cron.New(cron.WithLocation(loc)),
		store:        store,
		reportingSvc: reportingSvc,
		notifier:     notifier,
		exporter:     exporter,
		cfg:          cfg,
		logger:       logger,
	}
}

// Start registers the cron triggers and starts the engine.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler",
		zap.String("report_cron", s.cfg.ReportCron),
		zap.String("alert_cron", s.cfg.AlertCron))

	_, err := s.cron.AddFunc(s.cfg.ReportCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		summary, err := s.ProcessDueReports(ctx)
		if err != nil {
			s.logger.Error("report run failed", zap.Error(err))
			return
		}
		s.logger.Info("report run finished",
			zap.Int("due", summary.Due),
			zap.Int("delivered", summary.Delivered),
			zap.Int("skipped", summary.Skipped),
			zap.Int("failed", summary.Failed))
	})
	if err != nil {
		s.logger.Error("failed to schedule report run", zap.Error(err))
	}

	_, err = s.cron.AddFunc(s.cfg.AlertCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		s.notifyAllOrganizations(ctx)
	})
	if err != nil {
		s.logger.Error("failed to schedule alert run", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the cron engine and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// ProcessDueReports evaluates every active definition once. Safe to invoke
// concurrently or redundantly: each due occurrence is claimed atomically
// before compilation, and a lost claim counts as a skip, not an error.
// Failures are isolated per definition and never abort the run.
func (s *Scheduler) ProcessDueReports(ctx context.Context) (RunSummary, error) {
	var summary RunSummary

	defs, err := s.store.ActiveReportDefinitions(ctx)
	if err != nil {
		return summary, fmt.Errorf("load report definitions: %w", err)
	}

	now := time.Now().UTC()
	for _, def := range defs {
		due, ok := DueOccurrence(def, now)
		if !ok {
			continue
		}
		summary.Due++

		err := s.processOccurrence(ctx, def, due)
		switch {
		case errors.Is(err, models.ErrClaimConflict):
			summary.Skipped++
			s.logger.Debug("occurrence already claimed",
				zap.String("definition_id", def.ID), zap.Time("due", due))
		case err != nil:
			summary.Failed++
			s.logger.Error("definition processing failed",
				zap.String("definition_id", def.ID),
				zap.String("org_id", def.OrganizationID),
				zap.Time("due", due),
				zap.Error(err))
		default:
			summary.Delivered++
		}
	}

	return summary, nil
}

func (s *Scheduler) processOccurrence(ctx context.Context, def models.ReportDefinition, due time.Time) error {
	if err := s.store.ClaimOccurrence(ctx, def.ID, def.LastOccurrence, due); err != nil {
		return err
	}

	report, err := s.reportingSvc.Compile(ctx, def.OrganizationID, def.ReportType, occurrenceRange(def, due), def.Scope, "scheduler")
	if err != nil {
		s.markFailed(ctx, def, due, err)
		return fmt.Errorf("compile report: %w", err)
	}

	delivered := 0
	for _, recipient := range def.Recipients {
		if err := s.notifier.SendReport(ctx, recipient, report); err != nil {
			s.logger.Warn("report delivery failed",
				zap.String("definition_id", def.ID),
				zap.String("recipient", recipient),
				zap.Error(err))
			continue
		}
		delivered++
	}
	if delivered == 0 && len(def.Recipients) > 0 {
		err := fmt.Errorf("delivery failed for all %d recipients", len(def.Recipients))
		s.markFailed(ctx, def, due, err)
		return err
	}

	if s.exporter != nil {
		if err := s.exporter.AppendReport(ctx, report); err != nil {
			// Export is archival; a failed append does not fail the occurrence.
			s.logger.Warn("report export failed",
				zap.String("definition_id", def.ID), zap.Error(err))
		}
	}

	if err := s.store.MarkDelivered(ctx, def.ID, due); err != nil {
		return fmt.Errorf("advance occurrence marker: %w", err)
	}
	return nil
}

func (s *Scheduler) markFailed(ctx context.Context, def models.ReportDefinition, due time.Time, cause error) {
	if err := s.store.MarkFailed(ctx, def.ID, due, cause.Error()); err != nil {
		s.logger.Error("failed to release occurrence claim",
			zap.String("definition_id", def.ID), zap.Error(err))
	}
}

// SendAlertNotifications classifies the organization's current alerts and
// fans them out to the recipients of its active definitions. Per-recipient
// failures are counted, never fatal to the batch.
func (s *Scheduler) SendAlertNotifications(ctx context.Context, orgID string) (NotifySummary, error) {
	var summary NotifySummary

	alerts, err := s.reportingSvc.GetProductionAlerts(ctx, orgID, time.Now().UTC())
	if err != nil {
		return summary, fmt.Errorf("classify alerts for org %s: %w", orgID, err)
	}
	summary.Alerts = len(alerts)
	if len(alerts) == 0 {
		return summary, nil
	}

	recipients, err := s.alertRecipients(ctx, orgID)
	if err != nil {
		return summary, err
	}
	for _, recipient := range recipients {
		if err := s.notifier.SendAlerts(ctx, recipient, alerts); err != nil {
			summary.Failed++
			s.logger.Warn("alert delivery failed",
				zap.String("org_id", orgID),
				zap.String("recipient", recipient),
				zap.Error(err))
			continue
		}
		summary.Sent++
	}
	return summary, nil
}

func (s *Scheduler) alertRecipients(ctx context.Context, orgID string) ([]string, error) {
	defs, err := s.store.ActiveReportDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load report definitions: %w", err)
	}
	seen := map[string]bool{}
	var recipients []string
	for _, def := range defs {
		if def.OrganizationID != orgID {
			continue
		}
		for _, r := range def.Recipients {
			if !seen[r] {
				seen[r] = true
				recipients = append(recipients, r)
			}
		}
	}
	sort.Strings(recipients)
	return recipients, nil
}

// notifyAllOrganizations fans out alert notifications across every
// organization with an active definition, isolating failures per org.
func (s *Scheduler) notifyAllOrganizations(ctx context.Context) {
	defs, err := s.store.ActiveReportDefinitions(ctx)
	if err != nil {
		s.logger.Error("alert run failed to load definitions", zap.Error(err))
		return
	}

	seen := map[string]bool{}
	for _, def := range defs {
		if seen[def.OrganizationID] {
			continue
		}
		seen[def.OrganizationID] = true

		summary, err := s.SendAlertNotifications(ctx, def.OrganizationID)
		if err != nil {
			s.logger.Error("alert notification failed",
				zap.String("org_id", def.OrganizationID), zap.Error(err))
			continue
		}
		if summary.Alerts > 0 {
			s.logger.Info("alerts notified",
				zap.String("org_id", def.OrganizationID),
				zap.Int("alerts", summary.Alerts),
				zap.Int("sent", summary.Sent),
				zap.Int("failed", summary.Failed))
		}
	}
}

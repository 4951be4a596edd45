package scheduler

import (
	"context"

	"github.com/branchwatch/social-listening-bot/internal/config"
	"github.com/branchwatch/social-listening-bot/internal/models"
	"github.com/branchwatch/social-listening-bot/internal/pipeline"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Service runs the pipeline on a cron schedule in serve mode. The cron
// runner serializes invocations, satisfying the no-overlapping-runs
// assumption.
type Service struct {
	config   *config.Config
	pipeline *pipeline.Service
	cron     *cron.Cron
}

// NewService creates a new scheduler service.
func NewService(cfg *config.Config, pipelineService *pipeline.Service) *Service {
	return &Service{
		config:   cfg,
		pipeline: pipelineService,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start begins the scheduled runs.
func (s *Service) Start() error {
	var cronExpression string

	switch s.config.RunSchedule {
	case "hourly":
		cronExpression = "0 0 * * * *"
	default:
		// Run daily at 9 AM UTC
		cronExpression = "0 0 9 * * *"
	}

	_, err := s.cron.AddFunc(cronExpression, func() {
		logrus.Info("Starting scheduled listening run")
		report := s.pipeline.Run(context.Background())
		if report.Outcome == models.OutcomeFailure {
			logrus.Error("Scheduled run produced no usable data")
		}
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s schedule", s.config.RunSchedule)
	return nil
}

// Stop stops the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}

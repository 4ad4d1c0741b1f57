package handlers

import (
	"context"
	"time"

	"github.com/thisyearnofear/VOISSS-sub003/pkg/logging"
)

// JobManager runs the background maintenance jobs: hourly idempotency
// purges and a daily summary log. Nothing here sits on the payment path.
type JobManager struct {
	idempotency IdempotencyStore
	logger      logging.Logger
	stopCh      chan struct{}
}

// NewJobManager creates a job manager.
func NewJobManager(store IdempotencyStore, log logging.Logger) *JobManager {
	return &JobManager{
		idempotency: store,
		logger:      log,
		stopCh:      make(chan struct{}),
	}
}

// Start begins all background jobs
func (jm *JobManager) Start(ctx context.Context) {
	jm.logger.Info("Starting payment job manager")
	go jm.runIdempotencyPurge(ctx)
	go jm.runDailySummary(ctx)
}

// Stop halts all background jobs
func (jm *JobManager) Stop() {
	close(jm.stopCh)
	jm.logger.Info("Payment job manager stopped")
}

func (jm *JobManager) runIdempotencyPurge(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-jm.stopCh:
			return
		case <-ticker.C:
			jm.purgeIdempotencyKeys(ctx)
		}
	}
}

func (jm *JobManager) purgeIdempotencyKeys(ctx context.Context) {
	if jm.idempotency == nil {
		return
	}
	deleted, err := jm.idempotency.Purge(ctx)
	if err != nil {
		jm.logger.WithError(err).Error("Idempotency purge failed")
		return
	}
	if deleted > 0 {
		jm.logger.WithFields(logging.Fields{
			"deleted": deleted,
		}).Info("Purged expired idempotency keys")
	}
}

func (jm *JobManager) runDailySummary(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-jm.stopCh:
			return
		case <-ticker.C:
			jm.logger.WithFields(logging.Fields{
				"date": time.Now().UTC().Format("2006-01-02"),
			}).Info("Payment service daily summary checkpoint")
		}
	}
}

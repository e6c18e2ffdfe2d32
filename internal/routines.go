package internal

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/veltacrm/whatsapp-bridge/internal/store"
	"github.com/veltacrm/whatsapp-bridge/pkg/env"
	"github.com/veltacrm/whatsapp-bridge/pkg/log"
)

// Routines schedules the periodic jobs: the connection health sweep every
// five minutes and the nightly contact reconciliation. Cron specs use the
// six-field form with seconds.
func (a *App) Routines(c *cron.Cron) {
	log.Print(nil).Info("Running Routine Tasks")

	if env.GetEnvBoolOrDefault("HEALTH_SWEEP_CRON_ENABLED", true) {
		spec := env.GetEnvStringOrDefault("HEALTH_SWEEP_CRON_SPEC", "0 */5 * * * *")
		_, err := c.AddFunc(spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			report := a.connectionSvc.HealthSweep(ctx)
			if report.Downgraded > 0 || len(report.Errors) > 0 {
				log.Print(nil).
					WithField("checked", report.Checked).
					WithField("downgraded", report.Downgraded).
					WithField("errors", len(report.Errors)).
					Warn("Health sweep downgraded connections")
			}
		})
		if err != nil {
			log.Print(nil).WithField("error", err.Error()).Error("Failed to add health sweep cron job")
		}
	} else {
		log.Print(nil).Info("Health sweep cron disabled; statuses change only on demand")
	}

	if env.GetEnvBoolOrDefault("RECONCILE_CRON_ENABLED", true) {
		spec := env.GetEnvStringOrDefault("RECONCILE_CRON_SPEC", "0 0 3 * * *")
		_, err := c.AddFunc(spec, a.nightlyReconcile)
		if err != nil {
			log.Print(nil).WithField("error", err.Error()).Error("Failed to add reconcile cron job")
		}
	}

	c.Start()
}

// nightlyReconcile sweeps every tenant that has a connected session. One
// sweep per tenant, through its first connected connection.
func (a *App) nightlyReconcile() {
	timeout := env.GetEnvDurationOrDefault("RECONCILE_CRON_TIMEOUT", 30*time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	connections, err := a.Store.Connections.ListByStatus(ctx, store.ConnectionConnected)
	if err != nil {
		log.Print(nil).Error("Failed to list connections for reconcile run: ", err)
		return
	}

	seen := make(map[string]bool)
	for _, conn := range connections {
		if seen[conn.TenantID] {
			continue
		}
		seen[conn.TenantID] = true

		report, err := a.sweeper.Run(ctx, conn.TenantID, conn.SessionData)
		if err != nil {
			log.Print(nil).WithField("tenant_id", conn.TenantID).Error("Reconcile run failed: ", err)
			continue
		}
		log.Print(nil).
			WithField("tenant_id", conn.TenantID).
			WithField("scanned", report.Scanned).
			WithField("updated", report.Updated).
			WithField("skipped", report.Skipped).
			WithField("failed", report.Failed).
			Info("Reconcile run complete")
	}
}

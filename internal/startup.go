package internal

import (
	"context"
	"time"

	"github.com/veltacrm/whatsapp-bridge/pkg/env"
	"github.com/veltacrm/whatsapp-bridge/pkg/log"
)

// Startup reconciles connection statuses left over from a previous process:
// one health sweep downgrades rows whose backend session is gone.
func (a *App) Startup() {
	log.Print(nil).Info("Running Startup Tasks")

	timeout := env.GetEnvDurationOrDefault("STARTUP_SWEEP_TIMEOUT", 60*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	report := a.connectionSvc.HealthSweep(ctx)
	log.Print(nil).
		WithField("checked", report.Checked).
		WithField("downgraded", report.Downgraded).
		WithField("errors", len(report.Errors)).
		Info("Startup health sweep complete")
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/launchkit/saas-starter-kit/internal/maintenance"
	"github.com/launchkit/saas-starter-kit/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers such as the scheduled maintenance jobs.`,
}

var maintenanceWorkerCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Run scheduled maintenance",
	Long:  `Expire overdue invitations, purge expired sessions and prune audit logs past the retention period on a cron schedule.`,
	Run: func(cmd *cobra.Command, args []string) {
		startMaintenanceWorker()
	},
}

var (
	maintenanceOnce     bool
	maintenanceSchedule string
	retentionDays       int
)

func startMaintenanceWorker() {
	cfg := mustLoadConfig()
	lg := logger.LoggerWrapper()

	svc, err := buildServices(cfg, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	runner := maintenance.NewRunner(
		svc.Invitations,
		svc.Sessions,
		svc.Audit,
		getIntFlag(retentionDays, cfg.Audit.RetentionDays),
		lg,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if maintenanceOnce {
		if _, err := runner.RunOnce(ctx); err != nil {
			lg.Error("maintenance run failed", "error", err)
			svc.Close()
			os.Exit(1)
		}
		return
	}

	schedule := getStringFlag(maintenanceSchedule, cfg.Audit.MaintenanceSchedule)
	c := cron.New()
	if _, err := runner.Schedule(ctx, c, schedule); err != nil {
		lg.Error("invalid maintenance schedule", "schedule", schedule, "error", err)
		svc.Close()
		os.Exit(1)
	}

	c.Start()
	lg.Info("maintenance worker started", "schedule", schedule)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	lg.Info("received signal, shutting down maintenance worker", "signal", sig)

	stopped := c.Stop()
	cancel()
	<-stopped.Done()
	lg.Info("maintenance worker stopped")
}

func getStringFlag(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	maintenanceWorkerCmd.Flags().BoolVar(&maintenanceOnce, "once", false, "run every job once and exit")
	maintenanceWorkerCmd.Flags().StringVar(&maintenanceSchedule, "schedule", "", "cron schedule (overrides config)")
	maintenanceWorkerCmd.Flags().IntVar(&retentionDays, "retention-days", 0, "audit log retention in days (overrides config)")

	workerCmd.AddCommand(maintenanceWorkerCmd)
}

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/ops-console/internal/audit"
	"github.com/ziadkadry99/ops-console/internal/metrics"
	"github.com/ziadkadry99/ops-console/internal/tracking"
)

var (
	pruneAuditDays    int
	pruneTrackingDays int
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete audit and tracking rows older than the retention period",
	Long: `Deletes rows older than retention.audit_days from the audit trail and
older than retention.tracking_days from the tracking log. A retention of
0 days keeps everything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("audit-days") {
			cfg.Retention.AuditDays = pruneAuditDays
		}
		if cmd.Flags().Changed("tracking-days") {
			cfg.Retention.TrackingDays = pruneTrackingDays
		}
		if cfg.Retention.AuditDays < 0 || cfg.Retention.TrackingDays < 0 {
			return fmt.Errorf("retention days must be non-negative")
		}

		log, err := newLogger(cfg)
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		defer log.Sync()

		auditDB, trackingDB, closeDBs, err := openDatabases(cfg)
		if err != nil {
			return err
		}
		defer closeDBs()

		ctx := cmd.Context()
		now := time.Now()

		if days := cfg.Retention.AuditDays; days > 0 {
			n, err := audit.NewStore(auditDB).DeleteBefore(ctx, cutoff(now, days))
			if err != nil {
				return fmt.Errorf("pruning audit trail: %w", err)
			}
			metrics.RowsPruned.WithLabelValues("audit").Add(float64(n))
			log.Info(ctx, "pruned audit trail", zap.Int64("rows", n), zap.Int("days", days))
			fmt.Printf("audit:    deleted %d rows older than %d days\n", n, days)
		}

		if days := cfg.Retention.TrackingDays; days > 0 {
			n, err := tracking.NewStore(trackingDB).DeleteBefore(ctx, cutoff(now, days))
			if err != nil {
				return fmt.Errorf("pruning tracking log: %w", err)
			}
			metrics.RowsPruned.WithLabelValues("tracking").Add(float64(n))
			log.Info(ctx, "pruned tracking log", zap.Int64("rows", n), zap.Int("days", days))
			fmt.Printf("tracking: deleted %d rows older than %d days\n", n, days)
		}

		return nil
	},
}

func cutoff(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days)
}

func init() {
	pruneCmd.Flags().IntVar(&pruneAuditDays, "audit-days", 0, "override retention.audit_days")
	pruneCmd.Flags().IntVar(&pruneTrackingDays, "tracking-days", 0, "override retention.tracking_days")
	rootCmd.AddCommand(pruneCmd)
}

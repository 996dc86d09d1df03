package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsledger/opsledger/internal/notification"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Exercise the notification sinks directly",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification through every configured sink",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		dispatcher := notification.NewDispatcher(cfg.Sinks, cfg.DryRun)
		if len(dispatcher.Sinks()) == 0 && !cfg.DryRun {
			return errors.New("no notification sinks configured")
		}

		results := dispatcher.Dispatch(cmd.Context(), notification.Event{
			Category:  notification.CategoryBackup,
			Subject:   "opsledger",
			Operation: "Test Notification",
			Status:    notification.StatusSuccessful,
			Detail:    "If you can read this, the sink works",
			Timestamp: time.Now().UTC(),
			Author:    cfg.Author,
		})

		var failed int
		for _, r := range results {
			if r.Err != nil {
				fmt.Printf("%s: FAILED: %v\n", r.Sink, r.Err)
				failed++
			} else {
				fmt.Printf("%s: delivered\n", r.Sink)
			}
		}
		if cfg.Sinks.Heartbeat != nil && !cfg.DryRun {
			hb := notification.NewHeartbeat(cfg.Sinks.Heartbeat.URL)
			if err := hb.Ping(cmd.Context(), "test", 0); err != nil {
				fmt.Printf("heartbeat: FAILED: %v\n", err)
				failed++
			} else {
				fmt.Println("heartbeat: delivered")
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d sink(s) failed", failed)
		}
		return nil
	},
}

var (
	notifyCategory  string
	notifySubject   string
	notifyOperation string
	notifyStatus    string
	notifyDetail    string
)

var notifySendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send an ad-hoc notification",
	Long: `Send delivers an arbitrary event through the configured sinks. The
category delivery policy still applies: a successful maintenance event
is skipped, a successful backup event is delivered.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		category, err := parseCategory(notifyCategory)
		if err != nil {
			return err
		}
		cfg := loadConfig()
		dispatcher := notification.NewDispatcher(cfg.Sinks, cfg.DryRun)

		results := dispatcher.Dispatch(cmd.Context(), notification.Event{
			Category:  category,
			Subject:   notifySubject,
			Operation: notifyOperation,
			Status:    notification.StatusFromRecord(notifyStatus),
			Detail:    notifyDetail,
			Timestamp: time.Now().UTC(),
			Author:    cfg.Author,
		})
		for _, r := range results {
			if r.Err != nil {
				return fmt.Errorf("sink %s: %w", r.Sink, r.Err)
			}
		}
		return nil
	},
}

func parseCategory(s string) (notification.Category, error) {
	categories := []notification.Category{
		notification.CategoryBackup, notification.CategoryRestore,
		notification.CategoryRollback, notification.CategoryDeploy,
		notification.CategoryBuild, notification.CategoryMaintenance,
		notification.CategoryHealth, notification.CategoryHeartbeat,
	}
	for _, c := range categories {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

func init() {
	notifySendCmd.Flags().StringVar(&notifyCategory, "category", "backup", "event category")
	notifySendCmd.Flags().StringVar(&notifySubject, "subject", "", "event subject, e.g. the application")
	notifySendCmd.Flags().StringVar(&notifyOperation, "operation", "", "operation label, e.g. Deploy")
	notifySendCmd.Flags().StringVar(&notifyStatus, "status", "success", "outcome: success, failed or partial")
	notifySendCmd.Flags().StringVar(&notifyDetail, "detail", "", "free-form detail for the body")
	notifySendCmd.MarkFlagRequired("subject")
	notifySendCmd.MarkFlagRequired("operation")

	notifyCmd.AddCommand(notifyTestCmd, notifySendCmd)
	rootCmd.AddCommand(notifyCmd)
}

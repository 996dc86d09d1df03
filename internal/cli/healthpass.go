package cli

import (
	"github.com/spf13/cobra"

	"github.com/opsledger/opsledger/internal/healthpass"
	"github.com/opsledger/opsledger/internal/ledger"
	"github.com/opsledger/opsledger/internal/notification"
	"github.com/opsledger/opsledger/internal/probe"
)

var healthPassCmd = &cobra.Command{
	Use:   "health-pass",
	Short: "Run one fleet health pass",
	Long: `Health-pass probes the configured hosts, records the results, alerts on
failures that are new since the previous pass and then advances the
last-check marker. When a heartbeat URL is configured and the pass
succeeded, it signals the external dead-man's-switch monitor.

With --check the probes still run but nothing is recorded, no alerts
are delivered and the heartbeat is withheld.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		db, err := openLedger(cfg)
		if err != nil {
			return err
		}

		var heartbeat *notification.HeartbeatSink
		if cfg.Sinks.Heartbeat != nil {
			heartbeat = notification.NewHeartbeat(cfg.Sinks.Heartbeat.URL)
		}
		var pinger healthpass.Prober
		if len(cfg.Probes.PingHosts) > 0 {
			pinger = probe.NewPinger(cfg.Probes.PingHosts, cfg.Probes.PingTimeout)
		}

		pass := healthpass.New(
			ledger.NewStateStore(db, cfg.DryRun),
			ledger.NewRecorder(db, cfg.DryRun),
			ledger.NewQueries(db),
			notification.NewDispatcher(cfg.Sinks, cfg.DryRun),
			heartbeat,
			pinger,
			cfg.Author,
			cfg.DryRun,
		)

		summary, passErr := pass.Run(cmd.Context())
		if err := printJSON(summary); err != nil {
			return err
		}
		return passErr
	},
}

func init() {
	rootCmd.AddCommand(healthPassCmd)
}

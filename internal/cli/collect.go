package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/opsledger/opsledger/internal/ledger"
	"github.com/opsledger/opsledger/internal/probe"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run a collector once and record its snapshot",
}

var collectDockerSizesCmd = &cobra.Command{
	Use:   "docker-sizes",
	Short: "Snapshot per-container disk usage",
	Long: `Docker-sizes lists all containers on every configured Docker host and
records one size row per container. With no DOCKER_HOSTS configured it
collects from the local Docker socket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		db, err := openLedger(cfg)
		if err != nil {
			return err
		}

		hosts := cfg.Probes.DockerHosts
		if len(hosts) == 0 {
			hosts = []string{"local"}
		}
		collector := probe.NewDockerCollector(hosts)

		rows, errs := collector.Collect(cmd.Context())
		for _, err := range errs {
			log.Printf("WARNING: %v", err)
		}

		recorder := ledger.NewRecorder(db, cfg.DryRun)
		if err := recorder.RecordDockerSizes(cmd.Context(), rows); err != nil {
			return err
		}

		if len(errs) > 0 {
			return fmt.Errorf("collection failed for %d host(s)", len(errs))
		}
		fmt.Printf("Recorded %d container size rows\n", len(rows))
		return nil
	},
}

func init() {
	collectCmd.AddCommand(collectDockerSizesCmd)
	rootCmd.AddCommand(collectCmd)
}

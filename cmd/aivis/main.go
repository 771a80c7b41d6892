package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TobiSchelling/AIVisibility/internal/config"
	"github.com/TobiSchelling/AIVisibility/internal/database"
	"github.com/TobiSchelling/AIVisibility/internal/logger"
	"github.com/TobiSchelling/AIVisibility/internal/pipeline"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	log        = zap.NewNop()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "aivis",
	Short:   "Measure how visible a business is to AI assistants",
	Long:    "aivis researches the questions customers ask AI assistants, asks ChatGPT, Claude, Gemini and Perplexity, and scores how often a business is mentioned.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		if _, err := config.LoadEnv(path); err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		log = logger.New(level, cfg.Logging.Format)
		log.Debug("config loaded", zap.String("path", path))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(researchCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(reportCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("aivis", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/aivis/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Set the API key variables it names, in your environment or in a .env file next to it.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configured platforms and stored scans",
	RunE: func(cmd *cobra.Command, args []string) error {
		comps, err := pipeline.Build(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer comps.Close()

		fmt.Println("Platforms:")
		for _, s := range comps.Platforms {
			research := "no"
			if s.Research {
				research = "yes"
			}
			dispatch := "ready"
			if s.Unavailable != nil {
				dispatch = s.Unavailable.Error()
			}
			fmt.Printf("  %-10s research: %-3s  dispatch: %s\n", s.Platform, research, dispatch)
		}

		fmt.Println("\nExternal search:")
		fmt.Printf("  Google: %s\n", readiness(comps.SearchReady))
		fmt.Printf("  Redis cache: %s\n", readiness(comps.CacheEnabled))

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}
		fmt.Println("\nScans:")
		fmt.Printf("  Total: %d (%d completed)\n", stats.Scans, stats.CompletedScans)
		fmt.Printf("  Domains: %d\n", stats.Domains)
		fmt.Printf("  Responses: %d (%d mentioning the domain)\n", stats.Results, stats.Mentions)
		fmt.Printf("  Database: %s\n", db.Path())
		return nil
	},
}

func readiness(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func openDB() (*database.DB, error) {
	return database.Open(cfg.DBPath(), log)
}

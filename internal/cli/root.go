// Package cli implements the geocovid command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/geocovid/geocovid/internal/config"
)

// globals are the persistent flags shared by every command.
type globals struct {
	configPath string
	logLevel   string
}

// load reads the config file, if any, and applies the persistent flags.
func (g *globals) load(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if g.configPath != "" {
		var err error
		if cfg, err = config.Load(g.configPath); err != nil {
			return cfg, err
		}
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	return cfg, nil
}

func (g *globals) logger(cfg config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	return newLogger(w, level), nil
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "geocovid",
		Short: "Geolocated SIR+D epidemic simulation",
		Long: `geocovid replays hourly device positions through an agent based
susceptible / infected / recovered / dead model and records the epidemic
curves, agent snapshots and heat maps of each run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")

	root.AddCommand(newRunCmd(g), newHeatmapCmd(g), newRunsCmd(g))
	return root
}

// Execute runs the command line and exits 1 on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

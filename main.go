// relmap maps files, methods and function calls across releases of a repository.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/relmap/internal/config"
	"github.com/phobologic/relmap/internal/discover"
	"github.com/phobologic/relmap/internal/lang"
	"github.com/phobologic/relmap/internal/snapshot"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	logLevel   string
	configPath string
	stderr     io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globals{stderr: stderr}

	root := &cobra.Command{
		Use:   "relmap",
		Short: "Map code entities across releases of a repository",
		Long: `relmap aligns the files, methods and function calls of consecutive releases
and records, for every entity, which entity of the previous release it came from.

Examples:
  relmap diff ./v1.0 ./v1.1                       # compare two snapshots
  relmap diff --format toon ./v1.0 ./v1.1         # human-readable summary
  relmap timeline --manifest releases.csv --data-dir data
  relmap init                                     # write a default .relmap.yaml`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "path to config file (default: nearest "+config.FileName+")")

	root.AddCommand(
		newDiffCmd(g),
		newTimelineCmd(g),
		newInitCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "relmap %s\n", version)
			return err
		},
	}
}

// logger builds the text logger all commands write to.
func (g *globals) logger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(g.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", g.logLevel)
	}
	return slog.New(slog.NewTextHandler(g.stderr, &slog.HandlerOptions{Level: level})), nil
}

// loadConfig reads --config when given and the nearest config file otherwise.
func (g *globals) loadConfig() (*config.Config, error) {
	if g.configPath != "" {
		if _, err := os.Stat(g.configPath); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		return config.LoadFromPath(g.configPath)
	}
	return config.Load(".")
}

// applyLanguages overrides the configured languages with a comma-separated list.
func applyLanguages(cfg *config.Config, langs string) error {
	if langs == "" {
		return nil
	}
	var names []string
	for _, name := range strings.Split(langs, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return errors.New("--langs names no language")
	}
	if _, err := lang.Lookup(names); err != nil {
		return err
	}
	cfg.Scan.Languages = names
	return nil
}

func snapshotOptions(cfg *config.Config, log *slog.Logger) snapshot.Options {
	return snapshot.Options{
		Discover: discover.Options{
			Languages:   cfg.Scan.Languages,
			Exclude:     cfg.Scan.Exclude,
			MaxFileSize: cfg.Scan.MaxFileSize,
			SkipTests:   cfg.Scan.SkipTests,
		},
		Workers: cfg.Workers.Parse,
		Logger:  log,
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/phobologic/relmap/internal/match"
	"github.com/phobologic/relmap/internal/record"
	"github.com/phobologic/relmap/internal/snapshot"
	"github.com/phobologic/relmap/internal/toon"
)

const (
	formatJSONL = "jsonl"
	formatTOON  = "toon"
)

func newDiffCmd(g *globals) *cobra.Command {
	var (
		format string
		langs  string
	)

	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Compare two snapshot directories",
		Long: `Compare two snapshot directories and print one record per file of the new
snapshot, plus one per removed file.

With --format toon a compact summary is printed instead: the file pairs, the
methods that changed and outcome totals per level.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatJSONL && format != formatTOON {
				return fmt.Errorf("unknown --format %q (want %s or %s)", format, formatJSONL, formatTOON)
			}
			log, err := g.logger()
			if err != nil {
				return err
			}
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if err := applyLanguages(cfg, langs); err != nil {
				return err
			}

			ctx := cmd.Context()
			opts := snapshotOptions(cfg, log)
			old, err := snapshot.Load(ctx, args[0], opts)
			if err != nil {
				return fmt.Errorf("loading %s: %w", args[0], err)
			}
			new, err := snapshot.Load(ctx, args[1], opts)
			if err != nil {
				return fmt.Errorf("loading %s: %w", args[1], err)
			}

			cmp := match.Compare(old, new)
			if format == formatTOON {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), toon.Encode(cmp))
				return err
			}
			return writeRecords(cmd.OutOrStdout(), record.Assemble(cmp))
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatJSONL, "output format: jsonl or toon")
	cmd.Flags().StringVarP(&langs, "langs", "l", "", "comma-separated languages to include (overrides config)")
	return cmd
}

func writeRecords(w io.Writer, files []record.File) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, f := range files {
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("encoding %s: %w", f.Path, err)
		}
	}
	return nil
}

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/relmap/internal/config"
)

const (
	sentinelStart = "# relmap:start"
	sentinelEnd   = "# relmap:end"
)

func newInitCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default " + config.FileName + " and ignore relmap output",
		Long: `Write a default ` + config.FileName + ` to dir (default: current directory) and
add relmap's output paths to dir/.gitignore. The .gitignore entries are wrapped
in sentinel comments so later runs update them in place without touching
surrounding content. An existing config file is kept as is.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(dir, dryRun, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying any file")
	return cmd
}

func runInit(dir string, dryRun bool, stdout, stderr io.Writer) error {
	cfg := config.DefaultConfig()
	section := generateSection(cfg)
	ignorePath := filepath.Join(dir, ".gitignore")

	if dryRun {
		data, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "# %s\n%s\n# %s\n%s\n",
			filepath.Join(dir, config.FileName), data, ignorePath, section)
		return nil
	}

	if path := filepath.Join(dir, config.FileName); fileExists(path) {
		_, _ = fmt.Fprintf(stderr, "kept existing %s\n", path)
	} else {
		path, err := config.SaveDefault(dir)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stderr, "wrote %s\n", path)
	}

	existing, _ := os.ReadFile(ignorePath)
	updated := applySection(string(existing), section)
	if err := os.WriteFile(ignorePath, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", ignorePath, err)
	}
	_, _ = fmt.Fprintf(stderr, "updated %s\n", ignorePath)
	return nil
}

// generateSection returns the sentinel-wrapped .gitignore entries for cfg's outputs.
func generateSection(cfg *config.Config) string {
	lines := []string{
		sentinelStart,
		strings.TrimSuffix(filepath.ToSlash(cfg.Output.Dir), "/") + "/",
		filepath.ToSlash(cfg.Output.Database),
		filepath.ToSlash(cfg.Output.Database) + "-*",
		sentinelEnd,
	}
	return strings.Join(lines, "\n")
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	if content == "" {
		return section + "\n"
	}
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

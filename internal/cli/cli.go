// Package cli implements the reposolve command-line interface.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/reposolve/pkg/buildinfo"
	"github.com/matzehuels/reposolve/pkg/cache"
	"github.com/matzehuels/reposolve/pkg/config"
	"github.com/matzehuels/reposolve/pkg/repository"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "reposolve"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	out         io.Writer // command results
	status      io.Writer // spinners and progress bars
	interactive bool

	flags globalFlags
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	config      string
	index       []string
	local       []string
	prereleases bool
	noCache     bool
}

// New creates a new CLI instance with a default logger. Logs, spinners and
// progress bars go to w; results go to stdout.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:      newLogger(w, level),
		out:         os.Stdout,
		status:      w,
		interactive: isTerminal(w),
	}
}

// SetOutput redirects command results to w.
func (c *CLI) SetOutput(w io.Writer) { c.out = w }

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	applyLevel(c.Logger, level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Reposolve lists Python package releases and their dependencies",
		Long:         `Reposolve queries package indexes and local distribution directories for the releases of a Python package and the requirements each release declares.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVarP(&c.flags.config, "config", "c", "", "config file (.toml, .yaml)")
	pf.StringArrayVar(&c.flags.index, "index", nil, "package index URL, replaces configured indexes (repeatable)")
	pf.StringArrayVar(&c.flags.local, "local", nil, "local distribution directory (repeatable)")
	pf.BoolVar(&c.flags.prereleases, "prereleases", false, "include prereleases")
	pf.BoolVar(&c.flags.noCache, "no-cache", false, "disable caching")

	root.AddCommand(c.releasesCommand())
	root.AddCommand(c.depsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig reads the --config file, or the defaults, and applies the
// command-line overrides.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if c.flags.config != "" {
		loaded, err := config.Load(c.flags.config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if len(c.flags.index) > 0 {
		kept := cfg.Repository[:0]
		for _, r := range cfg.Repository {
			if r.Kind != config.KindWarehouse {
				kept = append(kept, r)
			}
		}
		for _, u := range c.flags.index {
			kept = append(kept, config.RepositoryConfig{Kind: config.KindWarehouse, URL: u})
		}
		cfg.Repository = kept
	}
	for _, dir := range c.flags.local {
		cfg.Repository = append(cfg.Repository, config.RepositoryConfig{Kind: config.KindLocal, Path: dir})
	}
	if c.flags.prereleases {
		cfg.Prereleases = true
		allow := true
		for i := range cfg.Repository {
			cfg.Repository[i].Prereleases = &allow
		}
	}
	if c.flags.noCache {
		cfg.Cache = config.CacheConfig{Backend: config.BackendNone}
	}
	return cfg, cfg.Validate()
}

// openRepository builds the configured repositories as one group. The
// returned cache must be closed by the caller.
func (c *CLI) openRepository(ctx context.Context) (*repository.Group, cache.Cache, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	backend, err := config.Open(ctx, cfg.Cache)
	if err != nil {
		return nil, nil, err
	}
	opts := config.Options{Cache: backend, Logger: c.Logger}
	if c.interactive {
		opts.Progress = c.downloadProgress
	}
	repos, err := cfg.Repositories(opts)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	return repository.NewGroup(c.Logger, repos...), backend, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the file cache directory from the configuration, falling
// back to the XDG default (~/.cache/reposolve/).
func (c *CLI) cacheDir() (string, error) {
	if c.flags.config != "" {
		cfg, err := config.Load(c.flags.config)
		if err != nil {
			return "", err
		}
		if cfg.Cache.Dir != "" {
			return cfg.Cache.Dir, nil
		}
	}
	return config.DefaultCacheDir()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

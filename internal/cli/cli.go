// Package cli implements the brickbook command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/brickbook/pkg/buildinfo"
	"github.com/matzehuels/brickbook/pkg/cache"
	"github.com/matzehuels/brickbook/pkg/config"
	"github.com/matzehuels/brickbook/pkg/instructions"
	"github.com/matzehuels/brickbook/pkg/render"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "brickbook"

	// bookExt is the extension of saved instruction books.
	bookExt = ".brkb"
)

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
	Logger     *log.Logger
	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Brickbook lays out building instructions for LDraw models",
		Long:         `Brickbook turns an LDraw or MPD model into a paged instruction book: it splits the model into steps, measures every part and step image, and lays out parts lists, callouts and submodel previews on each page.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/brickbook/config.toml)")

	// Register all subcommands
	root.AddCommand(c.importCommand())
	root.AddCommand(c.infoCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.editCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config & Instructions Factory
// =============================================================================

// loadConfig reads --config, or the default config file when it exists.
func (c *CLI) loadConfig() (*config.Config, error) {
	return config.LoadOrDefault(c.configPath)
}

// newInstructions creates an Instructions whose measurements persist in the
// configured cache backend. The returned closer releases the backend.
func (c *CLI) newInstructions(ctx context.Context, cfg *config.Config, noCache bool) (*instructions.Instructions, func() error, error) {
	store, err := newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, nil, err
	}
	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "lib:"+cache.Hash([]byte(cfg.Import.Library))[:12]+":")
	rc := render.NewCache(render.NewRasterizer(),
		render.WithStore(store, keyer, cfg.Cache.TTL.Duration),
		render.WithLogger(c.Logger))

	in, err := instructions.New(
		instructions.WithConfig(cfg),
		instructions.WithLogger(loggerFromContext(ctx)),
		instructions.WithRenderCache(rc),
	)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return in, store.Close, nil
}

// newCache opens the measurement cache backend named in cfg.
func newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		c, err := cache.NewRedisCache(ctx, cfg.RedisOptions())
		if err != nil {
			return nil, fmt.Errorf("connect redis cache: %w", err)
		}
		return c, nil
	default:
		dir, err := fileCacheDir(cfg)
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/brickbook/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// fileCacheDir returns the configured file cache directory, falling back to
// cacheDir.
func fileCacheDir(cfg *config.Config) (string, error) {
	if cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	return cacheDir()
}

// bookPath returns the default book path for a model file.
func bookPath(model string) string {
	return model[:len(model)-len(filepath.Ext(model))] + bookExt
}

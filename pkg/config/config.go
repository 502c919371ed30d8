// Package config holds the settings shared by the brickbook CLI and library
// callers.
//
// Settings live in a TOML file. Every field is optional; [Config.ValidateAndSetDefaults]
// fills what the file leaves out:
//
//	[page]
//	width = 794
//	height = 1123
//	orientation = "row"
//
//	[layout]
//	margin = 10
//	shrink_floor = 0.2
//
//	[cache]
//	backend = "redis"
//	ttl = "72h"
//
//	[cache.redis]
//	addr = "localhost:6379"
//
// Command-line flags override file values.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/brickbook/pkg/cache"
	"github.com/matzehuels/brickbook/pkg/errors"
	"github.com/matzehuels/brickbook/pkg/geom"
	"github.com/matzehuels/brickbook/pkg/layout"
	"github.com/matzehuels/brickbook/pkg/splitter"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultMargin is the gap in pixels between laid-out pieces.
	DefaultMargin = 10.0

	// DefaultStepsPerPage is how many imported steps go on one page.
	DefaultStepsPerPage = 1

	// DefaultPreviewScale is the first scale tried for submodel previews.
	DefaultPreviewScale = 1.0

	// DefaultCacheTTL is how long persisted measurements stay valid.
	DefaultCacheTTL = 7 * 24 * time.Hour

	// FileName is the config file looked up in the user config directory.
	FileName = "config.toml"
)

// Cache backends.
const (
	BackendNone  = "none"
	BackendFile  = "file"
	BackendRedis = "redis"
)

// ValidBackends is the set of supported measurement cache backends.
var ValidBackends = map[string]bool{
	BackendNone:  true,
	BackendFile:  true,
	BackendRedis: true,
}

// =============================================================================
// Config
// =============================================================================

// Config is the full settings tree.
type Config struct {
	Page     Page     `toml:"page"`
	Layout   Layout   `toml:"layout"`
	Splitter Splitter `toml:"splitter"`
	Import   Import   `toml:"import"`
	Cache    Cache    `toml:"cache"`

	validated bool
}

// Page sets the paper and the step grid.
type Page struct {
	Width       float64 `toml:"width"`
	Height      float64 `toml:"height"`
	Orientation string  `toml:"orientation"` // "row" or "column"
	Separators  bool    `toml:"separators"`
}

// Layout sets spacing and the preview shrink loop.
type Layout struct {
	Margin       float64 `toml:"margin"`
	PLIMaxWidth  float64 `toml:"pli_max_width"` // 0 means one row
	PreviewScale float64 `toml:"preview_scale"`
	ShrinkStep   float64 `toml:"shrink_step"`
	ShrinkFloor  float64 `toml:"shrink_floor"`
}

// Splitter sets the layer heuristic tolerances in LDU.
type Splitter struct {
	TopTolerance    float64 `toml:"top_tolerance"`
	HeightTolerance float64 `toml:"height_tolerance"`
	StackTolerance  float64 `toml:"stack_tolerance"`
	AlignTolerance  float64 `toml:"align_tolerance"`
	MaxPerStep      int     `toml:"max_per_step"`
}

// Import controls model import.
type Import struct {
	// KeepSteps uses the model's own STEP lines instead of the splitter.
	KeepSteps bool `toml:"keep_steps"`
	// Library is the root of an LDraw parts library.
	Library      string `toml:"library"`
	StepsPerPage int    `toml:"steps_per_page"`
}

// Cache selects where measurements persist between runs.
type Cache struct {
	Backend string   `toml:"backend"`
	Dir     string   `toml:"dir"`
	TTL     Duration `toml:"ttl"`
	Redis   Redis    `toml:"redis"`
}

// Redis is the redis backend connection.
type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// Duration is a time.Duration written as a Go duration string.
type Duration struct {
	time.Duration
}

// UnmarshalText parses strings like "90m" or "72h".
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText writes the duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a validated config with every default applied.
func Default() *Config {
	c := &Config{}
	_ = c.ValidateAndSetDefaults()
	return c
}

// =============================================================================
// Loading
// =============================================================================

// Load reads a TOML config file and applies defaults.
func Load(path string) (*Config, error) {
	c := &Config{}
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "config %s: unknown key %q", path, undecoded[0].String())
	}
	if err := c.ValidateAndSetDefaults(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "config %s", path)
	}
	return c, nil
}

// LoadOrDefault loads path, or the user config file when path is empty.
// A missing user config file yields the defaults; a missing explicit path
// is an error.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	def, err := DefaultPath()
	if err != nil {
		return Default(), nil
	}
	c, err := Load(def)
	if errors.Is(err, errors.ErrCodeFileNotFound) {
		return Default(), nil
	}
	return c, err
}

// DefaultPath returns ~/.config/brickbook/config.toml, honouring
// XDG_CONFIG_HOME.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "brickbook", FileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "brickbook", FileName), nil
}

// Write encodes c as TOML.
func (c *Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// =============================================================================
// Validation
// =============================================================================

// ValidateAndSetDefaults fills zero fields and checks the rest. It is
// idempotent.
func (c *Config) ValidateAndSetDefaults() error {
	if c.validated {
		return nil
	}
	if c.Page.Width == 0 {
		c.Page.Width = 794
	}
	if c.Page.Height == 0 {
		c.Page.Height = 1123
	}
	if c.Page.Orientation == "" {
		c.Page.Orientation = layout.RowMajor.String()
	}
	if c.Layout.Margin == 0 {
		c.Layout.Margin = DefaultMargin
	}
	if c.Layout.PreviewScale == 0 {
		c.Layout.PreviewScale = DefaultPreviewScale
	}
	if c.Layout.ShrinkStep == 0 {
		c.Layout.ShrinkStep = layout.DefaultShrinkStep
	}
	if c.Layout.ShrinkFloor == 0 {
		c.Layout.ShrinkFloor = c.Layout.ShrinkStep
	}
	c.Splitter = Splitter(splitterDefaults(c.Splitter))
	if c.Import.StepsPerPage == 0 {
		c.Import.StepsPerPage = DefaultStepsPerPage
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = BackendFile
	}
	if c.Cache.TTL.Duration == 0 {
		c.Cache.TTL.Duration = DefaultCacheTTL
	}
	if c.Cache.Redis.Addr == "" {
		c.Cache.Redis.Addr = "localhost:6379"
	}

	if err := c.validate(); err != nil {
		return err
	}
	c.validated = true
	return nil
}

func (c *Config) validate() error {
	if c.Page.Width < 0 || c.Page.Height < 0 {
		return fmt.Errorf("page size %gx%g must be positive", c.Page.Width, c.Page.Height)
	}
	if _, ok := layout.ParseOrientation(c.Page.Orientation); !ok {
		return fmt.Errorf("invalid orientation: %q (must be one of: row, column)", c.Page.Orientation)
	}
	if c.Layout.Margin < 0 || c.Layout.PLIMaxWidth < 0 {
		return fmt.Errorf("margin and pli_max_width must not be negative")
	}
	if c.Layout.ShrinkStep <= 0 || c.Layout.ShrinkStep >= 1 {
		return fmt.Errorf("shrink_step %g must be in (0, 1)", c.Layout.ShrinkStep)
	}
	if c.Layout.ShrinkFloor <= 0 || c.Layout.ShrinkFloor > c.Layout.PreviewScale {
		return fmt.Errorf("shrink_floor %g must be in (0, preview_scale]", c.Layout.ShrinkFloor)
	}
	if c.Import.StepsPerPage < 0 {
		return fmt.Errorf("steps_per_page must not be negative")
	}
	return ValidateBackend(c.Cache.Backend)
}

// ValidateBackend checks a cache backend name.
func ValidateBackend(backend string) error {
	if !ValidBackends[backend] {
		return fmt.Errorf("invalid cache backend: %q (must be one of: none, file, redis)", backend)
	}
	return nil
}

func splitterDefaults(s Splitter) splitter.Options {
	o := splitter.Options(s)
	d := splitter.DefaultOptions()
	if o.TopTolerance == 0 {
		o.TopTolerance = d.TopTolerance
	}
	if o.HeightTolerance == 0 {
		o.HeightTolerance = d.HeightTolerance
	}
	if o.StackTolerance == 0 {
		o.StackTolerance = d.StackTolerance
	}
	if o.AlignTolerance == 0 {
		o.AlignTolerance = d.AlignTolerance
	}
	if o.MaxPerStep == 0 {
		o.MaxPerStep = d.MaxPerStep
	}
	return o
}

// =============================================================================
// Views for the packages that consume the settings
// =============================================================================

// PageSize returns the configured paper size.
func (c *Config) PageSize() geom.Size {
	return geom.Size{W: c.Page.Width, H: c.Page.Height}
}

// PageOptions returns the page layout options.
func (c *Config) PageOptions() layout.PageOptions {
	o, _ := layout.ParseOrientation(c.Page.Orientation)
	return layout.PageOptions{
		Margin:      c.Layout.Margin,
		Orientation: o,
		Separators:  c.Page.Separators,
	}
}

// SplitterOptions returns the step splitter tolerances.
func (c *Config) SplitterOptions() splitter.Options {
	return splitter.Options(c.Splitter)
}

// RedisOptions returns the redis backend connection settings.
func (c *Config) RedisOptions() cache.RedisOptions {
	return cache.RedisOptions{
		Addr:     c.Cache.Redis.Addr,
		Password: c.Cache.Redis.Password,
		DB:       c.Cache.Redis.DB,
	}
}

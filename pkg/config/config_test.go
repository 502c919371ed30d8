package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/brickbook/pkg/errors"
	"github.com/matzehuels/brickbook/pkg/layout"
	"github.com/matzehuels/brickbook/pkg/splitter"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, 794.0, c.Page.Width)
	assert.Equal(t, 1123.0, c.Page.Height)
	assert.Equal(t, DefaultMargin, c.Layout.Margin)
	assert.Equal(t, layout.DefaultShrinkStep, c.Layout.ShrinkFloor)
	assert.Equal(t, splitter.DefaultOptions(), c.SplitterOptions())
	assert.Equal(t, BackendFile, c.Cache.Backend)
	assert.Equal(t, DefaultCacheTTL, c.Cache.TTL.Duration)
	assert.Equal(t, layout.RowMajor, c.PageOptions().Orientation)
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
[page]
width = 600
orientation = "column"
separators = true

[layout]
margin = 4
shrink_floor = 0.4

[splitter]
max_per_step = 3

[import]
keep_steps = true

[cache]
backend = "redis"
ttl = "90m"

[cache.redis]
addr = "cache:6379"
db = 2
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 600.0, c.PageSize().W)
	assert.Equal(t, 1123.0, c.PageSize().H)
	opts := c.PageOptions()
	assert.Equal(t, layout.ColumnMajor, opts.Orientation)
	assert.True(t, opts.Separators)
	assert.Equal(t, 4.0, opts.Margin)
	assert.Equal(t, 0.4, c.Layout.ShrinkFloor)
	assert.Equal(t, 3, c.SplitterOptions().MaxPerStep)
	assert.Equal(t, splitter.DefaultTopTolerance, c.SplitterOptions().TopTolerance)
	assert.True(t, c.Import.KeepSteps)
	assert.Equal(t, 90*time.Minute, c.Cache.TTL.Duration)
	assert.Equal(t, "cache:6379", c.RedisOptions().Addr)
	assert.Equal(t, 2, c.RedisOptions().DB)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code errors.Code
	}{
		{"syntax", "[page\nwidth = 1", errors.ErrCodeInvalidFormat},
		{"unknown key", "[page]\ncolour = 1", errors.ErrCodeInvalidInput},
		{"bad backend", "[cache]\nbackend = \"memcached\"", errors.ErrCodeInvalidInput},
		{"bad orientation", "[page]\norientation = \"diagonal\"", errors.ErrCodeInvalidInput},
		{"bad shrink step", "[layout]\nshrink_step = 1.5", errors.ErrCodeInvalidInput},
		{"floor above start", "[layout]\nshrink_floor = 2", errors.ErrCodeInvalidInput},
		{"bad duration", "[cache]\nttl = \"soon\"", errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "got %v", err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound))
}

func TestLoadOrDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	c, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	_, err = LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestWriteRoundTrip(t *testing.T) {
	c := Default()
	c.Cache.Backend = BackendNone
	var buf bytes.Buffer
	require.NoError(t, c.Write(&buf))

	loaded, err := Load(writeFile(t, buf.String()))
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}

package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/matzehuels/stackload/internal/config"
	"github.com/matzehuels/stackload/pkg/assembler"
	"github.com/matzehuels/stackload/pkg/download"
	"github.com/matzehuels/stackload/pkg/errors"
	"github.com/matzehuels/stackload/pkg/locator"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	viper   *viper.Viper
	cfgFile string
	cfg     config.Config
}

// New creates a new CLI instance logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		viper:  config.New(),
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// Config returns the configuration loaded for the running command.
func (c *CLI) Config() config.Config { return c.cfg }

func (c *CLI) loadConfig() error {
	cfg, used, err := config.Load(c.viper, c.cfgFile)
	if err != nil {
		return err
	}
	c.cfg = cfg
	if used != "" {
		c.Logger.Debug("loaded config", "file", used)
	}
	return nil
}

// =============================================================================
// Assembler Factory
// =============================================================================

// newAssembler wires the configured index, downloader and assembler. The
// returned closer releases the index.
func (c *CLI) newAssembler(ctx context.Context) (*assembler.Assembler, io.Closer, error) {
	idx, err := c.cfg.OpenIndex(ctx)
	if err != nil {
		return nil, nil, err
	}
	d, err := download.New(c.cfg.DownloadDir(), download.Options{
		Index:  idx,
		TTL:    c.cfg.Index.TTL,
		Logger: c.Logger,
	})
	if err != nil {
		idx.Close()
		return nil, nil, err
	}
	a := assembler.New(d, assembler.Options{
		Clean:   c.cfg.Clean,
		Workers: c.cfg.Workers,
		Logger:  c.Logger,
	})
	return a, idx, nil
}

// =============================================================================
// Argument Helpers
// =============================================================================

// parseLocator reads a locator argument: a JSON object, an archive URL,
// or a filesystem path (made absolute).
func parseLocator(s string) (locator.Locator, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return locator.Locator{}, errors.New(errors.ErrCodeInvalidInput, "empty locator")
	case strings.HasPrefix(s, "{"):
		var loc locator.Locator
		dec := json.NewDecoder(strings.NewReader(s))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&loc); err != nil {
			return locator.Locator{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse locator %s", s)
		}
		if loc.Location != "" && !filepath.IsAbs(loc.Location) {
			abs, err := filepath.Abs(loc.Location)
			if err != nil {
				return locator.Locator{}, err
			}
			loc.Location = abs
		}
		return loc, nil
	case strings.Contains(s, "://"):
		return locator.ForArchive(s), nil
	default:
		abs, err := filepath.Abs(s)
		if err != nil {
			return locator.Locator{}, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", s)
		}
		return locator.ForLocation(abs), nil
	}
}

// outputFormat picks the graph format from an output path extension.
func outputFormat(path, fallback string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		return "svg"
	case ".dot", ".gv":
		return "dot"
	}
	return fallback
}

func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

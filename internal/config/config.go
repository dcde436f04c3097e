// Package config loads the imgtool settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/gogpu/imaging"
	"github.com/gogpu/imaging/pixel"
	"github.com/gogpu/imaging/quantize"
	"github.com/gogpu/imaging/resample"
)

const (
	appName  = "imgtool"
	fileName = "config.toml"
)

type Config struct {
	Resample ResampleConfig `koanf:"resample"`
	Quantize QuantizeConfig `koanf:"quantize"`
	JPEG     JPEGConfig     `koanf:"jpeg"`
	PNG      PNGConfig      `koanf:"png"`
	TGA      TGAConfig      `koanf:"tga"`
	Decode   DecodeConfig   `koanf:"decode"`
}

// ResampleConfig holds the resize settings.
type ResampleConfig struct {
	Filter string `koanf:"filter"` // "nearest", "box", "bilinear", "hamming", "bicubic", "lanczos"
}

// QuantizeConfig holds the palette reduction settings.
type QuantizeConfig struct {
	Method string `koanf:"method"` // "mediancut", "maxcoverage" or "octree"
	Colors int    `koanf:"colors"` // 1-256 (default: 256)
	Dither bool   `koanf:"dither"`
}

// JPEGConfig holds the JPEG encoder settings.
type JPEGConfig struct {
	Quality int `koanf:"quality"` // 1-100, 0 for the encoder default
}

// PNGConfig holds the PNG encoder settings.
type PNGConfig struct {
	Compression int `koanf:"compression"` // 0-9, -1 to store
}

// TGAConfig holds the TGA encoder settings.
type TGAConfig struct {
	RLE bool `koanf:"rle"`
}

// DecodeConfig holds the decoder limits.
type DecodeConfig struct {
	MaxPixels int64 `koanf:"max_pixels"` // 0 for the library default, negative for no limit
}

// Load reads the settings files in order of priority (last wins) and applies
// defaults. Missing files are skipped.
func Load() (*Config, error) {
	return LoadFiles(getConfigPaths()...)
}

// LoadFiles is Load over an explicit list of files.
func LoadFiles(paths ...string) (*Config, error) {
	k := koanf.New(".")
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getConfigPaths() []string {
	return []string{
		// 1. $XDG_CONFIG_HOME/imgtool/config.toml
		filepath.Join(xdg.ConfigHome, appName, fileName),
		// 2. ./imgtool.toml (pwd, highest priority)
		appName + ".toml",
	}
}

func (c *Config) applyDefaults() {
	c.Resample.Filter = strings.ToLower(strings.TrimSpace(c.Resample.Filter))
	if c.Resample.Filter == "" {
		c.Resample.Filter = resample.Bicubic.Name
	}
	c.Quantize.Method = strings.ToLower(strings.TrimSpace(c.Quantize.Method))
	if c.Quantize.Method == "" {
		c.Quantize.Method = quantize.MethodMedianCut.String()
	}
	if c.Quantize.Colors == 0 {
		c.Quantize.Colors = quantize.MaxColors
	}
}

func (c *Config) validate() error {
	if _, ok := resample.FilterByName(c.Resample.Filter); !ok {
		return fmt.Errorf("config: resample.filter %q: %w", c.Resample.Filter, pixel.ErrInvalidArgument)
	}
	if _, ok := quantize.ParseMethod(c.Quantize.Method); !ok {
		return fmt.Errorf("config: quantize.method %q: %w", c.Quantize.Method, pixel.ErrInvalidArgument)
	}
	if c.Quantize.Colors < 1 || c.Quantize.Colors > quantize.MaxColors {
		return fmt.Errorf("config: quantize.colors %d: %w", c.Quantize.Colors, pixel.ErrInvalidArgument)
	}
	if c.JPEG.Quality < 0 || c.JPEG.Quality > 100 {
		return fmt.Errorf("config: jpeg.quality %d: %w", c.JPEG.Quality, pixel.ErrInvalidArgument)
	}
	if c.PNG.Compression < -1 || c.PNG.Compression > 9 {
		return fmt.Errorf("config: png.compression %d: %w", c.PNG.Compression, pixel.ErrInvalidArgument)
	}
	return nil
}

// Options returns the settings as façade options.
func (c *Config) Options() []imaging.Option {
	f, _ := resample.FilterByName(c.Resample.Filter)
	m, _ := quantize.ParseMethod(c.Quantize.Method)
	opts := []imaging.Option{
		imaging.WithFilter(f),
		imaging.WithQuantizer(m),
		imaging.WithQuality(c.JPEG.Quality),
		imaging.WithCompression(c.PNG.Compression),
		imaging.WithMaxPixels(c.Decode.MaxPixels),
	}
	if c.Quantize.Dither {
		opts = append(opts, imaging.WithDither())
	}
	if c.TGA.RLE {
		opts = append(opts, imaging.WithRLE())
	}
	return opts
}

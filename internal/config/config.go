// Package config provides configuration types, defaults, and persistence for mdedit.
package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/muesli/termenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"mdedit/internal/style"
	"mdedit/pkg/styled"
)

// FontConfig names a font by family, size and modifiers.
type FontConfig struct {
	Family string  `mapstructure:"family" yaml:"family"`
	Size   float64 `mapstructure:"size" yaml:"size"`
	Bold   bool    `mapstructure:"bold" yaml:"bold"`
	Italic bool    `mapstructure:"italic" yaml:"italic"`
}

type FontsConfig struct {
	Heading1   FontConfig `mapstructure:"heading1" yaml:"heading1"`
	Heading2   FontConfig `mapstructure:"heading2" yaml:"heading2"`
	Body       FontConfig `mapstructure:"body" yaml:"body"`
	ListPrefix FontConfig `mapstructure:"list_prefix" yaml:"list_prefix"`
}

// ColorsConfig holds hex colors, e.g. "#1F6FEB".
type ColorsConfig struct {
	Heading1   string `mapstructure:"heading1" yaml:"heading1"`
	Heading2   string `mapstructure:"heading2" yaml:"heading2"`
	Body       string `mapstructure:"body" yaml:"body"`
	Link       string `mapstructure:"link" yaml:"link"`
	ListPrefix string `mapstructure:"list_prefix" yaml:"list_prefix"`
}

type ParagraphConfig struct {
	FirstLineHeadIndent float64 `mapstructure:"first_line_head_indent" yaml:"first_line_head_indent"`
	HeadIndent          float64 `mapstructure:"head_indent" yaml:"head_indent"`
	TabStop             float64 `mapstructure:"tab_stop" yaml:"tab_stop"`
	SpacingBefore       float64 `mapstructure:"spacing_before" yaml:"spacing_before"`
	Spacing             float64 `mapstructure:"spacing" yaml:"spacing"`
	LineSpacing         float64 `mapstructure:"line_spacing" yaml:"line_spacing"`
}

type ParagraphsConfig struct {
	Heading1 ParagraphConfig `mapstructure:"heading1" yaml:"heading1"`
	Heading2 ParagraphConfig `mapstructure:"heading2" yaml:"heading2"`
	Body     ParagraphConfig `mapstructure:"body" yaml:"body"`
}

type ListItemsConfig struct {
	MaxPrefixDigits    int     `mapstructure:"max_prefix_digits" yaml:"max_prefix_digits"`
	SpacingAfterPrefix float64 `mapstructure:"spacing_after_prefix" yaml:"spacing_after_prefix"`
	SpacingAbove       float64 `mapstructure:"spacing_above" yaml:"spacing_above"`
	SpacingBelow       float64 `mapstructure:"spacing_below" yaml:"spacing_below"`
}

// StyleConfig mirrors style.Configuration in a file friendly shape.
type StyleConfig struct {
	Fonts      FontsConfig      `mapstructure:"fonts" yaml:"fonts"`
	Colors     ColorsConfig     `mapstructure:"colors" yaml:"colors"`
	Paragraphs ParagraphsConfig `mapstructure:"paragraphs" yaml:"paragraphs"`
	ListItems  ListItemsConfig  `mapstructure:"list_items" yaml:"list_items"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"` // debug, info, warn or error
}

type RenderConfig struct {
	ColorProfile string `mapstructure:"color_profile" yaml:"color_profile"` // auto, ascii, ansi, ansi256 or truecolor
	Width        int    `mapstructure:"width" yaml:"width"`
	Height       int    `mapstructure:"height" yaml:"height"`
}

type SnapshotConfig struct {
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// Config holds all configuration options for mdedit.
type Config struct {
	Style    StyleConfig    `mapstructure:"style" yaml:"style"`
	Metrics  string         `mapstructure:"metrics" yaml:"metrics"` // cells or opentype
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Render   RenderConfig   `mapstructure:"render" yaml:"render"`
	Snapshot SnapshotConfig `mapstructure:"snapshot" yaml:"snapshot"`
}

const (
	MetricsCells    = "cells"
	MetricsOpenType = "opentype"
)

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Style:   FromStyle(style.Default()),
		Metrics: MetricsCells,
		Log:     LogConfig{Level: "info"},
		Render: RenderConfig{
			ColorProfile: "auto",
			Width:        80,
			Height:       24,
		},
		Snapshot: SnapshotConfig{Compress: true},
	}
}

// FromStyle converts a style configuration into its file form.
func FromStyle(c style.Configuration) StyleConfig {
	font := func(f style.Font) FontConfig {
		return FontConfig{Family: f.Family, Size: f.Size, Bold: f.Bold, Italic: f.Italic}
	}
	para := func(p styled.ParagraphStyle) ParagraphConfig {
		return ParagraphConfig{
			FirstLineHeadIndent: p.FirstLineHeadIndent,
			HeadIndent:          p.HeadIndent,
			TabStop:             p.TabStop,
			SpacingBefore:       p.SpacingBefore,
			Spacing:             p.Spacing,
			LineSpacing:         p.LineSpacing,
		}
	}
	return StyleConfig{
		Fonts: FontsConfig{
			Heading1:   font(c.Fonts.Heading1),
			Heading2:   font(c.Fonts.Heading2),
			Body:       font(c.Fonts.Body),
			ListPrefix: font(c.Fonts.ListPrefix),
		},
		Colors: ColorsConfig{
			Heading1:   style.HexColor(c.Colors.Heading1),
			Heading2:   style.HexColor(c.Colors.Heading2),
			Body:       style.HexColor(c.Colors.Body),
			Link:       style.HexColor(c.Colors.Link),
			ListPrefix: style.HexColor(c.Colors.ListPrefix),
		},
		Paragraphs: ParagraphsConfig{
			Heading1: para(c.Paragraphs.Heading1),
			Heading2: para(c.Paragraphs.Heading2),
			Body:     para(c.Paragraphs.Body),
		},
		ListItems: ListItemsConfig{
			MaxPrefixDigits:    c.ListItems.MaxPrefixDigits,
			SpacingAfterPrefix: c.ListItems.SpacingAfterPrefix,
			SpacingAbove:       c.ListItems.SpacingAbove,
			SpacingBelow:       c.ListItems.SpacingBelow,
		},
	}
}

// StyleConfiguration parses colors and returns the validated style
// configuration.
func (c Config) StyleConfiguration() (style.Configuration, error) {
	s := c.Style
	font := func(f FontConfig) style.Font {
		return style.Font{Family: f.Family, Size: f.Size, Bold: f.Bold, Italic: f.Italic}
	}
	para := func(p ParagraphConfig) styled.ParagraphStyle {
		return styled.ParagraphStyle{
			FirstLineHeadIndent: p.FirstLineHeadIndent,
			HeadIndent:          p.HeadIndent,
			TabStop:             p.TabStop,
			SpacingBefore:       p.SpacingBefore,
			Spacing:             p.Spacing,
			LineSpacing:         p.LineSpacing,
		}
	}

	out := style.Configuration{
		Fonts: style.Fonts{
			Heading1:   font(s.Fonts.Heading1),
			Heading2:   font(s.Fonts.Heading2),
			Body:       font(s.Fonts.Body),
			ListPrefix: font(s.Fonts.ListPrefix),
		},
		Paragraphs: style.ParagraphStyles{
			Heading1: para(s.Paragraphs.Heading1),
			Heading2: para(s.Paragraphs.Heading2),
			Body:     para(s.Paragraphs.Body),
		},
		ListItems: style.ListItemOptions{
			MaxPrefixDigits:    s.ListItems.MaxPrefixDigits,
			SpacingAfterPrefix: s.ListItems.SpacingAfterPrefix,
			SpacingAbove:       s.ListItems.SpacingAbove,
			SpacingBelow:       s.ListItems.SpacingBelow,
		},
	}
	var err error
	parse := func(key, hex string) color.RGBA {
		v, perr := style.ParseColor(hex)
		if perr != nil && err == nil {
			err = fmt.Errorf("style.colors.%s: %w", key, perr)
		}
		return v
	}
	out.Colors = style.Colors{
		Heading1:   parse("heading1", s.Colors.Heading1),
		Heading2:   parse("heading2", s.Colors.Heading2),
		Body:       parse("body", s.Colors.Body),
		Link:       parse("link", s.Colors.Link),
		ListPrefix: parse("list_prefix", s.Colors.ListPrefix),
	}
	if err != nil {
		return style.Configuration{}, err
	}
	if err := out.Validate(); err != nil {
		return style.Configuration{}, err
	}
	return out, nil
}

// Measurer returns the text measurer selected by the metrics key.
func (c Config) Measurer() (style.Measurer, error) {
	switch strings.ToLower(c.Metrics) {
	case "", MetricsCells:
		return style.Cells{}, nil
	case MetricsOpenType:
		return style.NewOpenType()
	}
	return nil, fmt.Errorf("metrics: unknown measurer %q", c.Metrics)
}

// Sheet builds the style sheet described by c.
func (c Config) Sheet() (*style.Sheet, error) {
	cfg, err := c.StyleConfiguration()
	if err != nil {
		return nil, err
	}
	m, err := c.Measurer()
	if err != nil {
		return nil, err
	}
	return style.NewSheet(cfg, m)
}

// ColorProfile resolves render.color_profile. "auto" asks the environment.
func (c Config) ColorProfile() (termenv.Profile, error) {
	switch strings.ToLower(c.Render.ColorProfile) {
	case "", "auto":
		return termenv.EnvColorProfile(), nil
	case "ascii", "none":
		return termenv.Ascii, nil
	case "ansi":
		return termenv.ANSI, nil
	case "ansi256":
		return termenv.ANSI256, nil
	case "truecolor":
		return termenv.TrueColor, nil
	}
	return termenv.Ascii, fmt.Errorf("render.color_profile: unknown profile %q", c.Render.ColorProfile)
}

// SetDefaults seeds v with every key of cfg so that partial files and
// environment overrides merge over complete defaults.
func SetDefaults(v *viper.Viper, cfg Config) error {
	flat, err := flatten(cfg)
	if err != nil {
		return err
	}
	for _, key := range sortedKeys(flat) {
		v.SetDefault(key, flat[key])
	}
	return nil
}

// Load unmarshals the merged configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if _, err := cfg.StyleConfiguration(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultConfigTemplate returns the default config as YAML with a header.
func DefaultConfigTemplate() (string, error) {
	data, err := yaml.Marshal(Defaults())
	if err != nil {
		return "", fmt.Errorf("encoding defaults: %w", err)
	}
	return "# mdedit configuration\n#\n# Sizes and spacings are in measurer units: terminal cells with\n# metrics: cells, points with metrics: opentype.\n\n" + string(data), nil
}

// WriteDefault creates a config file at path with default settings.
// Creates the parent directory if it doesn't exist.
func WriteDefault(path string) error {
	tmpl, err := DefaultConfigTemplate()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(tmpl), 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// DefaultPath is the per-user config file.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "mdedit", "config.yaml"), nil
}

// flatten turns cfg into dot separated keys by way of its YAML form.
func flatten(cfg Config) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	out := make(map[string]any)
	flattenInto("", tree, out)
	return out, nil
}

func flattenInto(prefix string, m map[string]any, out map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flattenInto(key, nested, out)
			continue
		}
		out[key] = v
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

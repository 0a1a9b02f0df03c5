// Package config defines the configuration file of the avrecode CLI.
// Decoding is strict and every field has an explicit default.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/xaionaro-go/typing"
	"gopkg.in/yaml.v3"

	"github.com/xaionaro-go/avrecode/channellayout"
	"github.com/xaionaro-go/avrecode/codec"
	"github.com/xaionaro-go/avrecode/pipeline"
	"github.com/xaionaro-go/avrecode/types"
)

const (
	DefaultLogLevel = "warning"
)

// Config is the complete configuration of one transcoding run.
type Config struct {
	Input   InputConfig   `yaml:"input"`
	Output  OutputConfig  `yaml:"output"`
	Decoder DecoderConfig `yaml:"decoder"`
	Encoder EncoderConfig `yaml:"encoder"`

	// Filter is a filter description, e.g. "volume=0.5,aresample=48000".
	Filter string `yaml:"filter,omitempty"`

	LogLevel string `yaml:"log_level,omitempty"`

	// MetricsListenAddr enables the prometheus endpoint if set.
	MetricsListenAddr string `yaml:"metrics_listen_addr,omitempty"`

	// StatsInterval makes the CLI log the statistics periodically; zero
	// disables it.
	StatsInterval time.Duration `yaml:"stats_interval,omitempty"`
}

type InputConfig struct {
	// StreamIndex selects the stream; unset selects the first audio one.
	StreamIndex *int                  `yaml:"stream_index,omitempty"`
	Format      string                `yaml:"format,omitempty"`
	Options     types.DictionaryItems `yaml:"options,omitempty"`
}

type OutputConfig struct {
	Format  string                `yaml:"format,omitempty"`
	Options types.DictionaryItems `yaml:"options,omitempty"`
}

type DecoderConfig struct {
	TimeBase types.Rational        `yaml:"time_base,omitempty"`
	Threads  ThreadsConfig         `yaml:"threads,omitempty"`
	Options  types.DictionaryItems `yaml:"options,omitempty"`
}

type EncoderConfig struct {
	// Codec is the encoder name; empty re-encodes with the input codec.
	Codec         string                `yaml:"codec,omitempty"`
	SampleFormat  *types.SampleFormat   `yaml:"sample_format,omitempty"`
	SampleRate    int                   `yaml:"sample_rate,omitempty"`
	ChannelLayout channellayout.Layout  `yaml:"channel_layout,omitempty"`
	BitRate       int64                 `yaml:"bit_rate,omitempty"`
	TimeBase      types.Rational        `yaml:"time_base,omitempty"`
	Threads       ThreadsConfig         `yaml:"threads,omitempty"`
	Options       types.DictionaryItems `yaml:"options,omitempty"`
}

type ThreadsConfig struct {
	Count int    `yaml:"count,omitempty"`
	Type  string `yaml:"type,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load reads the configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes the configuration rejecting unknown fields; an empty
// document yields Default.
func Parse(r io.Reader) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.setDefaults()
	return &cfg, nil
}

// Bytes encodes the configuration back to YAML.
func (c *Config) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *Config) setDefaults() {
	if !c.Decoder.TimeBase.IsValid() || c.Decoder.TimeBase.IsZero() {
		c.Decoder.TimeBase = types.TimeBaseMicroseconds
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// PipelineConfig converts the configuration into the transcoder settings.
func (c *Config) PipelineConfig() (pipeline.Config, error) {
	threadType, err := codec.ThreadTypeFromString(c.Decoder.Threads.Type)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("decoder threads: %w", err)
	}
	if c.Encoder.Threads.Type != "" && c.Encoder.Threads.Type != c.Decoder.Threads.Type {
		return pipeline.Config{}, fmt.Errorf("decoder and encoder thread types differ: '%s' != '%s'", c.Decoder.Threads.Type, c.Encoder.Threads.Type)
	}

	cfg := pipeline.Config{
		DecoderTimeBase:   c.Decoder.TimeBase,
		DecoderOptions:    c.Decoder.Options.Clone(),
		EncoderName:       c.Encoder.Codec,
		SampleRate:        c.Encoder.SampleRate,
		ChannelLayout:     c.Encoder.ChannelLayout.Clone(),
		BitRate:           c.Encoder.BitRate,
		EncoderTimeBase:   c.Encoder.TimeBase,
		EncoderOptions:    c.Encoder.Options.Clone(),
		FilterDescription: c.Filter,
		ThreadCount:       c.Decoder.Threads.Count,
		ThreadType:        threadType,
	}
	if c.Input.StreamIndex != nil {
		cfg.StreamIndex = typing.Opt(*c.Input.StreamIndex)
	}
	if c.Encoder.SampleFormat != nil {
		cfg.SampleFormat = typing.Opt(*c.Encoder.SampleFormat)
	}
	if c.Encoder.Threads.Count > cfg.ThreadCount {
		cfg.ThreadCount = c.Encoder.Threads.Count
	}
	return cfg, nil
}

package config

import (
	"fmt"

	"github.com/xaionaro-go/avrecode/codec"
	"github.com/xaionaro-go/avrecode/filter"
	"github.com/xaionaro-go/avrecode/logger"
)

// Validate returns an error describing the first invalid value found.
func (c *Config) Validate() error {
	var level logger.Level
	if err := level.Set(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.Input.StreamIndex != nil && *c.Input.StreamIndex < 0 {
		return fmt.Errorf("input.stream_index must not be negative, got %d", *c.Input.StreamIndex)
	}
	if err := c.Decoder.Validate(); err != nil {
		return fmt.Errorf("decoder config: %w", err)
	}
	if err := c.Encoder.Validate(); err != nil {
		return fmt.Errorf("encoder config: %w", err)
	}
	if _, err := filter.ParseDescription(c.Filter); err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	if c.StatsInterval < 0 {
		return fmt.Errorf("stats_interval must not be negative, got %v", c.StatsInterval)
	}
	return nil
}

func (d *DecoderConfig) Validate() error {
	if !d.TimeBase.IsValid() || d.TimeBase.Num <= 0 {
		return fmt.Errorf("time_base must be positive, got %s", d.TimeBase)
	}
	return d.Threads.Validate()
}

func (e *EncoderConfig) Validate() error {
	if e.SampleFormat != nil && !e.SampleFormat.IsValid() {
		return fmt.Errorf("sample_format %s is not valid", e.SampleFormat)
	}
	if e.SampleRate < 0 {
		return fmt.Errorf("sample_rate must not be negative, got %d", e.SampleRate)
	}
	if !e.ChannelLayout.IsZeroed() {
		if err := e.ChannelLayout.Check(); err != nil {
			return fmt.Errorf("channel_layout: %w", err)
		}
	}
	if e.BitRate < 0 {
		return fmt.Errorf("bit_rate must not be negative, got %d", e.BitRate)
	}
	if e.TimeBase.Den != 0 && (!e.TimeBase.IsValid() || e.TimeBase.Num <= 0) {
		return fmt.Errorf("time_base must be positive, got %s", e.TimeBase)
	}
	return e.Threads.Validate()
}

func (t *ThreadsConfig) Validate() error {
	if t.Count < 0 {
		return fmt.Errorf("threads.count must not be negative, got %d", t.Count)
	}
	if _, err := codec.ThreadTypeFromString(t.Type); err != nil {
		return fmt.Errorf("threads.type: %w", err)
	}
	return nil
}

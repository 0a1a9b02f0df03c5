// option.go defines the options of Init.

package avrecode

import (
	"github.com/xaionaro-go/avrecode/codec/pcm"
)

type Config struct {
	// DisableLibav keeps the registry limited to the in-process coders.
	DisableLibav bool
	PCM          pcm.Config
}

func defaultConfig() Config {
	return Config{}
}

type Option interface {
	apply(*Config)
}
type Options []Option

func (opts Options) apply(cfg *Config) {
	for _, opt := range opts {
		opt.apply(cfg)
	}
}

func (opts Options) config() Config {
	cfg := defaultConfig()
	opts.apply(&cfg)
	return cfg
}

type OptionDisableLibav bool

func (o OptionDisableLibav) apply(cfg *Config) {
	cfg.DisableLibav = bool(o)
}

type OptionPCMConfig pcm.Config

func (o OptionPCMConfig) apply(cfg *Config) {
	cfg.PCM = pcm.Config(o)
}

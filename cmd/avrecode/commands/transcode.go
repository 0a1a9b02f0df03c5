package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/secret"

	"github.com/xaionaro-go/avrecode"
	"github.com/xaionaro-go/avrecode/channellayout"
	"github.com/xaionaro-go/avrecode/config"
	formatlibav "github.com/xaionaro-go/avrecode/format/libav"
	"github.com/xaionaro-go/avrecode/logger"
	"github.com/xaionaro-go/avrecode/pipeline"
	"github.com/xaionaro-go/avrecode/types"
)

func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	cfg := config.Default()
	path, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	if path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}

	if err := applyFlags(flags, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyFlags overrides the values of cfg by the flags set explicitly.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	var errs []error
	set := func(name string, fn func() error) {
		if !flags.Changed(name) {
			return
		}
		if err := fn(); err != nil {
			errs = append(errs, fmt.Errorf("flag '--%s': %w", name, err))
		}
	}

	set("encoder", func() (err error) {
		cfg.Encoder.Codec, err = flags.GetString("encoder")
		return
	})
	set("stream-index", func() error {
		v, err := flags.GetInt("stream-index")
		if err != nil {
			return err
		}
		if v < 0 {
			cfg.Input.StreamIndex = nil
			return nil
		}
		cfg.Input.StreamIndex = &v
		return nil
	})
	set("sample-format", func() error {
		s, err := flags.GetString("sample-format")
		if err != nil {
			return err
		}
		f, err := types.SampleFormatFromString(s)
		if err != nil {
			return err
		}
		cfg.Encoder.SampleFormat = &f
		return nil
	})
	set("sample-rate", func() (err error) {
		cfg.Encoder.SampleRate, err = flags.GetInt("sample-rate")
		return
	})
	set("channel-layout", func() error {
		s, err := flags.GetString("channel-layout")
		if err != nil {
			return err
		}
		cfg.Encoder.ChannelLayout, err = channellayout.FromName(s)
		return err
	})
	set("bit-rate", func() (err error) {
		cfg.Encoder.BitRate, err = flags.GetInt64("bit-rate")
		return
	})
	set("filter", func() (err error) {
		cfg.Filter, err = flags.GetString("filter")
		return
	})
	set("input-format", func() (err error) {
		cfg.Input.Format, err = flags.GetString("input-format")
		return
	})
	set("output-format", func() (err error) {
		cfg.Output.Format, err = flags.GetString("output-format")
		return
	})
	set("metrics-listen-addr", func() (err error) {
		cfg.MetricsListenAddr, err = flags.GetString("metrics-listen-addr")
		return
	})
	set("stats-interval", func() (err error) {
		cfg.StatsInterval, err = flags.GetDuration("stats-interval")
		return
	})
	set("log-level", func() error {
		cfg.LogLevel = LoggerLevel.String()
		return nil
	})
	return errors.Join(errs...)
}

func transcode(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	inputURL, outputURL := args[0], args[1]

	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	var level logger.Level
	if err := level.Set(cfg.LogLevel); err != nil {
		return err
	}
	ctx = logger.CtxWithLogger(ctx, logger.FromCtx(ctx).WithLevel(level))
	logger.Debugf(ctx, "config: %#+v", cfg)

	pipelineCfg, err := cfg.PipelineConfig()
	if err != nil {
		return err
	}

	r := avrecode.Init(ctx)

	demuxerCfg := formatlibav.DemuxerConfig{CustomOptions: cfg.Input.Options.Clone()}
	if cfg.Input.Format != "" {
		demuxerCfg.CustomOptions.Set("f", cfg.Input.Format)
	}
	demuxer, err := r.OpenInput(ctx, inputURL, secret.New(""), demuxerCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := demuxer.Close(ctx); err != nil {
			logger.Errorf(ctx, "unable to close the input: %v", err)
		}
	}()

	muxer, err := r.OpenOutput(ctx, outputURL, secret.New(""), formatlibav.MuxerConfig{
		FormatName:    cfg.Output.Format,
		CustomOptions: cfg.Output.Options.Clone(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := muxer.Close(ctx); err != nil {
			logger.Errorf(ctx, "unable to close the output: %v", err)
		}
	}()

	if cfg.MetricsListenAddr != "" {
		pipelineCfg.Metrics, err = serveMetrics(ctx, cfg.MetricsListenAddr)
		if err != nil {
			return err
		}
	}

	tr, err := r.NewTranscoder(ctx, demuxer, muxer, pipelineCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := tr.Close(ctx); err != nil {
			logger.Errorf(ctx, "unable to close the transcoder: %v", err)
		}
	}()
	logger.Infof(ctx, "transcoding %s to %s", tr.InputStream(), tr.EncoderParameters(ctx))

	if cfg.StatsInterval > 0 {
		ctx, cancelFn := context.WithCancel(ctx)
		defer cancelFn()
		observability.Go(ctx, func(ctx context.Context) {
			reportStatistics(ctx, tr, cfg.StatsInterval)
		})
	}

	startedAt := time.Now()
	err = tr.Run(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "%s in %v\n", tr.Statistics(), time.Since(startedAt).Round(time.Millisecond))
	return err
}

func reportStatistics(ctx context.Context, tr *pipeline.Transcoder, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tr.DrainedChan():
			return
		case <-t.C:
			logger.Infof(ctx, "%s", tr.Statistics())
		}
	}
}

func serveMetrics(ctx context.Context, addr string) (*pipeline.Metrics, error) {
	registry := prometheus.NewRegistry()
	metrics := pipeline.NewMetrics()
	if err := metrics.Register(registry); err != nil {
		return nil, fmt.Errorf("unable to register the metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	observability.Go(ctx, func(ctx context.Context) {
		logger.Infof(ctx, "serving metrics at '%s'", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf(ctx, "unable to serve the metrics: %v", err)
		}
	})
	observability.Go(ctx, func(ctx context.Context) {
		<-ctx.Done()
		if err := srv.Close(); err != nil {
			logger.Errorf(ctx, "unable to close the metrics server: %v", err)
		}
	})
	return metrics, nil
}

package commands

import (
	"context"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/spf13/cobra"
	"github.com/xaionaro-go/observability"

	"github.com/xaionaro-go/avrecode/logger"
)

var (
	// Access these variables only from a main package:

	Root = &cobra.Command{
		Use:          os.Args[0],
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			l := logger.FromCtx(ctx).WithLevel(LoggerLevel)
			ctx = logger.CtxWithLogger(ctx, l)
			cmd.SetContext(ctx)
			logger.Debugf(ctx, "log-level: %v", LoggerLevel)

			netPprofAddr, err := cmd.Flags().GetString("go-net-pprof-addr")
			if err != nil {
				l.Errorf("unable to get the value of the flag 'go-net-pprof-addr': %v", err)
			}
			if netPprofAddr != "" {
				observability.Go(ctx, func(ctx context.Context) {
					l.Infof("starting to listen for net/pprof requests at '%s'", netPprofAddr)
					l.Error(http.ListenAndServe(netPprofAddr, nil))
				})
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			logger.Debug(ctx, "end")
		},
	}

	Transcode = &cobra.Command{
		Use:   "transcode <input-URL> <output-URL>",
		Short: "re-encode the audio stream of the input into the output",
		Args:  cobra.ExactArgs(2),
		RunE:  transcode,
	}

	Layout = &cobra.Command{
		Use:   "layout",
		Short: "inspect channel layouts",
	}

	LayoutDescribe = &cobra.Command{
		Use:  "describe <layout>",
		Args: cobra.ExactArgs(1),
		RunE: layoutDescribe,
	}

	LayoutBest = &cobra.Command{
		Use:   "best <layout> [layout...]",
		Short: "pick the layout with the most channels not exceeding --max",
		Args:  cobra.MinimumNArgs(1),
		RunE:  layoutBest,
	}

	LayoutList = &cobra.Command{
		Use:  "list",
		Args: cobra.ExactArgs(0),
		RunE: layoutList,
	}

	Codecs = &cobra.Command{
		Use:  "codecs",
		Args: cobra.ExactArgs(0),
		RunE: codecs,
	}

	LoggerLevel = logger.LevelWarning
)

func init() {
	Root.PersistentFlags().Var(&LoggerLevel, "log-level", "")
	Root.PersistentFlags().String("go-net-pprof-addr", "", "address to listen to for net/pprof requests")

	Root.AddCommand(Transcode)
	Transcode.Flags().String("config", "", "path to a YAML configuration file")
	Transcode.Flags().String("encoder", "", "encoder name (default: the codec of the input)")
	Transcode.Flags().Int("stream-index", -1, "input stream index (default: the first audio stream)")
	Transcode.Flags().String("sample-format", "", "output sample format")
	Transcode.Flags().Int("sample-rate", 0, "output sample rate")
	Transcode.Flags().String("channel-layout", "", "output channel layout")
	Transcode.Flags().Int64("bit-rate", 0, "output bit rate")
	Transcode.Flags().String("filter", "", "filter description, e.g. 'volume=0.5,aresample=48000'")
	Transcode.Flags().String("input-format", "", "force the input container format")
	Transcode.Flags().String("output-format", "", "force the output container format")
	Transcode.Flags().String("metrics-listen-addr", "", "address to serve prometheus metrics at")
	Transcode.Flags().Duration("stats-interval", 0, "log the statistics this often")

	Root.AddCommand(Layout)
	Layout.AddCommand(LayoutDescribe)
	Layout.AddCommand(LayoutBest)
	LayoutBest.Flags().Int("max", 2, "the maximal number of channels")
	Layout.AddCommand(LayoutList)

	Root.AddCommand(Codecs)
	Codecs.Flags().Bool("encoders", false, "list only encoders")
	Codecs.Flags().Bool("decoders", false, "list only decoders")
}

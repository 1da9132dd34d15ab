package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/pipeframe/pipeframe/codec"
	"github.com/pipeframe/pipeframe/frame"
	"github.com/spf13/cobra"
)

var (
	logLevel    string
	traceFrames bool
)

var rootCmd = &cobra.Command{
	Use:   "pipeframe",
	Short: "pipeframe is a utility for working with framed message channels",
	Long: `pipeframe runs and talks to command servers over framed message
channels. Addresses select the transport by scheme:

	unix:///tmp/agent.sock
	tcp://127.0.0.1:9000
	ws://127.0.0.1:8080
	quic://127.0.0.1:9001
	fifo:///tmp/agent
	stdio:
	/ip4/127.0.0.1/tcp/9000

The PIPEFRAME_CODEC environment variable selects the value codec used by
send and recv: cbor (default) or json.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var level slog.Level
		if err := level.UnmarshalText([]byte(logLevel)); err != nil {
			return err
		}
		h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		slog.SetDefault(slog.New(h))
		if traceFrames {
			frame.Debug = os.Stderr
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&traceFrames, "trace-frames", false, "print frame headers to stderr")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(recvCmd)
	rootCmd.AddCommand(benchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// valueCodec returns the codec named by PIPEFRAME_CODEC.
func valueCodec() (codec.Codec, error) {
	name := os.Getenv("PIPEFRAME_CODEC")
	c, ok := codec.ByName(name)
	if !ok {
		return nil, fmt.Errorf("unknown codec %q", name)
	}
	if name != "" {
		slog.Debug("using codec", "codec", name)
	}
	return &codec.FrameCodec{Codec: c}, nil
}

package main

import (
	"strconv"
	"time"

	"github.com/pipeframe/pipeframe/command"
	"github.com/pipeframe/pipeframe/frame"
	"github.com/pipeframe/pipeframe/transport"
	"github.com/spf13/cobra"
)

var (
	serveMaxMessage int
	serveMaxFrame   int
)

var serveCmd = &cobra.Command{
	Use:   "serve <addr>",
	Short: "run a command server",
	Long: `Run a command server on addr with the built-in commands:

	ping           responds OK with the server time
	echo           responds OK with the request parameters
	sum a=N b=M    responds OK with sum=N+M`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := transport.Listen(args[0])
		if err != nil {
			return err
		}
		srv := command.NewServer(builtins(), command.WithFrameOptions(
			[]frame.ReaderOption{frame.WithMaxMessageSize(serveMaxMessage)},
			[]frame.WriterOption{frame.WithMaxFramePayload(serveMaxFrame)},
		))
		return srv.Serve(cmd.Context(), l)
	},
}

func init() {
	serveCmd.Flags().IntVar(&serveMaxMessage, "max-message", frame.DefaultMaxMessageSize, "largest request accepted, in bytes")
	serveCmd.Flags().IntVar(&serveMaxFrame, "max-frame", frame.DefaultMaxFramePayload, "largest frame payload written, in bytes")
}

func builtins() *command.RespondMux {
	mux := command.NewRespondMux()
	mux.HandleFunc("ping", func(r command.Responder, req *command.Request) {
		r.Return(map[string]string{"time": time.Now().UTC().Format(time.RFC3339Nano)})
	})
	mux.HandleFunc("echo", func(r command.Responder, req *command.Request) {
		r.Return(req.Params)
	})
	mux.HandleFunc("sum", func(r command.Responder, req *command.Request) {
		var args struct {
			A int64 `param:"a"`
			B int64 `param:"b"`
		}
		if err := req.Bind(&args); err != nil {
			r.Fail(err)
			return
		}
		r.Return(map[string]string{"sum": strconv.FormatInt(args.A+args.B, 10)})
	})
	return mux
}

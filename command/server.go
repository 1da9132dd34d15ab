package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/google/uuid"
	"github.com/pipeframe/pipeframe/frame"
	"github.com/pipeframe/pipeframe/transport"
	"golang.org/x/sync/errgroup"
)

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithFrameOptions sets the options of the frame reader and writer used on
// every channel.
func WithFrameOptions(ropts []frame.ReaderOption, wopts []frame.WriterOption) ServerOption {
	return func(s *Server) {
		s.ropts = ropts
		s.wopts = wopts
	}
}

// Server wraps a Handler to respond to command requests. Each channel is
// served by its own goroutine, one request at a time.
type Server struct {
	handler Handler
	logger  Logger
	ropts   []frame.ReaderOption
	wopts   []frame.WriterOption
}

// NewServer returns a Server dispatching requests to h. If h is nil, an
// empty RespondMux is used.
func NewServer(h Handler, opts ...ServerOption) *Server {
	if h == nil {
		h = NewRespondMux()
	}
	s := &Server{
		handler: h,
		logger:  defaultLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve accepts channels until the listener fails or ctx is canceled, and
// serves each in its own goroutine. It closes the listener and waits for
// served channels before returning. Cancellation returns nil.
func (s *Server) Serve(ctx context.Context, l transport.Listener) error {
	g, ctx := errgroup.WithContext(ctx)
	s.logger.Info("server started", "addr", addrString(l.Addr()))

	stop := context.AfterFunc(ctx, func() {
		l.Close()
	})
	defer stop()

	g.Go(func() error {
		for {
			ch, err := l.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("accept error", "error", err)
				return err
			}
			g.Go(func() error {
				s.ServeChannel(ctx, ch)
				return nil
			})
		}
	})

	err := g.Wait()
	l.Close()
	s.logger.Info("server stopped", "addr", addrString(l.Addr()))
	return err
}

// ServeChannel reads requests from ch and writes responses until the peer
// closes the channel, an error occurs or ctx is canceled. The channel is
// closed on return. A clean close by the peer returns nil.
func (s *Server) ServeChannel(ctx context.Context, ch transport.Channel) error {
	id := uuid.New().String()
	conn := frame.NewConn(ch, s.ropts, s.wopts)
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	s.logger.Info("channel opened", "conn", id)
	for {
		msg, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				s.logger.Info("channel closed", "conn", id)
				return nil
			}
			s.logger.Info("channel closed with error", "conn", id, "error", err)
			return err
		}

		var req Request
		resp := &responder{write: func(r *Response) error {
			b, err := r.MarshalBinary()
			if err != nil {
				return err
			}
			return conn.WriteMessage(b)
		}}
		if err := req.UnmarshalBinary(msg); err != nil {
			s.logger.Warn("bad request", "conn", id, "error", err)
			if err := resp.Fail(err); err != nil {
				return err
			}
			continue
		}
		resp.id = req.ID

		s.logger.Debug("request", "conn", id, "id", req.ID, "name", req.Name)
		s.respond(resp, &req)
		if !resp.responded {
			resp.Return(nil)
		}
		if resp.err != nil {
			s.logger.Info("channel closed with error", "conn", id, "error", resp.err)
			return resp.err
		}
	}
}

// respond runs the handler, turning a panic into an ERROR response.
func (s *Server) respond(resp *responder, req *Request) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("handler panic", "name", req.Name, "panic", p)
			resp.Fail(fmt.Errorf("panic: %v", p))
		}
	}()
	s.handler.RespondCommand(resp, req)
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}

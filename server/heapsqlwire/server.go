package heapsqlwire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/tuannm99/heapsql/internal/sql/executor"
)

// Executor runs one SQL statement. *heapsql.Database satisfies it.
type Executor interface {
	Exec(sql string) (*executor.Result, error)
}

// Server answers length-prefixed JSON requests over TCP. All connections
// share one Executor, so DDL from one session is visible to the others.
type Server struct {
	exec Executor
	log  *slog.Logger

	// IdleTimeout closes connections that send nothing for this long
	// (0 = never).
	IdleTimeout time.Duration

	wg sync.WaitGroup
}

func NewServer(exec Executor, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{exec: exec, log: log.With("component", "wire")}
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then closes every open
// connection and waits for their handlers.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info("heapsql tcp server listening", "addr", ln.Addr().String())

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer s.wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.log.Warn("accept failed", "err", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.ServeConn(ctx, conn)
		}()
	}
}

// ServeConn runs the request loop of one connection until the peer hangs up,
// a frame is malformed or ctx is done.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	remote := "pipe"
	if a := conn.RemoteAddr(); a != nil {
		remote = a.String()
	}
	log := s.log.With("remote", remote)
	log.Debug("connection opened")
	defer log.Debug("connection closed")

	for {
		if s.IdleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.IdleTimeout))
		}

		var req ExecuteRequest
		if err := ReadFrame(conn, &req); err != nil {
			// client closed or bad frame
			return
		}

		resp := ExecuteResponse{ID: req.ID}
		res, err := s.exec.Exec(req.SQL)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Result = res
		}

		if err := WriteFrame(conn, resp); err != nil {
			log.Warn("write response failed", "id", req.ID, "err", err)
			return
		}
	}
}

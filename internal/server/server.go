// Package server runs the TCP accept loop and the fixed-size worker pool
// that services connections (spec §4.5). Grounded on vfs/server.go's
// StartServer accept-loop-per-connection shape, bounded the way
// go-storage/internal/middleware/limit.go's channel semaphore bounds
// concurrent uploads, with SO_REUSEADDR wired through
// golang.org/x/sys/unix the way a production listener is configured.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/keaganluttrell/cape/internal/credentials"
	"github.com/keaganluttrell/cape/internal/dispatch"
	"github.com/keaganluttrell/cape/internal/sandbox"
	"github.com/keaganluttrell/cape/internal/wire"
)

// Server listens on a TCP port and dispatches every accepted connection to a
// fixed-size pool of worker goroutines.
type Server struct {
	addr    string
	timeout time.Duration
	store   *credentials.Store
	fsys    *sandbox.Sandbox
	log     *slog.Logger

	listener net.Listener
	conns    chan net.Conn
	wg       sync.WaitGroup
}

// New builds a Server. Workers defaults to runtime.NumCPU() when workers <= 0.
func New(addr string, timeout time.Duration, workers int, store *credentials.Store, fsys *sandbox.Sandbox, log *slog.Logger) *Server {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Server{
		addr:    addr,
		timeout: timeout,
		store:   store,
		fsys:    fsys,
		log:     log,
		conns:   make(chan net.Conn, workers),
	}
}

// listenConfig sets SO_REUSEADDR on the listening socket so a restarted
// server can rebind a port still draining TIME_WAIT connections.
var listenConfig = net.ListenConfig{
	Control: func(_, _ string, c syscall.RawConn) error {
		var sockErr error
		err := c.Control(func(fd uintptr) {
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		})
		if err != nil {
			return err
		}
		return sockErr
	},
}

// Run listens on s.addr and blocks, serving connections until ctx is
// cancelled. It spawns runtime.NumCPU() (or the configured count) fixed
// worker goroutines plus one accept loop goroutine.
func (s *Server) Run(ctx context.Context) error {
	ln, err := listenConfig.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln

	workers := cap(s.conns)
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	s.wg.Add(1)
	go s.acceptLoop(ctx)

	<-ctx.Done()
	ln.Close()
	close(s.conns)
	s.wg.Wait()
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				s.log.Warn("accept failed", "err", err)
				continue
			}
		}
		select {
		case s.conns <- conn:
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}

func (s *Server) worker() {
	defer s.wg.Done()
	for conn := range s.conns {
		s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	connID := uuid.NewString()
	log := s.log.With("conn_id", connID, "remote", conn.RemoteAddr().String())

	if err := conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		log.Warn("set deadline failed", "err", err)
		return
	}

	req, err := wire.ReadRequest(conn)
	if err != nil {
		log.Info("frame read failed", "err", err)
		var fe *wire.FrameError
		if errors.As(err, &fe) {
			// Best-effort: the client gets a coded response even though the
			// frame never fully parsed (spec §4.5 step 2, §5).
			wire.NewResponse(fe.Code, 0).WriteTo(conn)
		}
		return
	}

	resp := dispatch.Dispatch(s.store, s.fsys, req)
	log.Info("handled request", "opcode", req.Opcode, "code", resp.Code)

	if err := resp.WriteTo(conn); err != nil {
		log.Info("response write failed", "err", err)
	}
}

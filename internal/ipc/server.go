package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/recomp/internal/compositor"
)

// ErrAlreadyRunning reports a live server already listening on the socket.
var ErrAlreadyRunning = errors.New("ipc: another compositor is serving this socket")

// requestTimeout bounds how long a command waits for the render loop.
const requestTimeout = 5 * time.Second

// Controller is the part of the compositor the control socket drives.
// *compositor.Compositor implements it.
type Controller interface {
	Status() compositor.Status
	RequestStop(ctx context.Context) error
	RequestResize(ctx context.Context, width, height uint32) error
}

type handlerFunc func(s *Server, ctx context.Context, payload json.RawMessage) (any, error)

var commandHandlers = map[Command]handlerFunc{
	CommandGetStatus: (*Server).getStatus,
	CommandStop:      (*Server).stop,
	CommandResize:    (*Server).resize,
}

// Server answers control requests on a unix socket.
type Server struct {
	socketPath string
	ctrl       Controller
	logger     *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	closing  bool
	wg       sync.WaitGroup
}

// NewServer creates a server for socketPath. Nothing is opened until Start.
func NewServer(socketPath string, ctrl Controller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{socketPath: socketPath, ctrl: ctrl, logger: logger}
}

// Start listens on the socket. A stale socket file left by a crashed
// process is replaced; a socket somebody still answers on is an error.
func (s *Server) Start() error {
	if conn, err := net.DialTimeout("unix", s.socketPath, time.Second); err == nil {
		conn.Close()
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, s.socketPath)
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	l, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on control socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		l.Close()
		return fmt.Errorf("restrict control socket: %w", err)
	}

	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	s.logger.Info("control socket listening", "socket", s.socketPath)
	s.wg.Add(1)
	go s.serve(l)
	return nil
}

func (s *Server) serve(l net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := l.Accept()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("control socket accept failed", "error", err)
			continue
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(requestTimeout + time.Second))

	var req Request
	var resp Response
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		resp = reply(nil, fmt.Errorf("invalid request: %w", err))
	} else {
		resp = s.dispatch(req)
	}

	// Encode terminates the document with a newline.
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		s.logger.Warn("control reply failed", "command", req.Command, "error", err)
	}
}

func (s *Server) dispatch(req Request) Response {
	h, ok := commandHandlers[req.Command]
	if !ok {
		return reply(nil, fmt.Errorf("unknown command %q", req.Command))
	}
	s.logger.Debug("control command", "command", req.Command)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	return reply(h(s, ctx, req.Payload))
}

func (s *Server) getStatus(context.Context, json.RawMessage) (any, error) {
	st := s.ctrl.Status()
	return StatusData{
		State:          st.State.String(),
		FramesRendered: st.Frames,
		Events:         st.Events,
		DamageEvents:   st.Damage,
		ProtocolErrors: st.Errors,
		Overlay:        uint32(st.Overlay),
		Root:           uint32(st.Root),
		Width:          st.Width,
		Height:         st.Height,
		Format:         fmt.Sprint(st.Format),
		Extensions:     st.Versions,
		UptimeSeconds:  int64(st.Uptime.Seconds()),
	}, nil
}

func (s *Server) stop(ctx context.Context, _ json.RawMessage) (any, error) {
	s.logger.Info("stop requested over control socket")
	if err := s.ctrl.RequestStop(ctx); err != nil {
		return nil, fmt.Errorf("stop: %w", err)
	}
	return nil, nil
}

func (s *Server) resize(ctx context.Context, payload json.RawMessage) (any, error) {
	var p ResizePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("invalid resize payload: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := s.ctrl.RequestResize(ctx, p.Width, p.Height); err != nil {
		return nil, fmt.Errorf("resize: %w", err)
	}
	return nil, nil
}

// Stop closes the listener, waits for the accept loop and removes the
// socket file. Connections already accepted finish on their own.
func (s *Server) Stop() {
	s.mu.Lock()
	s.closing = true
	l := s.listener
	s.mu.Unlock()

	if l != nil {
		l.Close()
	}
	s.wg.Wait()
	os.Remove(s.socketPath)
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

const (
	// Path is where the websocket endpoint is mounted.
	Path = "/ws"

	pongWait     = 60 * time.Second
	pingInterval = 25 * time.Second
	writeWait    = 10 * time.Second
)

// Server exposes a settings.Gateway backend to websocket clients.
type Server struct {
	backend  settings.Gateway
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewServer(backend settings.Gateway, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default().With("component", "gateway.server")
	}

	return &Server{
		backend: backend,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// Handler returns a mux with the websocket endpoint mounted at Path.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(Path, s)

	return mux
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(listener)
	}()
	s.logger.Info("settings gateway listening", "addr", listener.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serve settings gateway: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown settings gateway: %w", err)
		}

		return nil
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)

		return
	}
	sess := newSession(r.Context(), conn, s.backend, s.logger.With("remote", r.RemoteAddr))
	sess.run()
}

type session struct {
	ctx     context.Context
	cancel  context.CancelFunc
	conn    *websocket.Conn
	backend settings.Gateway
	logger  *slog.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
	wg       sync.WaitGroup
}

func newSession(parent context.Context, conn *websocket.Conn, backend settings.Gateway, logger *slog.Logger) *session {
	ctx, cancel := context.WithCancel(parent)

	return &session{
		ctx:      ctx,
		cancel:   cancel,
		conn:     conn,
		backend:  backend,
		logger:   logger,
		inflight: make(map[string]context.CancelFunc),
	}
}

func (s *session) run() {
	s.logger.Info("gateway client connected")
	defer func() {
		s.cancel()
		s.wg.Wait()
		_ = s.conn.Close()
		s.logger.Info("gateway client disconnected")
	}()

	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go s.pingLoop()

	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("gateway read failed", "error", err)
			}

			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case typeRequest:
			s.startRequest(msg)
		case typeCancel:
			s.cancelRequest(msg.ID)
		default:
			s.reply(Message{ID: msg.ID, Type: typeResult, Error: "unknown message type: " + msg.Type})
		}
	}
}

func (s *session) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			_ = s.conn.Close()

			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.logger.Debug("ping failed", "error", err)

				return
			}
		}
	}
}

func (s *session) startRequest(msg Message) {
	ctx, cancel := context.WithCancel(s.ctx)
	s.mu.Lock()
	s.inflight[msg.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inflight, msg.ID)
			s.mu.Unlock()
			cancel()
		}()

		result, err := s.handle(ctx, msg)
		reply := Message{ID: msg.ID, Type: typeResult}
		if err != nil {
			reply.Error = err.Error()
			reply.Code = errorCode(err)
			s.logger.Debug("gateway request failed", "method", msg.Method, "error", err)
		} else if result != nil {
			raw, encErr := json.Marshal(result)
			if encErr != nil {
				reply.Error = fmt.Sprintf("encode result: %v", encErr)
			} else {
				reply.Result = raw
			}
		}
		s.reply(reply)
	}()
}

func (s *session) cancelRequest(id string) {
	s.mu.Lock()
	cancel, ok := s.inflight[id]
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

func (s *session) handle(ctx context.Context, msg Message) (any, error) {
	switch msg.Method {
	case MethodLoadAll:
		return s.backend.LoadAll(ctx)
	case MethodSaveOne:
		var p saveParams
		if err := decodeParams(msg, &p); err != nil {
			return nil, err
		}

		return nil, s.backend.SaveOne(ctx, p.Key, p.Value)
	case MethodListDevices:
		return s.backend.ListDevices(ctx)
	case MethodStartTask:
		var p startParams
		if err := decodeParams(msg, &p); err != nil {
			return nil, err
		}
		result, err := s.backend.StartTask(ctx, p.Kind, p.Args, &pushListener{sess: s, id: msg.ID})
		if err != nil {
			return nil, err
		}

		return result, nil
	case MethodStopTask:
		var p stopParams
		if err := decodeParams(msg, &p); err != nil {
			return nil, err
		}

		return nil, s.backend.StopTask(ctx, p.Kind)
	case MethodOpenURL:
		var p urlParams
		if err := decodeParams(msg, &p); err != nil {
			return nil, err
		}

		return nil, s.backend.OpenExternalURL(ctx, p.URL)
	case MethodReset:
		resetter, ok := s.backend.(settings.Resetter)
		if !ok {
			return nil, ErrUnsupported
		}

		return nil, resetter.ResetToDefaults(ctx)
	default:
		return nil, fmt.Errorf("unknown method: %q", msg.Method)
	}
}

func decodeParams(msg Message, out any) error {
	if len(msg.Params) == 0 {
		return fmt.Errorf("%s: missing params", msg.Method)
	}
	if err := json.Unmarshal(msg.Params, out); err != nil {
		return fmt.Errorf("%s: decode params: %w", msg.Method, err)
	}

	return nil
}

func (s *session) reply(msg Message) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.Debug("gateway write failed", "type", msg.Type, "error", err)
	}
}

// pushListener forwards task events to the client that started the task.
type pushListener struct {
	sess *session
	id   string
}

func (l *pushListener) OnProgress(percent int, status string) {
	l.sess.reply(Message{ID: l.id, Type: typeProgress, Percent: percent, Status: status})
}

func (l *pushListener) OnAudioLevel(db float64) {
	l.sess.reply(Message{ID: l.id, Type: typeAudioLevel, DB: db})
}

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

const handshakeTimeout = 10 * time.Second

type pendingCall struct {
	listener settings.TaskListener
	done     chan Message
}

// Client is a settings.Gateway backed by a websocket connection. It dials
// lazily and redials on the next call after the connection drops.
type Client struct {
	url    string
	dialer websocket.Dialer
	logger *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]*pendingCall
	closed  bool
}

func NewClient(url string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default().With("component", "gateway.client")
	}

	return &Client{
		url:     url,
		dialer:  websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		logger:  logger,
		pending: make(map[string]*pendingCall),
	}
}

// Connect dials the service if there is no live connection.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.connection(ctx)

	return err
}

// Close drops the connection and fails all in-flight calls.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}

	return conn.Close()
}

func (c *Client) LoadAll(ctx context.Context) (settings.Tree, error) {
	var tree settings.Tree
	if err := c.call(ctx, MethodLoadAll, nil, nil, &tree); err != nil {
		return nil, err
	}
	if tree == nil {
		tree = settings.Tree{}
	}

	return tree, nil
}

func (c *Client) SaveOne(ctx context.Context, key string, value any) error {
	return c.call(ctx, MethodSaveOne, saveParams{Key: key, Value: value}, nil, nil)
}

func (c *Client) ListDevices(ctx context.Context) ([]settings.Device, error) {
	var devices []settings.Device
	if err := c.call(ctx, MethodListDevices, nil, nil, &devices); err != nil {
		return nil, err
	}

	return settings.SortDevices(devices), nil
}

func (c *Client) StartTask(ctx context.Context, kind settings.TaskKind, args settings.TaskArgs, listener settings.TaskListener) (settings.TaskResult, error) {
	if listener == nil {
		listener = settings.NopTaskListener{}
	}
	var result settings.TaskResult
	if err := c.call(ctx, MethodStartTask, startParams{Kind: kind, Args: args}, listener, &result); err != nil {
		return nil, err
	}

	return result, nil
}

func (c *Client) StopTask(ctx context.Context, kind settings.TaskKind) error {
	return c.call(ctx, MethodStopTask, stopParams{Kind: kind}, nil, nil)
}

func (c *Client) OpenExternalURL(ctx context.Context, url string) error {
	return c.call(ctx, MethodOpenURL, urlParams{URL: url}, nil, nil)
}

func (c *Client) ResetToDefaults(ctx context.Context) error {
	return c.call(ctx, MethodReset, nil, nil, nil)
}

func (c *Client) call(ctx context.Context, method string, params any, listener settings.TaskListener, out any) error {
	conn, err := c.connection(ctx)
	if err != nil {
		return err
	}

	msg := Message{ID: uuid.NewString(), Type: typeRequest, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encode %s params: %w", method, err)
		}
		msg.Params = raw
	}

	call := &pendingCall{listener: listener, done: make(chan Message, 1)}
	c.mu.Lock()
	c.pending[msg.ID] = call
	c.mu.Unlock()

	if err := c.write(conn, msg); err != nil {
		c.forget(msg.ID)

		return fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case reply := <-call.done:
		if reply.Type != typeResult {
			return ErrDisconnected
		}
		if reply.Error != "" {
			return decodeError(reply)
		}
		if out != nil && len(reply.Result) > 0 {
			if err := json.Unmarshal(reply.Result, out); err != nil {
				return fmt.Errorf("decode %s result: %w", method, err)
			}
		}

		return nil
	case <-ctx.Done():
		c.forget(msg.ID)
		if err := c.write(conn, Message{ID: msg.ID, Type: typeCancel}); err != nil {
			c.logger.Debug("failed to send cancel", "method", method, "error", err)
		}

		return ctx.Err()
	}
}

func (c *Client) connection(ctx context.Context) (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.New("gateway client is closed")
	}
	if c.conn != nil {
		return c.conn, nil
	}

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to settings service: %w", err)
	}
	c.conn = conn
	c.logger.Info("connected to settings service", "url", c.url)
	go c.readLoop(conn)

	return conn, nil
}

func (c *Client) write(conn *websocket.Conn, msg Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return conn.WriteJSON(msg)
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			c.dropConnection(conn, err)

			return
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg Message) {
	c.mu.Lock()
	call, ok := c.pending[msg.ID]
	if ok && msg.Type == typeResult {
		delete(c.pending, msg.ID)
	}
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("dropping message for unknown call", "id", msg.ID, "type", msg.Type)

		return
	}

	switch msg.Type {
	case typeResult:
		call.done <- msg
	case typeProgress:
		if call.listener != nil {
			call.listener.OnProgress(msg.Percent, msg.Status)
		}
	case typeAudioLevel:
		if call.listener != nil {
			call.listener.OnAudioLevel(msg.DB)
		}
	default:
		c.logger.Debug("ignoring unknown message type", "type", msg.Type)
	}
}

func (c *Client) dropConnection(conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	pending := c.pending
	c.pending = make(map[string]*pendingCall)
	closed := c.closed
	c.mu.Unlock()

	_ = conn.Close()
	if !closed {
		c.logger.Warn("settings service connection lost", "error", err, "in_flight", len(pending))
	}
	for _, call := range pending {
		call.done <- Message{}
	}
}

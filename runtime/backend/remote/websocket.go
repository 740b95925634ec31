package remote

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

// WebSocketOptions configures a WebSocketClient.
type WebSocketOptions struct {
	// Header is sent with the opening handshake, e.g. for authorization.
	Header http.Header

	// HandshakeTimeout bounds the opening handshake.
	// Default: 10s
	HandshakeTimeout time.Duration

	// PingInterval is the keepalive period. Default: 54s
	PingInterval time.Duration

	// PongWait is how long the connection may stay silent. Default: 60s
	PongWait time.Duration

	// Logger is an optional logger for connection events.
	Logger Logger
}

// WebSocketClient is a Client speaking JSON frames to a worker over a single
// WebSocket connection. Responses are matched to requests by ID, so calls
// may be issued concurrently.
type WebSocketClient struct {
	url    string
	conn   *websocket.Conn
	logger Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan Response
	err     error

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Dial connects to the worker at url.
func Dial(ctx context.Context, url string, opts WebSocketOptions) (*WebSocketClient, error) {
	if opts.HandshakeTimeout == 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.PongWait == 0 {
		opts.PongWait = wsPongWait
	}
	if opts.PingInterval == 0 {
		opts.PingInterval = wsPingEvery
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: opts.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, url, opts.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(opts.PongWait)); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set read deadline: %w", err)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	})

	c := &WebSocketClient{
		url:     url,
		conn:    conn,
		logger:  opts.Logger,
		pending: make(map[string]chan Response),
		done:    make(chan struct{}),
	}
	c.wg.Add(2)
	go c.readLoop(opts.PongWait)
	go c.pingLoop(opts.PingInterval)

	opts.Logger.Info("worker connected", "url", url)
	return c, nil
}

// Endpoint returns the worker URL.
func (c *WebSocketClient) Endpoint() string {
	return c.url
}

// Call sends req and waits for the response with the same ID.
// An empty req.ID is replaced with a fresh UUID.
func (c *WebSocketClient) Call(ctx context.Context, req Request) (Response, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	ch := make(chan Response, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return Response{}, err
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	if err := c.write(req); err != nil {
		c.forget(req.ID)
		return Response{}, fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		c.forget(req.ID)
		return Response{}, ctx.Err()
	case <-c.done:
		c.forget(req.ID)
		return Response{}, c.closeErr()
	}
}

// Close closes the connection, stops the background goroutines and fails
// pending calls with ErrConnectionClosed.
func (c *WebSocketClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		lost := c.err != nil
		c.mu.Unlock()

		c.writeMu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()

		c.shutdown(ErrConnectionClosed)
		if cerr := c.conn.Close(); cerr != nil && !lost {
			err = cerr
		}
	})
	c.wg.Wait()
	return err
}

func (c *WebSocketClient) write(req Request) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(req)
}

func (c *WebSocketClient) readLoop(pongWait time.Duration) {
	defer c.wg.Done()
	for {
		var resp Response
		if err := c.conn.ReadJSON(&resp); err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("worker connection lost", "url", c.url, "error", err)
			}
			c.shutdown(fmt.Errorf("%w: %v", ErrConnectionClosed, err))
			_ = c.conn.Close()
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if !ok {
			c.logger.Warn("dropping response without caller", "id", resp.ID)
			continue
		}
		ch <- resp
	}
}

func (c *WebSocketClient) pingLoop(interval time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
			c.writeMu.Unlock()
			if err != nil {
				c.shutdown(fmt.Errorf("%w: ping: %v", ErrConnectionClosed, err))
				_ = c.conn.Close()
				return
			}
		}
	}
}

// shutdown records the terminal error and releases waiting callers.
func (c *WebSocketClient) shutdown(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return
	}
	c.err = err
	close(c.done)
}

func (c *WebSocketClient) closeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *WebSocketClient) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

var _ Client = (*WebSocketClient)(nil)

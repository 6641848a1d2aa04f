package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const readLimit = 1 << 20

// Client is one long-lived stream connection. There is no reconnect or
// backoff: when the read loop ends the connection is gone for good and the
// caller decides what that means for the process.
type Client struct {
	url    string
	header http.Header
	log    *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func New(url string, header http.Header, log *zap.Logger) *Client {
	return &Client{url: url, header: header, log: log}
}

func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}
	conn, _, err := websocket.Dial(ctx, c.url, &websocket.DialOptions{
		HTTPHeader: c.header,
	})
	if err != nil {
		return err
	}
	conn.SetReadLimit(readLimit)
	c.conn = conn
	return nil
}

func (c *Client) Send(ctx context.Context, data []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("ws not connected")
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// Run reads messages until the connection ends and hands each one to the
// handler. The returned error is the reason the stream stopped.
func (c *Client) Run(ctx context.Context, handler func([]byte)) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("ws not connected")
	}
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logReadError(err)
			return err
		}
		if handler != nil {
			handler(data)
		}
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "shutdown")
		c.conn = nil
	}
}

func (c *Client) logReadError(err error) {
	if c.log == nil {
		return
	}
	var closeErr websocket.CloseError
	if errors.As(err, &closeErr) {
		c.log.Warn("ws connection closed", zap.Int("status", int(closeErr.Code)), zap.String("reason", closeErr.Reason))
		return
	}
	c.log.Warn("ws read failed", zap.Error(err))
}

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn serializes writes to one websocket and keeps it alive with pings.
// gorilla/websocket allows one concurrent writer and one concurrent reader.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	pingInterval time.Duration
	logger       *slog.Logger

	mu     sync.Mutex
	closed bool
}

func newWSConn(conn *websocket.Conn, readLimit int64, writeTimeout, pingInterval time.Duration, logger *slog.Logger) *wsConn {
	conn.SetReadLimit(readLimit)
	c := &wsConn{
		conn:         conn,
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		logger:       logger,
	}
	if pingInterval > 0 {
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(c.pongWait()))
		})
	}
	return c
}

func (c *wsConn) pongWait() time.Duration { return 2 * c.pingInterval }

func (c *wsConn) controlTimeout() time.Duration {
	if c.writeTimeout > 0 {
		return c.writeTimeout
	}
	return 5 * time.Second
}

// ReadMessage blocks for the next client frame.
func (c *wsConn) ReadMessage() (int, []byte, error) {
	if c.pingInterval > 0 {
		// A turn can outlast the pong deadline; every read starts a fresh one.
		if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait())); err != nil {
			return 0, nil, err
		}
	}
	return c.conn.ReadMessage()
}

func (c *wsConn) WriteText(ctx context.Context, text string) error {
	return c.write(ctx, websocket.TextMessage, []byte(text))
}

func (c *wsConn) WriteBinary(ctx context.Context, data []byte) error {
	return c.write(ctx, websocket.BinaryMessage, data)
}

func (c *wsConn) write(ctx context.Context, messageType int, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("websocket closed")
	}
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	if err := c.conn.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// keepAlive pings until ctx ends, then closes the connection so a blocked
// ReadMessage returns.
func (c *wsConn) keepAlive(ctx context.Context) {
	var tick <-chan time.Time
	if c.pingInterval > 0 {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			c.close(websocket.CloseGoingAway, "server shutting down")
			return
		case <-tick:
			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				return
			}
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.controlTimeout()))
			c.mu.Unlock()
			if err != nil {
				c.logger.Debug("Ping failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}

// close sends a close frame once and releases the socket.
func (c *wsConn) close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true

	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	if err := c.conn.Close(); err != nil {
		c.logger.Debug("Error closing websocket", slog.String("error", err.Error()))
	}
}

// Close ends the connection normally.
func (c *wsConn) Close() {
	c.close(websocket.CloseNormalClosure, "")
}

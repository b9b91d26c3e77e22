// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package websocket exposes broadcaster subscriptions over gorilla
// websocket connections. A client subscribes to its own topics by name;
// every subscription it holds is released when the connection closes.
package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/wayfarer/internal/broadcast"
	"github.com/tomtom215/wayfarer/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// Frame types exchanged with clients.
const (
	MessageTypeSubscribe    = "subscribe"
	MessageTypeUnsubscribe  = "unsubscribe"
	MessageTypeSubscribed   = "subscribed"
	MessageTypeUnsubscribed = "unsubscribed"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypeError        = "error"
)

// ClientMessage is a frame sent by a client.
type ClientMessage struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
}

// Message is a frame sent to a client. Broadcast events carry the event
// type and the unqualified topic name.
type Message struct {
	Type  string      `json:"type"`
	Topic string      `json:"topic,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// PubSub is the subscription side of the broadcaster.
type PubSub interface {
	Subscribe(userID, name string) (*broadcast.Subscription, error)
	Unsubscribe(sub *broadcast.Subscription)
}

var clientIDCounter atomic.Uint64

// Client bridges one websocket connection and its subscriptions.
type Client struct {
	id     uint64
	userID string
	conn   *websocket.Conn
	pubsub PubSub
	send   chan Message
	done   chan struct{}
	logger zerolog.Logger

	mu   sync.Mutex
	subs map[string]*broadcast.Subscription
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func newClient(conn *websocket.Conn, userID string, ps PubSub, logger zerolog.Logger) *Client {
	id := clientIDCounter.Add(1)
	return &Client{
		id:     id,
		userID: userID,
		conn:   conn,
		pubsub: ps,
		send:   make(chan Message, sendBuffer),
		done:   make(chan struct{}),
		subs:   make(map[string]*broadcast.Subscription),
		logger: logger.With().Uint64("client_id", id).Str("user_id", userID).Logger(),
	}
}

// Start runs the read and write pumps. The connection is closed when
// either pump exits.
func (c *Client) Start() {
	metrics.TrackWebSocketConnection(true)
	go c.writePump()
	go c.readPump()
}

// Topics returns the names the client is subscribed to.
func (c *Client) Topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.subs))
	for name := range c.subs {
		names = append(names, name)
	}
	return names
}

func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("Unexpected websocket close")
			}
			return
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg ClientMessage) {
	switch msg.Type {
	case MessageTypePing:
		c.enqueue(Message{Type: MessageTypePong})
	case MessageTypeSubscribe:
		c.subscribe(msg.Topic)
	case MessageTypeUnsubscribe:
		c.unsubscribe(msg.Topic)
	default:
		c.enqueue(Message{Type: MessageTypeError, Data: "unknown message type: " + msg.Type})
	}
}

func (c *Client) subscribe(name string) {
	c.mu.Lock()
	if _, ok := c.subs[name]; ok {
		c.mu.Unlock()
		c.enqueue(Message{Type: MessageTypeSubscribed, Topic: name})
		return
	}
	sub, err := c.pubsub.Subscribe(c.userID, name)
	if err != nil {
		c.mu.Unlock()
		c.enqueue(Message{Type: MessageTypeError, Topic: name, Data: err.Error()})
		return
	}
	c.subs[name] = sub
	c.mu.Unlock()

	c.enqueue(Message{Type: MessageTypeSubscribed, Topic: name})
	go c.pump(name, sub)
}

func (c *Client) unsubscribe(name string) {
	c.mu.Lock()
	sub, ok := c.subs[name]
	delete(c.subs, name)
	c.mu.Unlock()

	if ok {
		c.pubsub.Unsubscribe(sub)
	}
	c.enqueue(Message{Type: MessageTypeUnsubscribed, Topic: name})
}

// pump copies events of one subscription into the send queue until the
// subscription is closed or the client goes away.
func (c *Client) pump(name string, sub *broadcast.Subscription) {
	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			select {
			case c.send <- Message{Type: ev.Type, Topic: name, Data: ev.Data}:
			case <-c.done:
				return
			}
		case <-c.done:
			return
		}
	}
}

// enqueue drops control frames when the send queue is full.
func (c *Client) enqueue(m Message) {
	select {
	case c.send <- m:
	case <-c.done:
	default:
		c.logger.Warn().Str("type", m.Type).Msg("Send queue full, dropping frame")
	}
}

func (c *Client) close() {
	close(c.done)

	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[string]*broadcast.Subscription)
	c.mu.Unlock()
	for _, sub := range subs {
		c.pubsub.Unsubscribe(sub)
	}

	_ = c.conn.Close()
	metrics.TrackWebSocketConnection(false)
	c.logger.Debug().Int("released", len(subs)).Msg("Websocket client disconnected")
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug().Err(err).Msg("Failed to write frame")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Wayfarer - Travel Decision and Pattern Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/wayfarer/internal/broadcast"
)

var _ suture.Service = (*EmbeddedServer)(nil)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	msgs   []*message.Message
	err    error
	closed int
}

func (p *recordingPublisher) Publish(topic string, msgs ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	for _, m := range msgs {
		p.topics = append(p.topics, topic)
		p.msgs = append(p.msgs, m)
	}
	return nil
}

func (p *recordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

func testEvent() broadcast.Event {
	return broadcast.Event{
		ID:          "evt-1",
		Topic:       broadcast.Topic("u1", "pattern_analysis"),
		Type:        "job_completed",
		Data:        map[string]string{"job_id": "j1"},
		PublishedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"gochannel", func(c *Config) { c.Backend = BackendGoChannel }, false},
		{"nats", func(c *Config) { c.Backend = BackendNATS }, false},
		{"nats without url", func(c *Config) { c.Backend = BackendNATS; c.NATSURL = "" }, true},
		{"embedded random port", func(c *Config) { c.Backend = BackendEmbedded; c.EmbeddedPort = -1 }, false},
		{"embedded bad port", func(c *Config) { c.Backend = BackendEmbedded; c.EmbeddedPort = 70000 }, true},
		{"embedded no store", func(c *Config) { c.Backend = BackendEmbedded; c.EmbeddedStoreDir = "" }, true},
		{"unknown backend", func(c *Config) { c.Backend = "kafka" }, true},
		{"wildcard prefix", func(c *Config) { c.Backend = BackendGoChannel; c.SubjectPrefix = "events.>" }, true},
		{"dotted stream", func(c *Config) { c.Backend = BackendNATS; c.StreamName = "a.b" }, true},
		{"zero failures", func(c *Config) { c.Backend = BackendGoChannel; c.CircuitBreaker.MaxFailures = 0 }, true},
		{"zero timeout", func(c *Config) { c.Backend = BackendGoChannel; c.CircuitBreaker.Timeout = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestForwarderPublishesEvent(t *testing.T) {
	rec := &recordingPublisher{}
	f := NewForwarder(NewPublisher(rec, nil), "wayfarer.events")

	if err := f.Forward(context.Background(), testEvent()); err != nil {
		t.Fatalf("Forward() error = %v", err)
	}

	if len(rec.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(rec.msgs))
	}
	if rec.topics[0] != "wayfarer.events.pattern_analysis" {
		t.Errorf("topic = %q, want wayfarer.events.pattern_analysis", rec.topics[0])
	}

	msg := rec.msgs[0]
	if msg.UUID != "evt-1" {
		t.Errorf("UUID = %q, want evt-1", msg.UUID)
	}
	if got := msg.Metadata.Get("user_id"); got != "u1" {
		t.Errorf("user_id = %q, want u1", got)
	}
	if got := msg.Metadata.Get("event_type"); got != "job_completed" {
		t.Errorf("event_type = %q, want job_completed", got)
	}
	if got := msg.Metadata.Get(natsgo.MsgIdHdr); got != "evt-1" {
		t.Errorf("%s = %q, want evt-1", natsgo.MsgIdHdr, got)
	}

	var decoded broadcast.Event
	if err := json.Unmarshal(msg.Payload, &decoded); err != nil {
		t.Fatalf("payload is not an event: %v", err)
	}
	if decoded.Topic != "u1:pattern_analysis" || decoded.Type != "job_completed" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestForwarderCanceledContext(t *testing.T) {
	rec := &recordingPublisher{}
	f := NewForwarder(NewPublisher(rec, nil), "wayfarer.events")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := f.Forward(ctx, testEvent()); !errors.Is(err, context.Canceled) {
		t.Errorf("Forward() error = %v, want context.Canceled", err)
	}
	if len(rec.msgs) != 0 {
		t.Errorf("published %d messages after cancel", len(rec.msgs))
	}
}

func TestPublisherBreakerOpens(t *testing.T) {
	failure := errors.New("nats unavailable")
	rec := &recordingPublisher{err: failure}
	cb := NewCircuitBreaker("test", BreakerConfig{MaxFailures: 2, Timeout: time.Minute}, zerolog.Nop())
	p := NewPublisher(rec, cb)

	for i := 0; i < 2; i++ {
		if err := p.Publish("t", message.NewMessage("m", nil)); !errors.Is(err, failure) {
			t.Fatalf("Publish() #%d error = %v, want %v", i, err, failure)
		}
	}
	if p.BreakerState() != "open" {
		t.Errorf("BreakerState() = %q, want open", p.BreakerState())
	}
	if err := p.Publish("t", message.NewMessage("m", nil)); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Publish() with open breaker error = %v, want ErrOpenState", err)
	}
}

func TestPublisherClose(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewPublisher(rec, nil)

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if rec.closed != 1 {
		t.Errorf("underlying Close called %d times, want 1", rec.closed)
	}
	if err := p.Publish("t", message.NewMessage("m", nil)); !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("Publish() after Close error = %v, want ErrPublisherClosed", err)
	}
	if p.BreakerState() != "disabled" {
		t.Errorf("BreakerState() = %q, want disabled", p.BreakerState())
	}
}

func TestOpenDisabled(t *testing.T) {
	if _, err := Open(context.Background(), DefaultConfig(), zerolog.Nop()); err == nil {
		t.Error("Open() with backend none should fail")
	}
}

func TestOpenGoChannelRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendGoChannel

	bus, err := Open(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msgs, err := bus.Subscribe(ctx, "wayfarer.events.pattern_analysis")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := bus.Forwarder.Forward(ctx, testEvent()); err != nil {
		t.Fatalf("Forward() error = %v", err)
	}

	select {
	case msg := <-msgs:
		msg.Ack()
		if msg.UUID != "evt-1" {
			t.Errorf("UUID = %q, want evt-1", msg.UUID)
		}
		if msg.Metadata.Get("user_id") != "u1" {
			t.Errorf("user_id = %q, want u1", msg.Metadata.Get("user_id"))
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for forwarded message")
	}

	if bus.BreakerState() != "closed" {
		t.Errorf("BreakerState() = %q, want closed", bus.BreakerState())
	}
}

func TestOpenEmbeddedForwardsToNATS(t *testing.T) {
	if testing.Short() {
		t.Skip("starts an embedded NATS server")
	}

	cfg := DefaultConfig()
	cfg.Backend = BackendEmbedded
	cfg.EmbeddedPort = -1
	cfg.EmbeddedStoreDir = t.TempDir()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	bus, err := Open(ctx, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer bus.Server.Shutdown()
	defer bus.Close()

	if !bus.Server.IsRunning() {
		t.Fatal("embedded server not running")
	}

	nc, err := natsgo.Connect(bus.Server.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()

	sub, err := nc.SubscribeSync("wayfarer.events.>")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if err := bus.Forwarder.Forward(ctx, testEvent()); err != nil {
		t.Fatalf("Forward() error = %v", err)
	}

	msg, err := sub.NextMsg(5 * time.Second)
	if err != nil {
		t.Fatalf("NextMsg() error = %v", err)
	}
	if msg.Subject != "wayfarer.events.pattern_analysis" {
		t.Errorf("subject = %q, want wayfarer.events.pattern_analysis", msg.Subject)
	}
}

type fakeJetStream struct {
	getErr  error
	created []jetstream.StreamConfig
	updated []jetstream.StreamConfig
}

func (f *fakeJetStream) Stream(context.Context, string) (jetstream.Stream, error) {
	return nil, f.getErr
}

func (f *fakeJetStream) CreateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	f.created = append(f.created, cfg)
	return nil, nil
}

func (f *fakeJetStream) UpdateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	f.updated = append(f.updated, cfg)
	return nil, nil
}

func TestEnsureStream(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("creates missing stream", func(t *testing.T) {
		js := &fakeJetStream{getErr: jetstream.ErrStreamNotFound}
		if err := EnsureStream(context.Background(), js, cfg); err != nil {
			t.Fatalf("EnsureStream() error = %v", err)
		}
		if len(js.created) != 1 || len(js.updated) != 0 {
			t.Fatalf("created %d updated %d, want 1 and 0", len(js.created), len(js.updated))
		}
		got := js.created[0]
		if got.Name != "WAYFARER_EVENTS" {
			t.Errorf("Name = %q, want WAYFARER_EVENTS", got.Name)
		}
		if len(got.Subjects) != 1 || got.Subjects[0] != "wayfarer.events.>" {
			t.Errorf("Subjects = %v, want [wayfarer.events.>]", got.Subjects)
		}
	})

	t.Run("updates existing stream", func(t *testing.T) {
		js := &fakeJetStream{}
		if err := EnsureStream(context.Background(), js, cfg); err != nil {
			t.Fatalf("EnsureStream() error = %v", err)
		}
		if len(js.updated) != 1 || len(js.created) != 0 {
			t.Errorf("created %d updated %d, want 0 and 1", len(js.created), len(js.updated))
		}
	})

	t.Run("propagates lookup failure", func(t *testing.T) {
		js := &fakeJetStream{getErr: errors.New("timeout")}
		if err := EnsureStream(context.Background(), js, cfg); err == nil {
			t.Error("EnsureStream() should fail")
		}
	})
}

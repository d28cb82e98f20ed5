// Package mqttbridge republishes lifecycle stage events to an MQTT broker.
//
// Every committed stage is published as a retained JSON document on
// <prefix>/<manager>/stage, so late subscribers see the current stage.
// Rollbacks are published too: the bridge is a lifecycle.Observer and
// should be installed with lifecycle.WithObserver. The bridge only
// publishes; it never reads from the broker.
//
//	client, _ := mqttbridge.NewClient(cfg)
//	_ = client.Connect(ctx)
//	b := mqttbridge.New(client, mqttbridge.WithPrefix(cfg.TopicPrefix))
//	m := lifecycle.NewManager(lifecycle.WithName("api"), lifecycle.WithObserver(b))
//	b.Attach(m)
//	defer b.Detach()
package mqttbridge

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/stagehand/pkg/events"
	"github.com/bft-labs/stagehand/pkg/lifecycle"
	"github.com/bft-labs/stagehand/pkg/log"
)

// Publisher sends one message. *Client implements it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// EventSource is the part of a manager the bridge subscribes to.
type EventSource interface {
	Name() string
	AddEventListener(event string, l events.Listener) events.ListenerID
	RemoveEventListener(event string, id events.ListenerID) bool
}

// Message is the published document.
type Message struct {
	Manager       string    `json:"manager"`
	Stage         string    `json:"stage"`
	PreviousStage string    `json:"previousStage"`
	Description   string    `json:"description"`
	Timestamp     time.Time `json:"timestamp"`
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithPrefix sets the first topic level.
func WithPrefix(prefix string) Option {
	return func(b *Bridge) {
		if prefix != "" {
			b.prefix = prefix
		}
	}
}

// WithQoS sets the publish QoS.
func WithQoS(qos byte) Option {
	return func(b *Bridge) {
		b.qos = qos
	}
}

// WithLogger sets the logger for rollback publish failures.
func WithLogger(logger log.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Bridge forwards stage changes of one manager.
type Bridge struct {
	pub    Publisher
	prefix string
	qos    byte
	now    func() time.Time
	logger log.Logger

	mu      sync.Mutex
	src     EventSource
	ids     map[string]events.ListenerID
	// last is the stage of the most recent rollback publish.
	last    lifecycle.Stage
	hasLast bool
}

// New creates a bridge that is not yet subscribed to any manager.
func New(pub Publisher, opts ...Option) *Bridge {
	b := &Bridge{
		pub:    pub,
		prefix: "stagehand",
		qos:    1,
		now:    time.Now,
		logger: log.NewNoopLogger(),
		ids:    make(map[string]events.ListenerID),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach creates a bridge and subscribes it to src. Rollbacks are only
// published when the bridge is also installed as an observer of src.
func Attach(src EventSource, pub Publisher, opts ...Option) *Bridge {
	b := New(pub, opts...)
	b.Attach(src)
	return b
}

// Attach subscribes to every lifecycle stage event of src. Publish errors
// are returned to the bus and end up in its error handler. Reset on the
// manager drops the subscriptions; attach again afterwards.
func (b *Bridge) Attach(src EventSource) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.src = src
	b.hasLast = false
	for _, s := range lifecycle.Stages() {
		event := lifecycle.EventName(s)
		b.ids[event] = src.AddEventListener(event, b.forward)
	}
}

// Topic is where stage documents for the attached manager are published.
func (b *Bridge) Topic() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.topicLocked()
}

func (b *Bridge) topicLocked() string {
	name := lifecycle.DefaultName
	if b.src != nil {
		name = b.src.Name()
	}
	return fmt.Sprintf("%s/%s/stage", b.prefix, name)
}

// Detach removes the bridge's subscriptions.
func (b *Bridge) Detach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.src != nil {
		for event, id := range b.ids {
			b.src.RemoveEventListener(event, id)
		}
	}
	b.ids = make(map[string]events.ListenerID)
}

func (b *Bridge) forward(args ...any) error {
	if len(args) == 0 {
		return nil
	}
	change, ok := args[0].(lifecycle.StageChange)
	if !ok {
		return fmt.Errorf("mqttbridge: unexpected payload %T", args[0])
	}
	return b.publish(change, false)
}

// OnStageChange is a no-op; committed stages arrive through the bus.
func (b *Bridge) OnStageChange(previous, current lifecycle.Stage) {}

// OnHookComplete is a no-op.
func (b *Bridge) OnHookComplete(stage lifecycle.Stage, d time.Duration, err error) {}

// OnRollback publishes the stage the manager fell back to.
func (b *Bridge) OnRollback(from, to lifecycle.Stage, cause error) {
	if err := b.publish(lifecycle.StageChange{Stage: to, PreviousStage: from}, true); err != nil {
		b.logger.Warn("publish rollback failed",
			log.Stringer("stage", to),
			log.Err(err),
		)
	}
}

// publish sends change. An event repeating the stage a rollback just
// published is skipped: unwind steps reach both the observer and the bus.
func (b *Bridge) publish(change lifecycle.StageChange, rollback bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.src == nil {
		return nil
	}
	if !rollback && b.hasLast && b.last == change.Stage {
		b.hasLast = false
		return nil
	}
	b.hasLast = false

	payload, err := json.Marshal(Message{
		Manager:       b.src.Name(),
		Stage:         change.Stage.String(),
		PreviousStage: change.PreviousStage.String(),
		Description:   change.Stage.Description(),
		Timestamp:     b.now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := b.pub.Publish(b.topicLocked(), payload, b.qos, true); err != nil {
		return err
	}
	if rollback {
		b.last, b.hasLast = change.Stage, true
	}
	return nil
}

var _ lifecycle.Observer = (*Bridge)(nil)

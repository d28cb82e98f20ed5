package mqttbridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/stagehand/pkg/lifecycle"
)

type published struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{topic, payload, qos, retained})
	return nil
}

func (f *fakePublisher) Messages() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published{}, f.msgs...)
}

func TestBridge_PublishesStages(t *testing.T) {
	m := lifecycle.NewManager(lifecycle.WithName("api"))
	pub := &fakePublisher{}
	b := Attach(m, pub, WithPrefix("plant"), WithQoS(0))
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	b.now = func() time.Time { return fixed }

	require.NoError(t, m.Initialize(context.Background()))

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "plant/api/stage", msgs[0].topic)
	assert.True(t, msgs[0].retained)
	assert.Equal(t, byte(0), msgs[0].qos)

	var last Message
	require.NoError(t, json.Unmarshal(msgs[1].payload, &last))
	assert.Equal(t, "api", last.Manager)
	assert.Equal(t, "initialized", last.Stage)
	assert.Equal(t, "initializing", last.PreviousStage)
	assert.Equal(t, "Initialized", last.Description)
	assert.True(t, fixed.Equal(last.Timestamp), "timestamp = %v", last.Timestamp)
}

func lastMessage(t *testing.T, pub *fakePublisher) Message {
	t.Helper()
	msgs := pub.Messages()
	require.NotEmpty(t, msgs)
	var msg Message
	require.NoError(t, json.Unmarshal(msgs[len(msgs)-1].payload, &msg))
	return msg
}

func failing(ctx context.Context) error { return errors.New("boom") }

func TestBridge_PublishesRollback(t *testing.T) {
	pub := &fakePublisher{}
	b := New(pub, WithPrefix("plant"))
	m := lifecycle.NewManager(lifecycle.WithName("api"), lifecycle.WithObserver(b))
	b.Attach(m)
	m.On(lifecycle.StageStarting, lifecycle.HookFunc(failing))
	ctx := context.Background()

	require.NoError(t, m.Initialize(ctx))
	require.Error(t, m.Start(ctx))

	last := lastMessage(t, pub)
	assert.Equal(t, m.Stage().String(), last.Stage)
	assert.Equal(t, "initialized", last.Stage)
	assert.Equal(t, "starting", last.PreviousStage)
	assert.Equal(t, "plant/api/stage", pub.Messages()[len(pub.Messages())-1].topic)
}

func TestBridge_UnwindPublishedOncePerStage(t *testing.T) {
	pub := &fakePublisher{}
	b := New(pub)
	m := lifecycle.NewManager(lifecycle.WithName("api"), lifecycle.WithObserver(b))
	b.Attach(m)
	m.On(lifecycle.StageReady, lifecycle.HookFunc(failing))
	ctx := context.Background()

	require.NoError(t, m.Initialize(ctx))
	require.Error(t, m.Start(ctx))

	var stages []string
	for _, msg := range pub.Messages() {
		var doc Message
		require.NoError(t, json.Unmarshal(msg.payload, &doc))
		stages = append(stages, doc.Stage)
	}
	assert.Equal(t, []string{
		"initializing", "initialized",
		"starting", "started", "ready",
		"started", "starting", "initialized",
	}, stages)
	assert.Equal(t, "initialized", lastMessage(t, pub).Stage)
}

func TestBridge_WithoutObserverRepublishesReenteredStage(t *testing.T) {
	pub := &fakePublisher{}
	m := lifecycle.NewManager(lifecycle.WithName("api"))
	Attach(m, pub)
	id := m.On(lifecycle.StageStarting, lifecycle.HookFunc(failing))
	ctx := context.Background()

	require.NoError(t, m.Initialize(ctx))
	require.Error(t, m.Start(ctx))
	m.Off(lifecycle.StageStarting, id)
	require.NoError(t, m.Start(ctx))

	assert.Equal(t, "ready", lastMessage(t, pub).Stage)
	assert.Len(t, pub.Messages(), 6)
}

func TestBridge_Detach(t *testing.T) {
	m := lifecycle.NewManager()
	pub := &fakePublisher{}
	b := Attach(m, pub)

	b.Detach()
	require.NoError(t, m.Initialize(context.Background()))

	assert.Empty(t, pub.Messages())
	assert.Empty(t, m.Events().EventNames())
}

func TestBridge_PublishErrorGoesToBus(t *testing.T) {
	var mu sync.Mutex
	var reported []error
	m := lifecycle.NewManager(lifecycle.WithEventErrorHandler(func(event string, err error) {
		mu.Lock()
		defer mu.Unlock()
		reported = append(reported, err)
	}))
	Attach(m, &fakePublisher{err: ErrNotConnected})

	require.NoError(t, m.Initialize(context.Background()), "publish failures never fail a transition")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reported, 2)
	assert.True(t, errors.Is(reported[0], ErrNotConnected))
}

func TestBridge_IgnoresForeignPayload(t *testing.T) {
	m := lifecycle.NewManager()
	pub := &fakePublisher{}
	b := Attach(m, pub)

	assert.Error(t, b.forward("not a stage change"))
	assert.NoError(t, b.forward())
	assert.Empty(t, pub.Messages())
}

func TestClient_Validation(t *testing.T) {
	_, err := NewClient(Config{Broker: "tcp://127.0.0.1:1", QoS: 3})
	assert.ErrorIs(t, err, ErrInvalidQoS)

	c, err := NewClient(DefaultConfig())
	require.NoError(t, err)

	assert.ErrorIs(t, c.Publish("", nil, 0, false), ErrInvalidTopic)
	assert.ErrorIs(t, c.Publish("t", nil, 5, false), ErrInvalidQoS)
	assert.ErrorIs(t, c.Publish("t", []byte("x"), 0, false), ErrNotConnected)
}

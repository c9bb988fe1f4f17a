package sim

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hilbee/config"
	"hilbee/model"
	"hilbee/types"
)

type fakeBus struct {
	mu        sync.Mutex
	published map[string][]string
	handlers  map[string]func([]byte)
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		published: make(map[string][]string),
		handlers:  make(map[string]func([]byte)),
	}
}

func (f *fakeBus) Publish(topic string, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[topic] = append(f.published[topic], string(payload))
}

func (f *fakeBus) PublishString(topic, payload string) {
	f.Publish(topic, []byte(payload))
}

func (f *fakeBus) Subscribe(topic string, fn func([]byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = fn
	return nil
}

func (f *fakeBus) deliver(topic, payload string) {
	f.mu.Lock()
	fn := f.handlers[topic]
	f.mu.Unlock()
	fn([]byte(payload))
}

func (f *fakeBus) messages(topic string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.published[topic]...)
}

func newTestLoop(b Bus) *Loop {
	m := model.New(model.DefaultGeometry())
	m.SetFillHeight(60)
	return New(m, b, &types.FloatCell{}, &types.FloatCell{})
}

func TestTickPublishesWeightAndState(t *testing.T) {
	b := newFakeBus()
	l := newTestLoop(b)
	require.NoError(t, l.Start())

	b.deliver(config.ActuatorTopic, "100")
	l.Offset.Store(50)

	for i := 0; i < 30; i++ {
		l.tick(0.1)
	}

	assert.InDelta(t, 1.0, l.Model.TapOpening(), 1e-12)

	weights := b.messages(config.WeightTopic)
	require.Len(t, weights, 30)
	last, err := strconv.ParseFloat(weights[len(weights)-1], 64)
	require.NoError(t, err)
	assert.InDelta(t, l.Model.TotalDispensed()+50, last, 1e-9)

	states := b.messages(config.StateTopic)
	require.Len(t, states, 30)
	assert.Contains(t, states[len(states)-1], `"fill_height_cm"`)
	assert.Contains(t, states[len(states)-1], `"viscosity_Pa_s"`)
	assert.Contains(t, states[len(states)-1], `"total_dispensed_g"`)
}

func TestBadActuatorPayloadDropped(t *testing.T) {
	b := newFakeBus()
	l := newTestLoop(b)
	require.NoError(t, l.Start())

	b.deliver(config.ActuatorTopic, "42.5")
	b.deliver(config.ActuatorTopic, "not-a-number")

	// Last valid value stays in effect.
	assert.Equal(t, 42.5, l.Actuator.Load())
	l.tick(0.1)
	assert.InDelta(t, 0.425, l.Model.TapOpening(), 1e-12)
}

func TestRunStopsWithinATick(t *testing.T) {
	b := newFakeBus()
	l := newTestLoop(b)
	l.Interval = time.Millisecond

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		l.Run(stop)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	close(stop)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
	assert.NotEmpty(t, b.messages(config.WeightTopic))
}

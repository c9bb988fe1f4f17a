// Package sim drives the dispenser model in real time and keeps it in sync
// with the hardware bridge over the bus.
package sim

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"hilbee/config"
	"hilbee/logging"
	"hilbee/model"
	"hilbee/types"
	"hilbee/utils"
)

// Bus is the slice of the bus client the loop needs.
type Bus interface {
	Publish(topic string, payload []byte)
	PublishString(topic, payload string)
	Subscribe(topic string, fn func(payload []byte)) error
}

// Loop advances the model at a fixed timestep. Each tick consumes the latest
// actuator command and publishes the resulting scale weight and state.
type Loop struct {
	Model    *model.Dispenser
	Bus      Bus
	Actuator *types.FloatCell
	Offset   *types.FloatCell
	Interval time.Duration
}

func New(m *model.Dispenser, b Bus, actuator, offset *types.FloatCell) *Loop {
	return &Loop{
		Model:    m,
		Bus:      b,
		Actuator: actuator,
		Offset:   offset,
		Interval: config.StepInterval,
	}
}

// Start subscribes to the actuator topic. The callback only stores the
// value; the loop picks up the latest one on its next tick.
func (l *Loop) Start() error {
	return l.Bus.Subscribe(config.ActuatorTopic, func(payload []byte) {
		value, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64)
		if err != nil {
			logging.Broadcast("dropped bad actuator payload: "+utils.FormatPayload(payload), "sim")
			return
		}
		l.Actuator.Store(value)
	})
}

// Run ticks until stop is closed. The stop signal is checked once per tick,
// so shutdown latency is bounded by one step interval.
func (l *Loop) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	dt := l.Interval.Seconds()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.tick(dt)
		}
	}
}

func (l *Loop) tick(dt float64) {
	l.Model.SetTapOpening(l.Actuator.Load() / 100.0)
	l.Model.Step(dt)

	weight := l.Model.TotalDispensed() + l.Offset.Load()
	l.Bus.PublishString(config.WeightTopic, strconv.FormatFloat(weight, 'f', -1, 64))

	state, err := json.Marshal(l.Model.State())
	if err != nil {
		return
	}
	l.Bus.Publish(config.StateTopic, state)
}

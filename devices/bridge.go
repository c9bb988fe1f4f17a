package devices

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"hilbee/config"
	"hilbee/logging"
	"hilbee/utils"
)

// maxLineBytes bounds the sample buffer: a stream with no terminator in
// this many bytes is baud-rate garbage, not a slow line.
const maxLineBytes = 128

// Bus is the slice of the bus client the bridge needs.
type Bus interface {
	PublishString(topic, payload string)
	Subscribe(topic string, fn func(payload []byte)) error
}

// Bridge owns the serial link to the dispenser controller. It forwards
// bus-delivered weight values to the board and board-reported tap positions
// to the bus, reconnecting forever on any serial failure. The rig must
// survive the board being absent at startup or unplugged mid-run.
type Bridge struct {
	PortName string
	Baud     int
	Bus      Bus

	// Dial is swappable for tests.
	Dial              func(portName string, baud int) (*Link, error)
	ConnectRetryDelay time.Duration
	ReconnectCooldown time.Duration

	mu   sync.Mutex
	link *Link
}

func NewBridge(portName string, baud int, b Bus) *Bridge {
	return &Bridge{
		PortName:          portName,
		Baud:              baud,
		Bus:               b,
		Dial:              Open,
		ConnectRetryDelay: config.ConnectRetryDelay,
		ReconnectCooldown: config.ReconnectCooldown,
	}
}

// Start subscribes the weight path. Weight messages arrive on the bus
// client's goroutine and are written to whatever link is up at that moment.
func (b *Bridge) Start() error {
	return b.Bus.Subscribe(config.WeightTopic, b.handleWeight)
}

// Run is the bridge main loop: connect, read until the link dies, cool down,
// reconnect. Returns once stop is closed, with the port released.
func (b *Bridge) Run(stop <-chan struct{}) {
	for {
		link := b.connect(stop)
		if link == nil {
			return
		}
		fmt.Printf("✅ Dispenser board connected: %s\n", link.PortName)
		logging.Broadcast("serial link up on "+link.PortName, "bridge")

		b.setLink(link)
		err := b.readLoop(link, stop)
		b.setLink(nil)
		link.Close()

		if err == nil {
			return // stopped
		}
		fmt.Printf("⚠️  Serial link lost (%v), reconnecting in %s\n", err, b.ReconnectCooldown)
		logging.Broadcast(fmt.Sprintf("serial link lost: %v", err), "bridge")
		if !sleepOrStop(b.ReconnectCooldown, stop) {
			return
		}
	}
}

// connect retries until the port opens or stop is closed.
func (b *Bridge) connect(stop <-chan struct{}) *Link {
	for {
		select {
		case <-stop:
			return nil
		default:
		}

		link, err := b.Dial(b.PortName, b.Baud)
		if err == nil {
			return link
		}
		fmt.Printf("🔌 Serial open failed (%v), retry in %s\n", err, b.ConnectRetryDelay)
		if !sleepOrStop(b.ConnectRetryDelay, stop) {
			return nil
		}
	}
}

// readLoop assembles newline-terminated actuator samples. Reads are bounded
// by the link's read timeout, so stop is observed within one timeout. A read
// or parse failure is returned to trigger a reconnect; returns nil on stop.
func (b *Bridge) readLoop(link *Link, stop <-chan struct{}) error {
	buf := make([]byte, 64)
	line := make([]byte, 0, 32)

	for {
		select {
		case <-stop:
			return nil
		default:
		}

		n, err := link.Conn.Read(buf)
		if err != nil {
			return fmt.Errorf("serial read: %w", err)
		}
		if n == 0 {
			continue // read timeout, board idle
		}

		for _, c := range buf[:n] {
			if c != '\n' {
				line = append(line, c)
				if len(line) > maxLineBytes {
					return fmt.Errorf("no line terminator in %d bytes", len(line))
				}
				continue
			}
			sample := strings.TrimSpace(string(line))
			line = line[:0]
			if sample == "" {
				continue
			}
			if err := b.publishActuator(sample); err != nil {
				return err
			}
		}
	}
}

// publishActuator parses one board line, clamps it to the 0–100 actuator
// range and puts it on the bus. Garbage usually means a wrong baud rate or a
// half-dead link, so a parse failure reopens the port.
func (b *Bridge) publishActuator(sample string) error {
	value, err := strconv.ParseFloat(sample, 64)
	if err != nil {
		return fmt.Errorf("bad actuator sample %s: %w", utils.FormatPayload([]byte(sample)), err)
	}
	value = clampActuator(value)
	b.Bus.PublishString(config.ActuatorTopic, strconv.FormatFloat(value, 'f', -1, 64))
	return nil
}

// handleWeight forwards one weight message to the board. Failures here are
// logged and swallowed: the write path never forces a reconnect, a dead link
// shows up on the read side within one bounded read anyway.
func (b *Bridge) handleWeight(payload []byte) {
	text := strings.TrimSpace(string(payload))
	if _, err := strconv.ParseFloat(text, 64); err != nil {
		logging.Broadcast("dropped bad weight payload: "+utils.FormatPayload(payload), "bridge")
		return
	}

	b.mu.Lock()
	link := b.link
	b.mu.Unlock()
	if link == nil {
		return // board not connected, drop
	}
	if err := link.WriteValue(text); err != nil {
		logging.Broadcast(fmt.Sprintf("weight write failed: %v", err), "bridge")
	}
}

func (b *Bridge) setLink(link *Link) {
	b.mu.Lock()
	b.link = link
	b.mu.Unlock()
}

// Connected reports whether a link is currently up.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.link != nil
}

func clampActuator(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// sleepOrStop waits for d, returning false if stop closed first.
func sleepOrStop(d time.Duration, stop <-chan struct{}) bool {
	select {
	case <-time.After(d):
		return true
	case <-stop:
		return false
	}
}

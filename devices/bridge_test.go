package devices

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hilbee/config"
)

type readResult struct {
	data []byte
	err  error
}

// fakeConn scripts the serial side: reads come from a queue, writes are
// recorded. An empty queue behaves like an idle link under read timeout.
type fakeConn struct {
	mu     sync.Mutex
	reads  []readResult
	writes []string

	writeErr error
	closed   bool
}

func (f *fakeConn) Read(p []byte) (int, error) {
	f.mu.Lock()
	if len(f.reads) == 0 {
		f.mu.Unlock()
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	r := f.reads[0]
	f.reads = f.reads[1:]
	f.mu.Unlock()
	return copy(p, r.data), r.err
}

func (f *fakeConn) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.writes = append(f.writes, string(p))
	return len(p), nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...)
}

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

func (f *fakeBus) PublishString(topic, payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[topic] = append(f.published[topic], payload)
}

func (f *fakeBus) Subscribe(topic string, fn func([]byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = fn
	return nil
}

func (f *fakeBus) messages(topic string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.published[topic]...)
}

// newTestBridge wires a bridge with millisecond delays and a scripted dial
// sequence; dials past the end of the sequence report an absent board.
func newTestBridge(b *fakeBus, conns ...*fakeConn) (*Bridge, *int) {
	dials := 0
	br := NewBridge("/dev/ttyTEST", config.SerialBaudRate, b)
	br.ConnectRetryDelay = time.Millisecond
	br.ReconnectCooldown = time.Millisecond
	br.Dial = func(portName string, baud int) (*Link, error) {
		dials++
		if dials > len(conns) {
			return nil, errors.New("no such device")
		}
		return &Link{Conn: conns[dials-1], PortName: portName}, nil
	}
	return br, &dials
}

func runBridge(t *testing.T, br *Bridge) (stop chan struct{}) {
	t.Helper()
	stop = make(chan struct{})
	done := make(chan struct{})
	go func() {
		br.Run(stop)
		close(done)
	}()
	t.Cleanup(func() {
		close(stop)
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("bridge did not stop")
		}
	})
	return stop
}

func TestActuatorClamping(t *testing.T) {
	bus := newFakeBus()
	conn := &fakeConn{reads: []readResult{
		{data: []byte("-10\n")},
		{data: []byte("150\n")},
		{data: []byte("42.5\n")},
	}}
	br, _ := newTestBridge(bus, conn)
	runBridge(t, br)

	require.Eventually(t, func() bool {
		return len(bus.messages(config.ActuatorTopic)) >= 3
	}, time.Second, time.Millisecond)

	assert.Equal(t, []string{"0", "100", "42.5"}, bus.messages(config.ActuatorTopic)[:3])
}

func TestSplitLinesAcrossReads(t *testing.T) {
	bus := newFakeBus()
	conn := &fakeConn{reads: []readResult{
		{data: []byte("7")},
		{data: []byte("3.2")},
		{data: []byte("\r\n55\n")},
	}}
	br, _ := newTestBridge(bus, conn)
	runBridge(t, br)

	require.Eventually(t, func() bool {
		return len(bus.messages(config.ActuatorTopic)) >= 2
	}, time.Second, time.Millisecond)
	assert.Equal(t, []string{"73.2", "55"}, bus.messages(config.ActuatorTopic)[:2])
}

func TestReadErrorTriggersReconnect(t *testing.T) {
	bus := newFakeBus()
	dead := &fakeConn{reads: []readResult{{err: io.ErrClosedPipe}}}
	alive := &fakeConn{reads: []readResult{{data: []byte("10\n")}}}
	br, dials := newTestBridge(bus, dead, alive)
	runBridge(t, br)

	require.Eventually(t, func() bool {
		return len(bus.messages(config.ActuatorTopic)) >= 1
	}, time.Second, time.Millisecond)

	assert.Equal(t, "10", bus.messages(config.ActuatorTopic)[0])
	assert.GreaterOrEqual(t, *dials, 2, "a read error must recycle the link")
	dead.mu.Lock()
	assert.True(t, dead.closed, "failed link must be released")
	dead.mu.Unlock()
}

func TestGarbageLineTriggersReconnect(t *testing.T) {
	bus := newFakeBus()
	noisy := &fakeConn{reads: []readResult{{data: []byte("@#garbage\n")}}}
	alive := &fakeConn{reads: []readResult{{data: []byte("99\n")}}}
	br, dials := newTestBridge(bus, noisy, alive)
	runBridge(t, br)

	require.Eventually(t, func() bool {
		return len(bus.messages(config.ActuatorTopic)) >= 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, "99", bus.messages(config.ActuatorTopic)[0])
	assert.GreaterOrEqual(t, *dials, 2)
}

func TestUnterminatedStreamTriggersReconnect(t *testing.T) {
	bus := newFakeBus()
	// A wrong-baud link streams bytes with no newline in sight.
	junk := make([]byte, 64)
	for i := range junk {
		junk[i] = 'x'
	}
	noisy := &fakeConn{reads: []readResult{{data: junk}, {data: junk}, {data: junk}}}
	alive := &fakeConn{reads: []readResult{{data: []byte("33\n")}}}
	br, dials := newTestBridge(bus, noisy, alive)
	runBridge(t, br)

	require.Eventually(t, func() bool {
		return len(bus.messages(config.ActuatorTopic)) >= 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, "33", bus.messages(config.ActuatorTopic)[0])
	assert.GreaterOrEqual(t, *dials, 2, "an unterminated stream must recycle the link")
	noisy.mu.Lock()
	assert.True(t, noisy.closed)
	noisy.mu.Unlock()
}

func TestBoardAbsentAtStartup(t *testing.T) {
	bus := newFakeBus()
	conn := &fakeConn{reads: []readResult{{data: []byte("5\n")}}}
	br := NewBridge("/dev/ttyTEST", config.SerialBaudRate, bus)
	br.ConnectRetryDelay = time.Millisecond
	br.ReconnectCooldown = time.Millisecond

	dials := 0
	br.Dial = func(portName string, baud int) (*Link, error) {
		dials++
		if dials < 4 {
			return nil, errors.New("no such device")
		}
		return &Link{Conn: conn, PortName: portName}, nil
	}
	runBridge(t, br)

	require.Eventually(t, func() bool {
		return len(bus.messages(config.ActuatorTopic)) >= 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, "5", bus.messages(config.ActuatorTopic)[0])
	assert.GreaterOrEqual(t, dials, 4, "bridge must keep retrying while the board is absent")
}

func TestWeightForwarding(t *testing.T) {
	bus := newFakeBus()
	conn := &fakeConn{}
	br, _ := newTestBridge(bus, conn)
	require.NoError(t, br.Start())
	runBridge(t, br)

	require.Eventually(t, br.Connected, time.Second, time.Millisecond)

	bus.handlers[config.WeightTopic]([]byte("123.4"))
	assert.Equal(t, []string{"123.4,"}, conn.written())

	// Malformed weight is dropped, the bridge keeps going.
	bus.handlers[config.WeightTopic]([]byte("not-a-weight"))
	assert.Equal(t, []string{"123.4,"}, conn.written())

	bus.handlers[config.WeightTopic]([]byte("200"))
	assert.Equal(t, []string{"123.4,", "200,"}, conn.written())
}

func TestWeightWriteFailureDoesNotReconnect(t *testing.T) {
	bus := newFakeBus()
	conn := &fakeConn{writeErr: errors.New("device busy")}
	br, dials := newTestBridge(bus, conn)
	require.NoError(t, br.Start())
	runBridge(t, br)

	require.Eventually(t, br.Connected, time.Second, time.Millisecond)
	bus.handlers[config.WeightTopic]([]byte("77"))

	time.Sleep(20 * time.Millisecond)
	assert.True(t, br.Connected())
	assert.Equal(t, 1, *dials, "write failures must not recycle the link")
}

func TestWeightDroppedWhileDisconnected(t *testing.T) {
	bus := newFakeBus()
	br := NewBridge("/dev/ttyTEST", config.SerialBaudRate, bus)
	require.NoError(t, br.Start())

	// No link up: the message is dropped, nothing panics.
	bus.handlers[config.WeightTopic]([]byte("42"))
	assert.False(t, br.Connected())
}

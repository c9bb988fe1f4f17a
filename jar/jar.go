// Package jar simulates jar handling on the scale: placing a jar adds its
// tare weight, removing it zeroes the dispensed mass for the next pour.
package jar

import (
	"sync"
	"time"

	"hilbee/config"
	"hilbee/logging"
	"hilbee/model"
	"hilbee/types"
)

// Controller owns the weight offset the sync loop adds to the reported
// scale value. Auto mode swaps jars by itself between pours.
type Controller struct {
	Model  *model.Dispenser
	Offset *types.FloatCell

	// Poll/swap timing, swappable for tests.
	PollInterval time.Duration
	SwapAfter    time.Duration
	SwapPause    time.Duration

	mu       sync.Mutex
	jarOn    bool
	autoStop chan struct{}
}

func New(m *model.Dispenser, offset *types.FloatCell) *Controller {
	return &Controller{
		Model:        m,
		Offset:       offset,
		PollInterval: config.JarPollInterval,
		SwapAfter:    config.JarSwapAfter,
		SwapPause:    config.JarSwapPause,
	}
}

// Place puts a jar on the scale: the tare weight shows up immediately.
func (c *Controller) Place() {
	c.mu.Lock()
	c.jarOn = true
	c.mu.Unlock()
	c.Offset.Store(config.JarWeightG)
	logging.Broadcast("jar placed on the scale", "jar")
}

// Remove takes the jar off and zeroes the dispensed mass, as swapping the
// full jar for an empty one does on the real bench.
func (c *Controller) Remove() {
	c.mu.Lock()
	c.jarOn = false
	c.mu.Unlock()
	c.Offset.Store(0)
	c.Model.ResetDispensed()
	logging.Broadcast("jar removed, dispensed mass reset", "jar")
}

func (c *Controller) JarOn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jarOn
}

// AutoRunning reports whether the auto-swap watcher is active.
func (c *Controller) AutoRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoStop != nil
}

// StartAuto launches the watcher that swaps jars between pours. No-op when
// already running.
func (c *Controller) StartAuto() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.autoStop != nil {
		return
	}
	c.autoStop = make(chan struct{})
	go c.autoLoop(c.autoStop)
	logging.Broadcast("auto jar placement on", "jar")
}

func (c *Controller) StopAuto() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopAutoLocked()
}

func (c *Controller) stopAutoLocked() {
	if c.autoStop == nil {
		return
	}
	close(c.autoStop)
	c.autoStop = nil
	logging.Broadcast("auto jar placement off", "jar")
}

// autoLoop polls the tap. Once it has been fully closed for SwapAfter the
// pour is considered done: remove the full jar, pause, place an empty one.
// The watcher shuts itself off when the bucket is nearly empty.
func (c *Controller) autoLoop(stop chan struct{}) {
	var closedSince time.Time

	for {
		select {
		case <-stop:
			return
		case <-time.After(c.PollInterval):
		}

		if c.Model.FillHeight() < config.MinAutoFillCm {
			c.mu.Lock()
			if c.autoStop == stop { // StopAuto may have raced us
				c.autoStop = nil
				logging.Broadcast("bucket nearly empty, auto jar off", "jar")
			}
			c.mu.Unlock()
			return
		}

		if c.Model.TapOpening() > 0 {
			closedSince = time.Time{}
			continue
		}
		if closedSince.IsZero() {
			closedSince = time.Now()
			continue
		}
		if time.Since(closedSince) < c.SwapAfter {
			continue
		}

		c.Remove()
		select {
		case <-stop:
			return
		case <-time.After(c.SwapPause):
		}
		c.Place()
		closedSince = time.Time{}
	}
}

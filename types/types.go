package types

import (
	"math"
	"sync/atomic"
)

// FloatCell is a last-write-wins float shared between a bus callback and a
// polling loop. Loads never observe a torn value.
type FloatCell struct {
	bits atomic.Uint64
}

func (c *FloatCell) Store(v float64) {
	c.bits.Store(math.Float64bits(v))
}

func (c *FloatCell) Load() float64 {
	return math.Float64frombits(c.bits.Load())
}

type LogMessage struct {
	Time    string `json:"time"`
	Message string `json:"message"`
	Type    string `json:"type"` // "sim", "bridge", "bus", "jar", "system"
}

// RigStatus is the live status block served by the web panel.
type RigStatus struct {
	BusConnected  bool    `json:"bus_connected"`
	BusURL        string  `json:"bus_url"`
	LastWeightG   float64 `json:"last_weight_g"`
	LastActuator  float64 `json:"last_actuator"`
	WeightOffsetG float64 `json:"weight_offset_g"`
	AutoJar       bool    `json:"auto_jar"`
}

package config

import "time"

// Bus topics shared by the simulation process and the hardware bridge.
const (
	ActuatorTopic = "actuator"
	WeightTopic   = "weight"
	StateTopic    = "state"
)

const (
	// Serial link to the dispenser controller board.
	SerialBaudRate    = 250000
	SerialReadTimeout = 1 * time.Second
	ConnectRetryDelay = 3 * time.Second
	ReconnectCooldown = 2 * time.Second

	// Fixed timestep of the simulation loop.
	StepInterval = 100 * time.Millisecond

	// Jar handling on the simulated scale.
	JarWeightG      = 50.0
	JarPollInterval = 200 * time.Millisecond
	JarSwapAfter    = 10 * time.Second
	JarSwapPause    = 2 * time.Second
	MinAutoFillCm   = 5.0
)

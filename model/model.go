// Package model simulates the honey dispenser: a draining cylindrical bucket
// with a servo-driven tap above a scale. The hardware under test commands the
// tap opening; the model answers with the weight the scale would show.
package model

import (
	"math"
	"sync"
)

// Fluid constants: honey density and gravity.
const (
	densityKgM3 = 1400.0
	gravity     = 9.81
)

// ViscosityType selects one of the honey presets.
type ViscosityType string

const (
	ViscosityLow    ViscosityType = "low"
	ViscosityMedium ViscosityType = "medium"
	ViscosityHigh   ViscosityType = "high"
)

// BaseViscosity returns the preset viscosity in Pa·s at the 20°C reference.
func (v ViscosityType) BaseViscosity() float64 {
	switch v {
	case ViscosityLow:
		return 12.0
	case ViscosityMedium:
		return 25.0
	case ViscosityHigh:
		return 75.0
	}
	return 0
}

// Valid reports whether v is one of the known presets.
func (v ViscosityType) Valid() bool {
	switch v {
	case ViscosityLow, ViscosityMedium, ViscosityHigh:
		return true
	}
	return false
}

// Geometry is the fixed rig topology, set at construction.
type Geometry struct {
	BucketDiameterCm float64
	BucketHeightCm   float64
	TapDiameterMm    float64
	TapToScaleCm     float64
}

// DefaultGeometry matches the physical bench the controller ships on.
func DefaultGeometry() Geometry {
	return Geometry{
		BucketDiameterCm: 40.0,
		BucketHeightCm:   60.0,
		TapDiameterMm:    50.0,
		TapToScaleCm:     20.0,
	}
}

// State is an immutable snapshot of the dispenser, published on the state
// topic. Field names follow the rig's observability contract.
type State struct {
	FillHeightCm    float64       `json:"fill_height_cm"`
	TapOpening      float64       `json:"tap_opening"`
	TemperatureC    float64       `json:"temperature_c"`
	ViscosityType   ViscosityType `json:"viscosity_type"`
	ViscosityPaS    float64       `json:"viscosity_Pa_s"`
	FlowGPerS       float64       `json:"flow_g_per_s"`
	TransportDelayS float64       `json:"transport_delay_s"`
	TotalDispensedG float64       `json:"total_dispensed_g"`
	TimeSinceOpenS  float64       `json:"time_since_open"`
}

// Dispenser holds the simulated process state. Safe for use from the sim
// loop, the jar controller and the web panel concurrently.
type Dispenser struct {
	mu   sync.Mutex
	geom Geometry

	fillHeightCm float64
	tapOpening   float64
	temperatureC float64
	viscosity    ViscosityType

	timeSinceOpenS  float64
	totalDispensedG float64
	lastFlowGPerS   float64
	lastDelayS      float64
}

// New returns a dispenser with a full bucket, medium honey at 20°C.
func New(geom Geometry) *Dispenser {
	return &Dispenser{
		geom:         geom,
		fillHeightCm: geom.BucketHeightCm,
		temperatureC: 20.0,
		viscosity:    ViscosityMedium,
	}
}

// SetTapOpening clamps opening to [0,1]. Fully closing the tap rearms the
// ramp-up, so the next opening starts from zero flow.
func (d *Dispenser) SetTapOpening(opening float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	opening = clamp(opening, 0, 1)
	if opening == 0 {
		d.timeSinceOpenS = 0
	}
	d.tapOpening = opening
}

func (d *Dispenser) SetTemperature(c float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.temperatureC = c
}

// SetViscosityType switches presets. Unknown names are ignored and the
// previous preset stays in effect.
func (d *Dispenser) SetViscosityType(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if v := ViscosityType(name); v.Valid() {
		d.viscosity = v
	}
}

// SetFillHeight clamps to [0, bucket height].
func (d *Dispenser) SetFillHeight(cm float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fillHeightCm = clamp(cm, 0, d.geom.BucketHeightCm)
}

// ResetDispensed zeroes the accumulated mass. Called when the jar is swapped.
func (d *Dispenser) ResetDispensed() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.totalDispensedG = 0
}

// Viscosity returns the effective viscosity in Pa·s: the preset value doubles
// for every 10°C below the 20°C reference and halves above it.
func (d *Dispenser) Viscosity() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viscosityLocked()
}

func (d *Dispenser) viscosityLocked() float64 {
	return d.viscosity.BaseViscosity() * math.Pow(2, (20.0-d.temperatureC)/10.0)
}

// HeadPressurePa returns the hydrostatic pressure at the tap.
func (d *Dispenser) HeadPressurePa() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.headPressureLocked()
}

func (d *Dispenser) headPressureLocked() float64 {
	return densityKgM3 * gravity * (d.fillHeightCm / 100.0)
}

// tapAreaCm2 is the tap cross-section in cm².
func (d *Dispenser) tapAreaCm2() float64 {
	r := (d.geom.TapDiameterMm / 10.0) / 2.0
	return math.Pi * r * r
}

// FlowRate computes the current mass flow in g/s.
func (d *Dispenser) FlowRate() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flowLocked()
}

// flowLocked implements the tap model: laminar Hagen–Poiseuille flow under
// hydrostatic head with a quadratic valve law, a 2 s linear ramp after
// opening, and a turbulence penalty above Re 2000. Updates lastFlowGPerS.
func (d *Dispenser) flowLocked() float64 {
	r := (d.geom.TapDiameterMm / 1000.0) / 2.0
	deltaP := d.headPressureLocked() * (d.tapOpening * d.tapOpening)
	viscosity := d.viscosityLocked()
	length := d.geom.TapDiameterMm / 1000.0

	qM3S := (math.Pi * math.Pow(r, 4) * deltaP) / (8 * viscosity * length)

	rampFactor := math.Min(1.0, d.timeSinceOpenS/2.0)
	qGS := qM3S * densityKgM3 * 1000.0
	qGS *= rampFactor

	if d.reynoldsLocked(qGS) > 2000 {
		qGS *= 0.7
	}
	if deltaP < 50 || d.tapOpening < 0.05 {
		qGS = 0
	}
	if d.tapOpening == 0 || d.fillHeightCm <= 0 {
		qGS = 0
	}

	d.lastFlowGPerS = qGS
	return qGS
}

// reynoldsLocked derives the Reynolds number from a mass flow in g/s.
func (d *Dispenser) reynoldsLocked(flowGPerS float64) float64 {
	r := (d.geom.TapDiameterMm / 1000.0) / 2.0
	area := math.Pi * r * r
	velocity := (flowGPerS / 1000.0) / (densityKgM3 * area)
	return (densityKgM3 * velocity * 2 * r) / d.viscosityLocked()
}

// TransportDelay returns the time for fluid leaving the tap to land on the
// scale, zero while nothing flows.
func (d *Dispenser) TransportDelay() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.delayLocked(d.flowLocked())
}

func (d *Dispenser) delayLocked(flowGPerS float64) float64 {
	areaM2 := d.tapAreaCm2() / 10000.0
	flowKgS := flowGPerS / 1000.0
	delay := 0.0
	if areaM2 > 0 && flowKgS > 0 {
		velocity := flowKgS / (densityKgM3 * areaM2)
		delay = (d.geom.TapToScaleCm / 100.0) / velocity
	}
	d.lastDelayS = delay
	return delay
}

// Step advances the simulation by dt seconds and returns the mass dispensed
// during the step, in grams.
func (d *Dispenser) Step(dt float64) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.tapOpening > 0 {
		d.timeSinceOpenS += dt
	} else {
		d.timeSinceOpenS = 0
	}

	flow := d.flowLocked()
	d.delayLocked(flow)
	dispensed := flow * dt

	bucketAreaCm2 := math.Pi * math.Pow(d.geom.BucketDiameterCm/2.0, 2)
	bucketAreaM2 := bucketAreaCm2 / 10000.0
	volumeM3 := dispensed / densityKgM3 / 1000.0
	heightLossCm := (volumeM3 / bucketAreaM2) * 100.0

	d.fillHeightCm = math.Max(0, d.fillHeightCm-heightLossCm)
	d.totalDispensedG += dispensed
	return dispensed
}

// State snapshots all reportable fields. Flow and delay are the values
// computed by the most recent Step.
func (d *Dispenser) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State{
		FillHeightCm:    d.fillHeightCm,
		TapOpening:      d.tapOpening,
		TemperatureC:    d.temperatureC,
		ViscosityType:   d.viscosity,
		ViscosityPaS:    d.viscosityLocked(),
		FlowGPerS:       d.lastFlowGPerS,
		TransportDelayS: d.lastDelayS,
		TotalDispensedG: d.totalDispensedG,
		TimeSinceOpenS:  d.timeSinceOpenS,
	}
}

func (d *Dispenser) TapOpening() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tapOpening
}

func (d *Dispenser) FillHeight() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fillHeightCm
}

func (d *Dispenser) TotalDispensed() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.totalDispensedG
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

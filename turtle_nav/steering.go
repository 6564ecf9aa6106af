package turtle_nav

import (
	"math"
	"time"
)

// PID is a proportional-integral-derivative controller on an error signal.
// Its state survives across calls.
type PID struct {
	Kp, Ki, Kd float64
	// IntegralLimit bounds |integral| when > 0.
	IntegralLimit float64

	integral float64
	prevErr  float64
	primed   bool
}

// Update steps the controller with error e held for dt. The output has the
// sign of Kp*e.
func (p *PID) Update(e float64, dt time.Duration) float64 {
	sec := dt.Seconds()

	p.integral += e * sec
	if p.IntegralLimit > 0 {
		p.integral = clamp(p.integral, -p.IntegralLimit, p.IntegralLimit)
	}

	var deriv float64
	if p.primed && sec > 0 {
		deriv = (e - p.prevErr) / sec
	}
	p.prevErr = e
	p.primed = true

	return p.Kp*e + p.Ki*p.integral + p.Kd*deriv
}

// Integral returns the accumulated error integral.
func (p *PID) Integral() float64 {
	return p.integral
}

// Reset clears integral and derivative history.
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.primed = false
}

// SteeringConfig configures the line-following steering law.
type SteeringConfig struct {
	Kp float64 `json:"kp" yaml:"kp"`
	Ki float64 `json:"ki" yaml:"ki"`
	Kd float64 `json:"kd" yaml:"kd"`

	// CenterShift biases the pixel error, for cameras not mounted on center.
	CenterShift float64 `json:"center_shift" yaml:"center_shift"`
	FrameWidth  float64 `json:"frame_width" yaml:"frame_width"`
	// OutputScale divides the controller output into rad/s.
	OutputScale float64 `json:"output_scale" yaml:"output_scale"`

	IntegralLimit float64 `json:"integral_limit" yaml:"integral_limit"`
	MaxAngular    float64 `json:"max_angular" yaml:"max_angular"`

	// MaxDt caps the time step integrated for one line record. Zero
	// leaves it uncapped.
	MaxDt Duration `json:"max_dt" yaml:"max_dt"`

	// UseProducerAngular passes the line producer's angular velocity
	// through instead of running the local law.
	UseProducerAngular bool `json:"use_producer_angular" yaml:"use_producer_angular"`
}

// SteeringLaw converts a line centroid into an angular velocity.
type SteeringLaw struct {
	cfg SteeringConfig
	pid PID
}

// NewSteeringLaw constructs a law with a fresh PID.
func NewSteeringLaw(cfg SteeringConfig) *SteeringLaw {
	return &SteeringLaw{
		cfg: cfg,
		pid: PID{Kp: cfg.Kp, Ki: cfg.Ki, Kd: cfg.Kd, IntegralLimit: cfg.IntegralLimit},
	}
}

// LateralError is the centroid's pixel offset from the biased frame center.
func (s *SteeringLaw) LateralError(centroidX float64) float64 {
	return centroidX - s.cfg.FrameWidth/2 + s.cfg.CenterShift
}

// Steer runs one PID step on the centroid's lateral error and scales the
// output into rad/s. A line right of center yields a positive angular
// velocity for positive gains.
func (s *SteeringLaw) Steer(centroidX float64, dt time.Duration) float64 {
	u := s.pid.Update(s.LateralError(centroidX), dt)
	angular := u / s.cfg.OutputScale
	if s.cfg.MaxAngular > 0 {
		angular = clamp(angular, -s.cfg.MaxAngular, s.cfg.MaxAngular)
	}
	return angular
}

// PID exposes the underlying controller for inspection.
func (s *SteeringLaw) PID() *PID {
	return &s.pid
}

// clamp keeps value inside [lo, hi].
func clamp(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, value))
}

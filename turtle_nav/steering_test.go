package turtle_nav

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPIDIntegralStepResponse(t *testing.T) {
	p := PID{Kp: 0, Ki: 0.5, Kd: 0}
	const e = 40.0
	dt := 100 * time.Millisecond

	prev := 0.0
	for i := 1; i <= 20; i++ {
		out := p.Update(e, dt)
		assert.InDelta(t, 0.5*e*dt.Seconds(), out-prev, 1e-9, "tick %d", i)
		assert.InDelta(t, e*dt.Seconds()*float64(i), p.Integral(), 1e-9)
		prev = out
	}
}

func TestPIDProportionalAndDerivative(t *testing.T) {
	p := PID{Kp: 2, Kd: 0.1}
	dt := 100 * time.Millisecond

	// First call has no derivative history.
	assert.InDelta(t, 20.0, p.Update(10, dt), 1e-9)
	// Error goes from 10 to 30 in 0.1s: derivative 200.
	assert.InDelta(t, 2*30.0+0.1*200.0, p.Update(30, dt), 1e-9)

	p.Reset()
	assert.Zero(t, p.Integral())
	assert.InDelta(t, 20.0, p.Update(10, dt), 1e-9)
}

func TestPIDIntegralLimit(t *testing.T) {
	p := PID{Ki: 1, IntegralLimit: 2}
	for i := 0; i < 100; i++ {
		p.Update(100, 100*time.Millisecond)
	}
	assert.Equal(t, 2.0, p.Integral())

	for i := 0; i < 100; i++ {
		p.Update(-100, 100*time.Millisecond)
	}
	assert.Equal(t, -2.0, p.Integral())
}

func TestSteeringLawLateralError(t *testing.T) {
	s := NewSteeringLaw(SteeringConfig{Kp: 1, FrameWidth: 640, OutputScale: 450, CenterShift: -15})
	assert.Equal(t, 0.0, s.LateralError(335))
	assert.Equal(t, 85.0, s.LateralError(420))
	assert.Equal(t, -335.0, s.LateralError(0))
}

func TestSteeringLawScalesWithErrorSign(t *testing.T) {
	s := NewSteeringLaw(SteeringConfig{Kp: 1, FrameWidth: 640, OutputScale: 450})

	right := s.Steer(320+90, 100*time.Millisecond)
	assert.InDelta(t, 90.0/450, right, 1e-9)

	left := s.Steer(320-45, 100*time.Millisecond)
	assert.InDelta(t, -45.0/450, left, 1e-9)

	assert.Zero(t, s.Steer(320, 100*time.Millisecond))
}

func TestSteeringLawMaxAngular(t *testing.T) {
	s := NewSteeringLaw(SteeringConfig{Kp: 10, FrameWidth: 640, OutputScale: 450, MaxAngular: 1.5})
	assert.Equal(t, 1.5, s.Steer(640, 100*time.Millisecond))
	assert.Equal(t, -1.5, s.Steer(0, 100*time.Millisecond))
}

func TestSteeringLawKeepsStateAcrossCalls(t *testing.T) {
	s := NewSteeringLaw(SteeringConfig{Ki: 1, FrameWidth: 640, OutputScale: 1})
	s.Steer(330, time.Second)
	s.Steer(330, time.Second)
	assert.InDelta(t, 20.0, s.PID().Integral(), 1e-9)
}

func TestSteeringLawIntegratesLateralError(t *testing.T) {
	s := NewSteeringLaw(SteeringConfig{Kp: 1, Ki: 1, FrameWidth: 640, OutputScale: 450})
	angular := s.Steer(330, time.Second)
	assert.Equal(t, 10.0, s.LateralError(330))
	assert.InDelta(t, 10.0, s.PID().Integral(), 1e-9)
	assert.InDelta(t, 20.0/450, angular, 1e-9)
}

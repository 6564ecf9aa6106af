package turtle_nav

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func controllerIn(mode Mode, tweak func(*AppConfig)) *Controller {
	cfg := DefaultConfig()
	cfg.InitialMode = mode
	if tweak != nil {
		tweak(&cfg)
	}
	return NewController(cfg)
}

func TestControllerStopScenario(t *testing.T) {
	c := controllerIn(ModeLineFollowing, func(cfg *AppConfig) { cfg.Steering.Kp = 1 })

	cmds := map[time.Duration]VelocityCommand{}
	var seq uint64
	for off := time.Duration(0); off <= 22*time.Second; off += 100 * time.Millisecond {
		seq++
		snap := PerceptionSnapshot{Line: lineReading(410, seq)}
		if off == 0 {
			snap.Sign = signReading(3300, 1)
		}
		report := c.Step(t0.Add(off), snap)
		require.Equal(t, ModeLineFollowing, report.Command.Mode, "at %s", off)
		cmds[off] = report.Command
	}

	steering := 90.0 / 450
	before := cmds[17900*time.Millisecond]
	assert.Equal(t, StopApproaching, before.Phase)
	assert.InDelta(t, 0.1, before.Linear, 1e-9)
	assert.InDelta(t, steering, before.Angular, 1e-9)

	holding := cmds[18100*time.Millisecond]
	assert.Equal(t, StopHolding, holding.Phase)
	assert.Zero(t, holding.Linear)
	assert.Zero(t, holding.Angular)

	after := cmds[21200*time.Millisecond]
	assert.Equal(t, StopInactive, after.Phase)
	assert.InDelta(t, 0.1, after.Linear, 1e-9)
	assert.InDelta(t, steering, after.Angular, 1e-9)
	assert.Equal(t, StopManeuverState{}, c.StopState())
}

func TestControllerTagFollowingHoldsLastCommand(t *testing.T) {
	c := controllerIn(ModeTagFollowing, nil)

	first := c.Step(t0, PerceptionSnapshot{Marker: markerReading(0.15, 0.3, 1)}).Command
	assert.Equal(t, 0.15, first.Linear)
	assert.Equal(t, 0.3, first.Angular)

	for i := 1; i <= 3; i++ {
		now := t0.Add(time.Duration(i) * 100 * time.Millisecond)
		got := c.Step(now, PerceptionSnapshot{}).Command

		want := first
		want.At = now
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("tick %d command mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestControllerObstaclePassThrough(t *testing.T) {
	c := controllerIn(ModeObstacleAvoidance, nil)

	// Before the producer reports, the nominal forward speed is used.
	cmd := c.Step(t0, PerceptionSnapshot{}).Command
	assert.Equal(t, ModeObstacleAvoidance, cmd.Mode)
	assert.Equal(t, 0.2, cmd.Linear)
	assert.Zero(t, cmd.Angular)

	obstacle := Reading[ObstacleVelocity]{Value: ObstacleVelocity{Linear: 0.05, Angular: -0.7}, Present: true, Seq: 1}
	cmd = c.Step(t0.Add(100*time.Millisecond), PerceptionSnapshot{Obstacle: obstacle}).Command
	assert.Equal(t, 0.05, cmd.Linear)
	assert.Equal(t, -0.7, cmd.Angular)

	cleared := Reading[ObstacleVelocity]{Seq: 2}
	cmd = c.Step(t0.Add(200*time.Millisecond), PerceptionSnapshot{Obstacle: cleared}).Command
	assert.Equal(t, 0.05, cmd.Linear)
	assert.Equal(t, -0.7, cmd.Angular)
}

func TestControllerReusesStaleLineAngular(t *testing.T) {
	c := controllerIn(ModeLineFollowing, func(cfg *AppConfig) {
		cfg.Steering.Kp = 1
		cfg.Steering.Ki = 2
	})

	r1 := c.Step(t0, PerceptionSnapshot{Line: lineReading(500, 7)})
	require.True(t, r1.Steered)
	integral := c.steer.PID().Integral()

	// Same sequence: the cached angular is reused and the PID does not step.
	r2 := c.Step(t0.Add(100*time.Millisecond), PerceptionSnapshot{Line: lineReading(500, 7)})
	assert.False(t, r2.Steered)
	assert.Equal(t, r1.Command.Angular, r2.Command.Angular)
	assert.Equal(t, integral, c.steer.PID().Integral())

	r3 := c.Step(t0.Add(200*time.Millisecond), PerceptionSnapshot{Line: lineReading(500, 8)})
	assert.True(t, r3.Steered)
	assert.NotEqual(t, integral, c.steer.PID().Integral())
}

func TestControllerLineAbsentInLineFollowing(t *testing.T) {
	c := controllerIn(ModeLineFollowing, nil)
	c.Step(t0, PerceptionSnapshot{Line: lineReading(600, 1)})

	cmd := c.Step(t0.Add(100*time.Millisecond), PerceptionSnapshot{Line: Reading[LineDetection]{Seq: 2}}).Command
	assert.Equal(t, ModeLineFollowing, cmd.Mode)
	assert.Equal(t, 0.1, cmd.Linear)
	assert.Zero(t, cmd.Angular)
}

func TestControllerProducerAngular(t *testing.T) {
	c := controllerIn(ModeLineFollowing, func(cfg *AppConfig) { cfg.Steering.UseProducerAngular = true })
	line := Reading[LineDetection]{Value: LineDetection{CentroidX: 10, AngularVelocity: 0.42}, Present: true, Seq: 1}

	r := c.Step(t0, PerceptionSnapshot{Line: line})
	assert.False(t, r.Steered)
	assert.Equal(t, 0.42, r.Command.Angular)
	assert.Zero(t, c.steer.PID().Integral())
}

func TestControllerSteeringDt(t *testing.T) {
	c := controllerIn(ModeLineFollowing, func(cfg *AppConfig) {
		cfg.Steering.Kp = 0
		cfg.Steering.Ki = 1
		cfg.Steering.OutputScale = 1
	})

	// First call integrates one nominal period.
	c.Step(t0, PerceptionSnapshot{Line: lineReading(330, 1)})
	assert.InDelta(t, 10*0.1, c.steer.PID().Integral(), 1e-9)

	c.Step(t0.Add(150*time.Millisecond), PerceptionSnapshot{Line: lineReading(330, 2)})
	assert.InDelta(t, 10*0.25, c.steer.PID().Integral(), 1e-9)

	// A long gap is capped at max_dt.
	c.Step(t0.Add(5*time.Second), PerceptionSnapshot{Line: lineReading(330, 3)})
	assert.InDelta(t, 10*1.25, c.steer.PID().Integral(), 1e-9)
}

func TestControllerSteeringDtUncapped(t *testing.T) {
	c := controllerIn(ModeLineFollowing, func(cfg *AppConfig) {
		cfg.Steering.Kp = 0
		cfg.Steering.Ki = 1
		cfg.Steering.OutputScale = 1
		cfg.Steering.MaxDt = 0
	})

	c.Step(t0, PerceptionSnapshot{Line: lineReading(330, 1)})
	c.Step(t0.Add(5*time.Second), PerceptionSnapshot{Line: lineReading(330, 2)})
	assert.InDelta(t, 10*5.1, c.steer.PID().Integral(), 1e-9)
}

func TestControllerSlowLineProducerIntegratesWallTime(t *testing.T) {
	c := controllerIn(ModeLineFollowing, func(cfg *AppConfig) {
		cfg.Steering.Kp = 0
		cfg.Steering.Ki = 1
		cfg.Steering.OutputScale = 1
	})

	// 10 Hz tick, 5 Hz producer: a fresh record every other tick.
	steered := 0
	for i := 0; i <= 100; i++ {
		snap := PerceptionSnapshot{Line: lineReading(330, uint64(i/2+1))}
		if c.Step(t0.Add(time.Duration(i)*100*time.Millisecond), snap).Steered {
			steered++
		}
	}

	assert.Equal(t, 51, steered)
	// One nominal period for the first record, then 0.2s per record.
	assert.InDelta(t, 10*(0.1+50*0.2), c.steer.PID().Integral(), 1e-9)
}

func TestControllerDefersHoldUntilLineFollowingReturns(t *testing.T) {
	c := controllerIn(ModeLineFollowing, nil)

	cmds := map[time.Duration]VelocityCommand{}
	var seq uint64
	for off := time.Duration(0); off <= 30*time.Second; off += 100 * time.Millisecond {
		seq++
		var snap PerceptionSnapshot
		switch {
		case off == 0:
			snap.Line = lineReading(320, seq)
			snap.Sign = signReading(3300, 1)
		case off < 25*time.Second:
			snap.Marker = markerReading(0.1, 0.2, seq)
		default:
			snap.Line = lineReading(320, seq)
		}
		cmds[off] = c.Step(t0.Add(off), snap).Command
	}

	// Tag following holds the robot from 1s until the dwell boundary at 26.5s.
	for off, cmd := range cmds {
		if off < 26500*time.Millisecond {
			require.NotEqual(t, StopHolding, cmd.Phase, "at %s", off)
		}
	}
	assert.Equal(t, ModeTagFollowing, cmds[26400*time.Millisecond].Mode)
	assert.Equal(t, StopApproaching, cmds[26400*time.Millisecond].Phase)

	hold := cmds[26500*time.Millisecond]
	assert.Equal(t, ModeLineFollowing, hold.Mode)
	assert.Equal(t, StopHolding, hold.Phase)
	assert.Zero(t, hold.Linear)
	assert.Zero(t, hold.Angular)

	assert.Equal(t, StopHolding, cmds[29400*time.Millisecond].Phase)
	assert.Zero(t, cmds[29400*time.Millisecond].Linear)

	resumed := cmds[29500*time.Millisecond]
	assert.Equal(t, StopInactive, resumed.Phase)
	assert.InDelta(t, 0.1, resumed.Linear, 1e-9)
	assert.Equal(t, 1, c.stop.Cycles())
}

func TestControllerModeSwitchSequence(t *testing.T) {
	c := controllerIn(ModeObstacleAvoidance, nil)
	marker := markerReading(0.12, -0.1, 1)

	var modes []Mode
	for i := 0; i <= 40; i++ {
		snap := PerceptionSnapshot{Marker: marker}
		if i >= 20 {
			snap.Line = lineReading(320, uint64(i))
		}
		r := c.Step(t0.Add(time.Duration(i)*100*time.Millisecond), snap)
		if r.Decision.Changed() {
			modes = append(modes, r.Command.Mode)
		}
	}

	// Tag following wins at 1s, then its 5s dwell delays the line until 6.1s.
	want := []Mode{ModeTagFollowing}
	assert.Empty(t, cmp.Diff(want, modes, cmpopts.EquateEmpty()))
	assert.Equal(t, ModeTagFollowing, c.Mode())
}

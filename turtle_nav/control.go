package turtle_nav

import "time"

// TickReport is everything one controller step decided.
type TickReport struct {
	Command  VelocityCommand
	Decision ArbiterDecision
	Stop     StopStep
	// Steered is true when the steering law ran on a fresh line record.
	Steered bool
}

// Controller is the arbiter context owned by the tick task: mode arbiter,
// stop maneuver, steering law and the last emitted command.
type Controller struct {
	nominalSpeed float64
	period       time.Duration
	producerAng  bool
	maxDt        time.Duration

	arbiter *ModeArbiter
	stop    *StopManeuver
	steer   *SteeringLaw

	last     VelocityCommand
	obstacle ObstacleVelocity

	// line is the cached line record, with the angular velocity the
	// steering law computed for it.
	line        LineDetection
	lineSeq     uint64
	lastSteerAt time.Time
}

// NewController constructs a controller from a validated config.
func NewController(cfg AppConfig) *Controller {
	return &Controller{
		nominalSpeed: cfg.NominalSpeed,
		period:       cfg.Period(),
		producerAng:  cfg.Steering.UseProducerAngular,
		maxDt:        cfg.Steering.MaxDt.Std(),
		arbiter:      NewModeArbiter(cfg.InitialMode, cfg.Dwell),
		stop:         NewStopManeuver(cfg.Stop),
		steer:        NewSteeringLaw(cfg.Steering),
		obstacle:     ObstacleVelocity{Linear: cfg.NominalSpeed},
		last:         VelocityCommand{Mode: cfg.InitialMode},
	}
}

// Step computes the command for one tick.
func (c *Controller) Step(now time.Time, snap PerceptionSnapshot) TickReport {
	if snap.Obstacle.Present {
		c.obstacle = snap.Obstacle.Value
	}

	decision := c.arbiter.Tick(now, snap)
	stop := c.stop.Step(now, decision.Mode, snap.Sign)
	report := TickReport{Decision: decision, Stop: stop}

	cmd := VelocityCommand{At: now, Mode: decision.Mode, Phase: stop.Phase}
	switch decision.Mode {
	case ModeObstacleAvoidance:
		cmd.Linear = c.obstacle.Linear
		cmd.Angular = c.obstacle.Angular
	case ModeLineFollowing:
		cmd.Linear = c.nominalSpeed / 2
		if snap.Line.Present {
			cmd.Angular, report.Steered = c.lineAngular(now, snap.Line)
		}
		if stop.ForceZero {
			cmd.Linear = 0
			cmd.Angular = 0
		}
	case ModeTagFollowing:
		if snap.Marker.Present {
			cmd.Linear = snap.Marker.Value.LinearVelocity
			cmd.Angular = snap.Marker.Value.AngularVelocity
		} else {
			cmd.Linear = c.last.Linear
			cmd.Angular = c.last.Angular
		}
	}

	c.last = cmd
	report.Command = cmd
	return report
}

// lineAngular steps the steering law when the line record is fresh and
// reuses the cached result when it is not, so the PID never integrates the
// same frame twice.
func (c *Controller) lineAngular(now time.Time, r Reading[LineDetection]) (float64, bool) {
	if c.producerAng {
		return r.Value.AngularVelocity, false
	}
	if r.Seq == c.lineSeq {
		return c.line.AngularVelocity, false
	}

	dt := c.steerDt(now)
	c.lastSteerAt = now

	c.line = r.Value
	c.line.AngularVelocity = c.steer.Steer(r.Value.CentroidX, dt)
	c.lineSeq = r.Seq
	return c.line.AngularVelocity, true
}

// steerDt is the wall time since the previous steering call. The first call
// and non-positive gaps integrate one tick period.
func (c *Controller) steerDt(now time.Time) time.Duration {
	if c.lastSteerAt.IsZero() {
		return c.period
	}
	dt := now.Sub(c.lastSteerAt)
	if dt <= 0 {
		return c.period
	}
	if c.maxDt > 0 && dt > c.maxDt {
		dt = c.maxDt
	}
	return dt
}

// Mode returns the active mode.
func (c *Controller) Mode() Mode {
	return c.arbiter.Mode()
}

// ArbiterState returns the arbiter's current state.
func (c *Controller) ArbiterState() ArbiterState {
	return c.arbiter.State()
}

// StopState returns the stop maneuver's current state.
func (c *Controller) StopState() StopManeuverState {
	return c.stop.State()
}

// Last returns the most recent command.
func (c *Controller) Last() VelocityCommand {
	return c.last
}

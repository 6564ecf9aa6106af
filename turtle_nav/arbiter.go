package turtle_nav

import "time"

// DwellConfig is the minimum time a decision holds before the arbiter may
// re-evaluate, keyed by the mode that decision selected.
type DwellConfig struct {
	LineFollowing     Duration `json:"line_following" yaml:"line_following"`
	TagFollowing      Duration `json:"tag_following" yaml:"tag_following"`
	ObstacleAvoidance Duration `json:"obstacle_avoidance" yaml:"obstacle_avoidance"`
}

// For returns the dwell threshold attached to mode m.
func (d DwellConfig) For(m Mode) time.Duration {
	switch m {
	case ModeLineFollowing:
		return d.LineFollowing.Std()
	case ModeTagFollowing:
		return d.TagFollowing.Std()
	default:
		return d.ObstacleAvoidance.Std()
	}
}

// Evaluate picks the mode for a snapshot. Line beats marker, and obstacle
// avoidance is the fallback when neither is present. It has no state.
func (d DwellConfig) Evaluate(s PerceptionSnapshot) (Mode, time.Duration) {
	var m Mode
	switch {
	case s.Line.Present:
		m = ModeLineFollowing
	case s.Marker.Present:
		m = ModeTagFollowing
	default:
		m = ModeObstacleAvoidance
	}
	return m, d.For(m)
}

// ArbiterState is the arbiter's cross-tick state.
type ArbiterState struct {
	Mode Mode
	// DwellStart is when the current dwell window opened; nil until the
	// first tick after a decision.
	DwellStart *time.Time
	// DwellThreshold was set by the last decision and gates the next one.
	DwellThreshold time.Duration
}

// ArbiterDecision describes what the arbiter did on one tick.
type ArbiterDecision struct {
	Mode      Mode
	Previous  Mode
	Threshold time.Duration
	Evaluated bool
}

// Changed reports whether the tick switched modes.
func (d ArbiterDecision) Changed() bool {
	return d.Evaluated && d.Mode != d.Previous
}

// ModeArbiter gates Evaluate behind a dwell timer so mode switches happen
// at most once per dwell threshold.
type ModeArbiter struct {
	dwell DwellConfig
	state ArbiterState
}

// NewModeArbiter starts in the given mode with that mode's threshold.
func NewModeArbiter(initial Mode, dwell DwellConfig) *ModeArbiter {
	return &ModeArbiter{
		dwell: dwell,
		state: ArbiterState{Mode: initial, DwellThreshold: dwell.For(initial)},
	}
}

// Tick advances the dwell timer and re-evaluates once the threshold set by
// the previous decision has elapsed. The tick that opens a dwell window
// never evaluates.
func (a *ModeArbiter) Tick(now time.Time, s PerceptionSnapshot) ArbiterDecision {
	st := &a.state
	d := ArbiterDecision{Mode: st.Mode, Previous: st.Mode, Threshold: st.DwellThreshold}

	if st.DwellStart == nil {
		start := now
		st.DwellStart = &start
		return d
	}
	if now.Sub(*st.DwellStart) < st.DwellThreshold {
		return d
	}

	st.Mode, st.DwellThreshold = a.dwell.Evaluate(s)
	st.DwellStart = nil

	d.Mode = st.Mode
	d.Threshold = st.DwellThreshold
	d.Evaluated = true
	return d
}

// Mode returns the active mode.
func (a *ModeArbiter) Mode() Mode {
	return a.state.Mode
}

// State returns a copy of the arbiter state.
func (a *ModeArbiter) State() ArbiterState {
	st := a.state
	if st.DwellStart != nil {
		start := *st.DwellStart
		st.DwellStart = &start
	}
	return st
}

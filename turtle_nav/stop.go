package turtle_nav

import "time"

// StopConfig controls the sign-triggered stop maneuver.
//
// Detector selects a preset for the sign producer in use. A non-zero field
// overrides the preset; zero selects the preset value, so every effective
// threshold and duration is positive.
type StopConfig struct {
	Detector         string   `json:"detector" yaml:"detector"`
	AreaThreshold    float64  `json:"area_threshold" yaml:"area_threshold"`
	ApproachDuration Duration `json:"approach_duration" yaml:"approach_duration"`
	StopDuration     Duration `json:"stop_duration" yaml:"stop_duration"`
}

// Detector presets. The learned detector reports tighter, larger boxes and
// fires closer to the sign, so it triggers on a bigger area and approaches
// for less time.
const (
	DetectorCascade = "cascade"
	DetectorYOLO    = "yolo"
)

type stopPreset struct {
	area     float64
	approach time.Duration
}

var stopPresets = map[string]stopPreset{
	DetectorCascade: {area: 3300, approach: 18 * time.Second},
	DetectorYOLO:    {area: 7000, approach: 14 * time.Second},
}

const defaultStopDuration = 3 * time.Second

// Effective fills zero fields from the detector preset.
func (c StopConfig) Effective() StopConfig {
	if c.Detector == "" {
		c.Detector = DetectorCascade
	}
	p, ok := stopPresets[c.Detector]
	if !ok {
		return c
	}
	if c.AreaThreshold == 0 {
		c.AreaThreshold = p.area
	}
	if c.ApproachDuration == 0 {
		c.ApproachDuration = Duration(p.approach)
	}
	if c.StopDuration == 0 {
		c.StopDuration = Duration(defaultStopDuration)
	}
	return c
}

// StopManeuverState is the latched stop cycle.
type StopManeuverState struct {
	Phase     StopPhase
	TriggerAt time.Time // set on entering Approaching
	StopAt    time.Time // set on entering HoldingStop
}

// StopStep describes one stop-maneuver step.
type StopStep struct {
	Phase    StopPhase
	Previous StopPhase
	// ForceZero is true while holding; the command must be (0, 0).
	ForceZero bool
}

// Transitioned reports whether the step changed phase.
func (s StopStep) Transitioned() bool {
	return s.Phase != s.Previous
}

// StopManeuver runs Inactive -> Approaching -> HoldingStop -> Inactive.
//
// Once triggered the cycle is latched: sign readings are ignored until it
// completes. Timers are wall-clock timestamps owned here, not by the
// arbiter. They are only checked while line following, so a cycle left in
// another mode resumes on the first line-following tick against the wall
// time elapsed since its timestamp.
type StopManeuver struct {
	cfg    StopConfig
	state  StopManeuverState
	cycles int
}

// NewStopManeuver constructs an inactive maneuver.
func NewStopManeuver(cfg StopConfig) *StopManeuver {
	return &StopManeuver{cfg: cfg.Effective()}
}

// Step advances the maneuver. Outside LineFollowing the phase is held
// and nothing is forced.
func (m *StopManeuver) Step(now time.Time, mode Mode, sign Reading[SignDetection]) StopStep {
	st := &m.state
	step := StopStep{Previous: st.Phase, Phase: st.Phase}
	if mode != ModeLineFollowing {
		return step
	}

	switch st.Phase {
	case StopInactive:
		if sign.Present && sign.Value.Area >= m.cfg.AreaThreshold {
			st.Phase = StopApproaching
			st.TriggerAt = now
		}
	case StopApproaching:
		if now.Sub(st.TriggerAt) >= m.cfg.ApproachDuration.Std() {
			st.Phase = StopHolding
			st.StopAt = now
			step.ForceZero = true
		}
	case StopHolding:
		if now.Sub(st.StopAt) < m.cfg.StopDuration.Std() {
			step.ForceZero = true
		} else {
			*st = StopManeuverState{}
			m.cycles++
		}
	}

	step.Phase = st.Phase
	return step
}

// State returns the current maneuver state.
func (m *StopManeuver) State() StopManeuverState {
	return m.state
}

// Active reports whether a cycle is in flight.
func (m *StopManeuver) Active() bool {
	return m.state.Phase != StopInactive
}

// Cycles returns the number of completed cycles.
func (m *StopManeuver) Cycles() int {
	return m.cycles
}

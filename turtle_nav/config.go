package turtle_nav

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// LiveConfig controls UDP input settings for perception datagrams.
type LiveConfig struct {
	UDPAddr    string `json:"udp_addr" yaml:"udp_addr"`
	ReadBuffer int    `json:"read_buffer" yaml:"read_buffer"`
}

// OutputConfig controls UDP output settings for velocity commands.
type OutputConfig struct {
	UDPAddr string `json:"udp_addr" yaml:"udp_addr"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // json or console
}

// AppConfig aggregates all configuration sections.
type AppConfig struct {
	Hz           float64        `json:"hz" yaml:"hz"`
	NominalSpeed float64        `json:"nominal_speed" yaml:"nominal_speed"`
	InitialMode  Mode           `json:"initial_mode" yaml:"initial_mode"`
	Dwell        DwellConfig    `json:"dwell" yaml:"dwell"`
	Steering     SteeringConfig `json:"steering" yaml:"steering"`
	Stop         StopConfig     `json:"stop" yaml:"stop"`
	Live         LiveConfig     `json:"live" yaml:"live"`
	Output       OutputConfig   `json:"output" yaml:"output"`
	Viz          VizConfig      `json:"viz" yaml:"viz"`
	Log          LogConfig      `json:"log" yaml:"log"`
}

// DefaultConfig returns the stock TurtleBot3 settings.
func DefaultConfig() AppConfig {
	return AppConfig{
		Hz:           10,
		NominalSpeed: 0.2,
		InitialMode:  ModeObstacleAvoidance,
		Dwell: DwellConfig{
			LineFollowing:     Duration(time.Second),
			TagFollowing:      Duration(5 * time.Second),
			ObstacleAvoidance: Duration(time.Second),
		},
		Steering: SteeringConfig{
			Kp:          1,
			FrameWidth:  640,
			OutputScale: 450,
			MaxDt:       Duration(time.Second),
		},
		Stop: StopConfig{Detector: DetectorCascade},
		Live: LiveConfig{UDPAddr: "127.0.0.1:5600", ReadBuffer: 2048},
		Viz:  VizConfig{Addr: "127.0.0.1:7070"},
		Log:  LogConfig{Level: "info", Format: "json"},
	}
}

// LoadConfig reads a JSON or YAML config over the defaults. The format is
// chosen by extension.
func LoadConfig(path string) (AppConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate checks the config once at startup.
func (c AppConfig) Validate() error {
	if c.Hz <= 0 {
		return errors.New("hz must be > 0")
	}
	if c.NominalSpeed < 0 {
		return errors.New("nominal_speed must be >= 0")
	}
	if !c.InitialMode.Valid() {
		return fmt.Errorf("initial_mode %s is not a mode", c.InitialMode)
	}
	for name, d := range map[string]Duration{
		"dwell.line_following":     c.Dwell.LineFollowing,
		"dwell.tag_following":      c.Dwell.TagFollowing,
		"dwell.obstacle_avoidance": c.Dwell.ObstacleAvoidance,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be > 0", name)
		}
	}
	if c.Steering.FrameWidth <= 0 {
		return errors.New("steering.frame_width must be > 0")
	}
	if c.Steering.OutputScale == 0 {
		return errors.New("steering.output_scale must be != 0")
	}
	if c.Steering.IntegralLimit < 0 {
		return errors.New("steering.integral_limit must be >= 0")
	}
	if c.Steering.MaxAngular < 0 {
		return errors.New("steering.max_angular must be >= 0")
	}
	if c.Steering.MaxDt < 0 {
		return errors.New("steering.max_dt must be >= 0")
	}
	stop := c.Stop.Effective()
	if _, ok := stopPresets[stop.Detector]; !ok {
		return fmt.Errorf("stop.detector %q must be %q or %q", stop.Detector, DetectorCascade, DetectorYOLO)
	}
	if stop.AreaThreshold <= 0 {
		return errors.New("stop.area_threshold must be > 0")
	}
	if stop.ApproachDuration <= 0 {
		return errors.New("stop.approach_duration must be > 0")
	}
	if stop.StopDuration <= 0 {
		return errors.New("stop.stop_duration must be > 0")
	}
	if c.Live.UDPAddr == "" {
		return errors.New("live.udp_addr must be set")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("log.format %q must be json or console", c.Log.Format)
	}
	return nil
}

// Period is the tick interval.
func (c AppConfig) Period() time.Duration {
	return time.Duration(float64(time.Second) / c.Hz)
}

// Duration is a time.Duration read from "18s"-style strings or from a
// number of seconds.
type Duration time.Duration

// Std converts to time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalJSON writes the duration string form.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "1.5s" or 1.5.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.parse(s)
	}
	var sec float64
	if err := json.Unmarshal(b, &sec); err != nil {
		return fmt.Errorf("duration must be a string or seconds: %w", err)
	}
	*d = Duration(sec * float64(time.Second))
	return nil
}

// MarshalYAML writes the duration string form.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML accepts "1.5s" or 1.5.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if tag := value.ShortTag(); tag == "!!int" || tag == "!!float" {
		var sec float64
		if err := value.Decode(&sec); err != nil {
			return err
		}
		*d = Duration(sec * float64(time.Second))
		return nil
	}
	return d.parse(value.Value)
}

// ParseMode converts a mode name into a Mode enum.
func ParseMode(value string) (Mode, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	switch normalized {
	case "OBSTACLE_AVOIDANCE", "1":
		return ModeObstacleAvoidance, nil
	case "LINE_FOLLOWING", "2":
		return ModeLineFollowing, nil
	case "TAG_FOLLOWING", "3":
		return ModeTagFollowing, nil
	default:
		return ModeObstacleAvoidance, fmt.Errorf("unknown mode %q", value)
	}
}

// MarshalJSON writes the mode name.
func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts a mode name or its number. null keeps the current
// value.
func (m *Mode) UnmarshalJSON(b []byte) error {
	var raw *string
	if err := json.Unmarshal(b, &raw); err != nil {
		var n json.Number
		if numErr := json.Unmarshal(b, &n); numErr != nil {
			return fmt.Errorf("mode must be a name or number: %w", err)
		}
		s := n.String()
		raw = &s
	}
	if raw == nil {
		return nil
	}
	parsed, err := ParseMode(*raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MarshalYAML writes the mode name.
func (m Mode) MarshalYAML() (any, error) {
	return m.String(), nil
}

// UnmarshalYAML allows modes to be loaded from YAML scalars. null and empty
// scalars keep the current value.
func (m *Mode) UnmarshalYAML(value *yaml.Node) error {
	if value.ShortTag() == "!!null" || strings.TrimSpace(value.Value) == "" {
		return nil
	}
	parsed, err := ParseMode(value.Value)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

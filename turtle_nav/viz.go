package turtle_nav

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

// VizConfig controls the optional expvar endpoint used by jplot.
type VizConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

// VizMetrics exposes live input/output values via expvar.
type VizMetrics struct {
	input  *expvar.Map
	output *expvar.Map
	feed   *expvar.Map
	server *http.Server
}

var publishViz sync.Once

func newVizMetrics() *VizMetrics {
	return &VizMetrics{
		input:  new(expvar.Map).Init(),
		output: new(expvar.Map).Init(),
		feed:   new(expvar.Map).Init(),
	}
}

// StartViz starts an HTTP server exposing /debug/vars for plotting.
// It returns nil metrics when disabled.
func StartViz(cfg VizConfig, logger *zap.Logger) (*VizMetrics, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:7070"
	}

	metrics := newVizMetrics()
	var published bool
	publishViz.Do(func() {
		expvar.Publish("input", metrics.input)
		expvar.Publish("output", metrics.output)
		expvar.Publish("feed", metrics.feed)
		published = true
	})
	if !published {
		return nil, errors.New("viz already started in this process")
	}

	metrics.server = &http.Server{Addr: cfg.Addr, Handler: http.DefaultServeMux}
	go func() {
		if err := metrics.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("viz server error", zap.Error(err))
		}
	}()

	return metrics, nil
}

// Close stops the HTTP server.
func (v *VizMetrics) Close(ctx context.Context) error {
	if v == nil || v.server == nil {
		return nil
	}
	return v.server.Shutdown(ctx)
}

// UpdateInput publishes the latest perception snapshot.
func (v *VizMetrics) UpdateInput(snap PerceptionSnapshot) {
	if v == nil {
		return
	}
	setFloat(v.input, "line_present", boolFloat(snap.Line.Present))
	setFloat(v.input, "line_cx", snap.Line.Value.CentroidX)
	setFloat(v.input, "sign_present", boolFloat(snap.Sign.Present))
	setFloat(v.input, "sign_area", snap.Sign.Value.Area)
	setFloat(v.input, "marker_present", boolFloat(snap.Marker.Present))
	setFloat(v.input, "obstacle_linear", snap.Obstacle.Value.Linear)
	setFloat(v.input, "obstacle_angular", snap.Obstacle.Value.Angular)
}

// UpdateOutput publishes the latest controller output values.
func (v *VizMetrics) UpdateOutput(cmd VelocityCommand) {
	if v == nil {
		return
	}
	setFloat(v.output, "linear", cmd.Linear)
	setFloat(v.output, "angular", cmd.Angular)
	setFloat(v.output, "mode", float64(cmd.Mode))
	setFloat(v.output, "phase", float64(cmd.Phase))
	setString(v.output, "mode_label", cmd.Mode.Label())
}

// UpdateFeed publishes mailbox counters.
func (v *VizMetrics) UpdateFeed(st FeedStats) {
	if v == nil {
		return
	}
	setFloat(v.feed, "line_overwrites", float64(st.Line.Overwrites))
	setFloat(v.feed, "sign_overwrites", float64(st.Sign.Overwrites))
	setFloat(v.feed, "marker_overwrites", float64(st.Marker.Overwrites))
	setFloat(v.feed, "obstacle_overwrites", float64(st.Obstacle.Overwrites))
	setFloat(v.feed, "decode_errors", float64(st.DecodeErrors))
}

// setFloat updates an expvar.Float stored inside a map.
func setFloat(m *expvar.Map, key string, value float64) {
	if v := m.Get(key); v != nil {
		if f, ok := v.(*expvar.Float); ok {
			f.Set(value)
			return
		}
	}
	f := new(expvar.Float)
	f.Set(value)
	m.Set(key, f)
}

func setString(m *expvar.Map, key, value string) {
	if v := m.Get(key); v != nil {
		if s, ok := v.(*expvar.String); ok {
			s.Set(value)
			return
		}
	}
	s := new(expvar.String)
	s.Set(value)
	m.Set(key, s)
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

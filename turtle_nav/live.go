package turtle_nav

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LiveRunConfig wraps configuration and collaborators for the live loop.
// Nil collaborators are replaced with the production defaults.
type LiveRunConfig struct {
	App    AppConfig
	Logger *zap.Logger
	Clock  Clock
	Feed   *Feed
	Sink   CommandSink
}

// RunLive runs the UDP listener and the fixed-rate tick loop until ctx is
// cancelled. The tick in progress completes, a stop command is sent and
// RunLive returns nil.
func RunLive(ctx context.Context, run LiveRunConfig) error {
	cfg := run.App
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := run.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	clock := run.Clock
	if clock == nil {
		clock = RealClock{}
	}
	feed := run.Feed
	if feed == nil {
		feed = NewFeed(ObstacleVelocity{Linear: cfg.NominalSpeed})
	}

	conn, err := listenUDP(cfg.Live)
	if err != nil {
		return err
	}

	sink := run.Sink
	if sink == nil {
		sender, err := NewOutputSender(cfg.Output.UDPAddr)
		if err != nil {
			_ = conn.Close()
			return err
		}
		sink = sender
	}
	defer func() {
		_ = sink.Close()
	}()

	viz, err := StartViz(cfg.Viz, logger)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = viz.Close(shutdownCtx)
	}()

	logger.Info("starting live loop",
		zap.Float64("hz", cfg.Hz),
		zap.String("live_addr", conn.LocalAddr().String()),
		zap.String("output_addr", cfg.Output.UDPAddr),
		zap.Stringer("initial_mode", cfg.InitialMode),
		zap.Float64("stop_area", cfg.Stop.Effective().AreaThreshold),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return conn.Close()
	})
	g.Go(func() error {
		return serveFeed(gctx, conn, cfg.Live.ReadBuffer, feed, logger)
	})
	g.Go(func() error {
		t := &tickLoop{
			controller: NewController(cfg),
			feed:       feed,
			sink:       sink,
			viz:        viz,
			logger:     logger,
		}
		return t.run(gctx, clock, cfg.Period())
	})

	err = g.Wait()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

func listenUDP(cfg LiveConfig) (*net.UDPConn, error) {
	addr, err := net.ResolveUDPAddr("udp", cfg.UDPAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve live %q: %w", cfg.UDPAddr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen live %q: %w", cfg.UDPAddr, err)
	}
	return conn, nil
}

// serveFeed decodes perception datagrams into the feed until the
// connection is closed. Malformed datagrams are logged and dropped.
func serveFeed(ctx context.Context, conn net.PacketConn, bufSize int, feed *Feed, logger *zap.Logger) error {
	if bufSize <= 0 {
		bufSize = 2048
	}
	buf := make([]byte, bufSize)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read perception: %w", err)
		}
		msg, err := ParseMessage(buf[:n])
		if err == nil {
			err = feed.Apply(msg)
		}
		if err != nil {
			feed.decodeErrors.Add(1)
			logger.Warn("dropping perception datagram", zap.Stringer("from", from), zap.Error(err))
		}
	}
}

// tickLoop is the single writer of controller state.
type tickLoop struct {
	controller *Controller
	feed       *Feed
	sink       CommandSink
	viz        *VizMetrics
	logger     *zap.Logger
	ticks      uint64
}

func (t *tickLoop) run(ctx context.Context, clock Clock, period time.Duration) error {
	ticker := clock.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.shutdown(clock.Now())
			return nil
		case now := <-ticker.C():
			t.tick(now)
		}
	}
}

func (t *tickLoop) tick(now time.Time) {
	snap := t.feed.Snapshot()
	report := t.controller.Step(now, snap)
	t.ticks++

	if report.Decision.Changed() {
		t.logger.Info("mode changed",
			zap.Stringer("from", report.Decision.Previous),
			zap.Stringer("to", report.Decision.Mode),
			zap.Duration("dwell", report.Decision.Threshold),
		)
	}
	if report.Stop.Transitioned() {
		t.logger.Info("stop maneuver",
			zap.Stringer("from", report.Stop.Previous),
			zap.Stringer("to", report.Stop.Phase),
			zap.Float64("sign_area", snap.Sign.Value.Area),
		)
	}

	if err := t.sink.Send(report.Command); err != nil {
		t.logger.Warn("send command", zap.Error(err))
	}
	t.viz.UpdateInput(snap)
	t.viz.UpdateOutput(report.Command)
	t.viz.UpdateFeed(t.feed.Stats())

	if ce := t.logger.Check(zap.DebugLevel, "tick"); ce != nil {
		ce.Write(commandFields(report, snap)...)
	}
}

func (t *tickLoop) shutdown(now time.Time) {
	stop := VelocityCommand{At: now, Mode: t.controller.Mode(), Phase: t.controller.StopState().Phase}
	if err := t.sink.Send(stop); err != nil {
		t.logger.Warn("send stop command", zap.Error(err))
	}
	t.logger.Info("shutdown", zap.Uint64("ticks", t.ticks))
}

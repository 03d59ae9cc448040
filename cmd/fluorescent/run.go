package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agusx1211/fluorescent/internal/audio"
	"github.com/agusx1211/fluorescent/internal/hum"
	"github.com/agusx1211/fluorescent/internal/lamp"
	"github.com/agusx1211/fluorescent/internal/mqtt"
	"github.com/agusx1211/fluorescent/internal/observability"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the lamp daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.run(ctx)
		},
	}
}

type publisher interface {
	PublishState()
	PublishFrame(lamp.State)
}

type nopPublisher struct{}

func (nopPublisher) PublishState()           {}
func (nopPublisher) PublishFrame(lamp.State) {}

type daemon struct {
	lamp   *lamp.Lamp
	hum    *hum.Hum
	pub    publisher
	store  stateStore
	logger *zap.Logger
}

func (a *app) run(ctx context.Context) error {
	cfg := a.cfg
	logger := observability.Initialize(cfg.Logger)
	defer logger.Sync()

	logger.Info("starting", zap.String("version", Version))

	d := &daemon{
		lamp:   lamp.New(cfg.LampOptions()),
		pub:    nopPublisher{},
		store:  stateStore{path: cfg.StateFile},
		logger: logger,
	}

	saved, err := d.store.Load()
	if err != nil {
		logger.Warn("ignoring saved state", zap.Error(err))
	}

	if cfg.Audio.Enabled {
		out, err := audio.NewOutput(cfg.Audio.SampleRate, cfg.Audio.BufferSize)
		if err != nil {
			return fmt.Errorf("opening audio output: %w", err)
		}
		defer out.Close()
		d.hum = hum.New(out.SampleRate(), cfg.Audio.Hum, newSeed())
		out.Start(d.hum.Mix)
	}

	commandChan := make(chan mqtt.Command, 100)

	if cfg.MQTT.Enabled {
		client, err := mqtt.NewClient(cfg.MQTT, d.lamp, commandChan, logger)
		if err != nil {
			return fmt.Errorf("creating mqtt client: %w", err)
		}
		defer client.Close()
		d.pub = client
	}

	d.restore(saved)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return d.lamp.Run(ctx, cfg.Lamp.FPS, d.onFrame)
	})
	g.Go(func() error {
		return d.processCommands(ctx, commandChan)
	})

	err = g.Wait()
	logger.Info("shutting down")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (d *daemon) restore(st persistedState) {
	if st.Peak > 0 {
		d.lamp.SetPeak(st.Peak)
	}
	if st.Power {
		d.powerOn(st.Seed)
	}
	d.logger.Info("restored state",
		zap.Bool("power", st.Power),
		zap.Float64("peak", d.lamp.Peak()),
		zap.Uint32("seed", st.Seed))
}

func (d *daemon) powerOn(seed uint32) {
	tl := d.lamp.PowerOn(seed)
	if d.hum != nil {
		d.hum.Reseed(seed)
		d.hum.Start()
	}
	d.logger.Info("strike",
		zap.Uint32("seed", seed),
		zap.Int("keyframes", len(tl.Keyframes)),
		zap.Float64("duration", tl.Duration))
}

func (d *daemon) powerOff() {
	d.lamp.PowerOff()
	if d.hum != nil {
		d.hum.Stop()
	}
	d.logger.Info("power off")
}

func (d *daemon) onFrame(s lamp.State) {
	if d.hum != nil {
		d.hum.Update(s.Reading)
	}
	if s.Reading.Flash {
		d.logger.Debug("flash", zap.Float64("time", s.Time), zap.Float64("max", s.Reading.Max))
	}
	d.pub.PublishFrame(s)
}

func (d *daemon) apply(cmd mqtt.Command) {
	switch cmd.Action {
	case mqtt.ActionPowerOn:
		if !d.lamp.Power() {
			d.powerOn(newSeed())
		}
	case mqtt.ActionPowerOff:
		d.powerOff()
	case mqtt.ActionSetPeak:
		d.lamp.SetPeak(cmd.Value)
	case mqtt.ActionRestrike:
		d.powerOn(newSeed())
	default:
		d.logger.Warn("unknown command", zap.String("action", cmd.Action))
		return
	}
	if err := d.store.Save(stateOf(d.lamp)); err != nil {
		d.logger.Error("saving state", zap.Error(err))
	}
	d.pub.PublishState()
}

func (d *daemon) processCommands(ctx context.Context, cmdChan <-chan mqtt.Command) error {
	stateTicker := time.NewTicker(2 * time.Second)
	defer stateTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd, ok := <-cmdChan:
			if !ok {
				return nil
			}
			d.apply(cmd)
		case <-stateTicker.C:
			d.pub.PublishState()
		}
	}
}

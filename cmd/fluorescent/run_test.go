package main

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agusx1211/fluorescent/internal/lamp"
	"github.com/agusx1211/fluorescent/internal/mqtt"
)

type recordingPublisher struct {
	mu     sync.Mutex
	states int
	frames []lamp.State
}

func (p *recordingPublisher) PublishState() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states++
}

func (p *recordingPublisher) PublishFrame(s lamp.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, s)
}

func (p *recordingPublisher) stateCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.states
}

func newTestDaemon(t *testing.T) (*daemon, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	return &daemon{
		lamp:   lamp.New(lamp.DefaultOptions()),
		pub:    pub,
		store:  stateStore{path: filepath.Join(t.TempDir(), "state", "state.json")},
		logger: zap.NewNop(),
	}, pub
}

func TestDaemonApply(t *testing.T) {
	d, pub := newTestDaemon(t)

	d.apply(mqtt.Command{Action: mqtt.ActionPowerOn})
	assert.True(t, d.lamp.Power())
	assert.True(t, d.lamp.Snapshot().Playing)

	saved, err := d.store.Load()
	require.NoError(t, err)
	assert.True(t, saved.Power)
	assert.Equal(t, d.lamp.Snapshot().Seed, saved.Seed)

	d.apply(mqtt.Command{Action: mqtt.ActionSetPeak, Value: 0.3})
	assert.InDelta(t, 0.3, d.lamp.Peak(), 1e-12)

	d.apply(mqtt.Command{Action: mqtt.ActionPowerOff})
	assert.False(t, d.lamp.Power())

	saved, err = d.store.Load()
	require.NoError(t, err)
	assert.Equal(t, persistedState{Power: false, Peak: 0.3, Seed: saved.Seed}, saved)

	d.apply(mqtt.Command{Action: mqtt.ActionRestrike})
	assert.True(t, d.lamp.Power())

	d.apply(mqtt.Command{Action: "dim"})
	assert.Equal(t, 4, pub.stateCount())
}

func TestDaemonPowerOnKeepsRunningStrike(t *testing.T) {
	d, _ := newTestDaemon(t)
	d.powerOn(5)
	d.lamp.Tick(0.1)

	d.apply(mqtt.Command{Action: mqtt.ActionPowerOn})
	s := d.lamp.Snapshot()
	assert.Equal(t, uint32(5), s.Seed)
	assert.InDelta(t, 0.1, s.Time, 1e-9)
}

func TestDaemonRestore(t *testing.T) {
	d, _ := newTestDaemon(t)
	d.restore(persistedState{Power: true, Peak: 0.5, Seed: 9})

	s := d.lamp.Snapshot()
	assert.True(t, s.Power)
	assert.Equal(t, uint32(9), s.Seed)
	assert.InDelta(t, 0.5, s.Peak, 1e-12)

	d2, _ := newTestDaemon(t)
	d2.restore(persistedState{})
	assert.False(t, d2.lamp.Power())
	assert.Equal(t, lamp.MaxPeak, d2.lamp.Peak())
}

func TestDaemonOnFrame(t *testing.T) {
	d, pub := newTestDaemon(t)
	d.powerOn(1)
	d.onFrame(d.lamp.Snapshot())

	require.Len(t, pub.frames, 1)
	assert.True(t, pub.frames[0].Power)
}

func TestProcessCommands(t *testing.T) {
	d, _ := newTestDaemon(t)
	cmds := make(chan mqtt.Command, 1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- d.processCommands(ctx, cmds) }()

	cmds <- mqtt.Command{Action: mqtt.ActionPowerOn}
	require.Eventually(t, d.lamp.Power, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("processCommands did not stop")
	}
}

func TestProcessCommandsClosedChannel(t *testing.T) {
	d, _ := newTestDaemon(t)
	cmds := make(chan mqtt.Command)
	close(cmds)
	assert.NoError(t, d.processCommands(context.Background(), cmds))
}

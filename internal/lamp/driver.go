package lamp

import (
	"context"
	"time"
)

// MaxFPS bounds the frame rate Run accepts.
const MaxFPS = 1000

// FrameFunc observes the lamp after every tick.
type FrameFunc func(State)

// Run drives the lamp at fps frames per second until ctx is done, feeding it
// the measured wall-clock delta each frame. fps above MaxFPS is
// capped and zero or less selects 60.
func (l *Lamp) Run(ctx context.Context, fps int, onFrame FrameFunc) error {
	if fps <= 0 {
		fps = 60
	}
	fps = min(fps, MaxFPS)
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			l.Tick(dt)
			if onFrame != nil {
				onFrame(l.Snapshot())
			}
		}
	}
}

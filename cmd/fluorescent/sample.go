package main

import (
	"encoding/csv"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agusx1211/fluorescent/internal/lamp"
)

// maxSampleFrames bounds a headless run regardless of the configured duration.
const maxSampleFrames = 1 << 20

func newSampleCmd(a *app) *cobra.Command {
	var (
		fps  int
		seed uint32
		peak float64
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Play a strike headlessly and print time,average,max as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("fps") {
				fps = a.cfg.Lamp.FPS
			}
			if !cmd.Flags().Changed("seed") {
				seed = newSeed()
			}
			fps = max(fps, 1)

			l := lamp.New(a.cfg.LampOptions())
			l.SetPeak(peak)
			l.PowerOn(seed)

			w := csv.NewWriter(cmd.OutOrStdout())
			if err := w.Write([]string{"time", "average", "max"}); err != nil {
				return err
			}

			dt := 1 / float64(fps)
			s := l.Snapshot()
			for frame := 0; ; frame++ {
				if err := w.Write(sampleRow(s)); err != nil {
					return err
				}
				if !s.Playing || frame >= maxSampleFrames {
					break
				}
				l.Tick(dt)
				s = l.Snapshot()
			}

			w.Flush()
			return w.Error()
		},
	}

	cmd.Flags().IntVar(&fps, "fps", 0, "frames per second (default from config)")
	cmd.Flags().Uint32VarP(&seed, "seed", "s", 0, "generator seed (default random)")
	cmd.Flags().Float64Var(&peak, "peak", lamp.MaxPeak, "edge peak control in [0.1, 1]")
	return cmd
}

func sampleRow(s lamp.State) []string {
	return []string{
		strconv.FormatFloat(s.Time, 'f', 4, 64),
		strconv.FormatFloat(s.Reading.Average, 'f', 4, 64),
		strconv.FormatFloat(s.Reading.Max, 'f', 4, 64),
	}
}

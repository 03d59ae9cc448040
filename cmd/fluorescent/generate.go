package main

import (
	"fmt"
	"strconv"
	"strings"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/agusx1211/fluorescent/internal/timeline"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		duration float64
		seed     uint32
		points   string
		compact  bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print a generated strike timeline as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cps := a.cfg.Lamp.ControlPoints
			if points != "" {
				parsed, err := parsePoints(points)
				if err != nil {
					return err
				}
				cps = parsed
			}
			if !cmd.Flags().Changed("duration") {
				duration = a.cfg.Lamp.Duration
			}
			if !cmd.Flags().Changed("seed") {
				seed = newSeed()
			}

			tl := timeline.Generate(duration, cps, seed, a.cfg.Generator)

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(tl)
		},
	}

	cmd.Flags().Float64VarP(&duration, "duration", "d", 0, "nominal duration in seconds (default from config)")
	cmd.Flags().Uint32VarP(&seed, "seed", "s", 0, "generator seed (default random)")
	cmd.Flags().StringVarP(&points, "points", "p", "", "control points as id:x,... (default from config)")
	cmd.Flags().BoolVar(&compact, "compact", false, "emit single-line JSON")
	return cmd
}

// parsePoints reads "101:0.02,102:0.1" into control points.
func parsePoints(s string) ([]timeline.ControlPoint, error) {
	var out []timeline.ControlPoint
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		idStr, xStr, ok := strings.Cut(field, ":")
		if !ok {
			return nil, fmt.Errorf("control point %q: want id:x", field)
		}
		id, err := strconv.Atoi(strings.TrimSpace(idStr))
		if err != nil {
			return nil, fmt.Errorf("control point %q: id: %w", field, err)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xStr), 64)
		if err != nil {
			return nil, fmt.Errorf("control point %q: position: %w", field, err)
		}
		out = append(out, timeline.ControlPoint{ID: id, X: x})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no control points in %q", s)
	}
	return out, nil
}

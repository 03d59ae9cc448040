package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/agusx1211/fluorescent/internal/timeline"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STATE_FILE", t.TempDir()+"/state.json")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestGenerate(t *testing.T) {
	out, err := execute(t, "generate", "--seed", "7", "--duration", "2", "--compact")
	require.NoError(t, err)

	var tl timeline.Timeline
	require.NoError(t, json.Unmarshal([]byte(out), &tl))

	assert.Equal(t, timeline.Version, tl.Version)
	assert.Equal(t, uint32(7), tl.Seed)
	assert.Equal(t, timeline.DefaultControlPoints(), tl.ControlPoints)
	require.NotEmpty(t, tl.Keyframes)

	last := tl.Keyframes[len(tl.Keyframes)-1]
	assert.InDelta(t, tl.Duration, last.T, 1e-9)
	for _, p := range last.Points {
		assert.Equal(t, 1.0, p.Y)
	}

	again, err := execute(t, "generate", "--seed", "7", "--duration", "2", "--compact")
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestGeneratePoints(t *testing.T) {
	out, err := execute(t, "generate", "--seed", "1", "--points", "2:0.4, 1:0.1")
	require.NoError(t, err)

	var tl timeline.Timeline
	require.NoError(t, json.Unmarshal([]byte(out), &tl))
	assert.Equal(t, []timeline.ControlPoint{{ID: 1, X: 0.1}, {ID: 2, X: 0.4}}, tl.ControlPoints)
	for _, kf := range tl.Keyframes {
		assert.Len(t, kf.Points, 2)
	}
}

func TestParsePoints(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []timeline.ControlPoint
		wantErr bool
	}{
		{name: "single", in: "101:0.02", want: []timeline.ControlPoint{{ID: 101, X: 0.02}}},
		{name: "trailing comma", in: "1:0.1,2:0.2,", want: []timeline.ControlPoint{{ID: 1, X: 0.1}, {ID: 2, X: 0.2}}},
		{name: "missing colon", in: "1-0.1", wantErr: true},
		{name: "bad id", in: "a:0.1", wantErr: true},
		{name: "bad position", in: "1:x", wantErr: true},
		{name: "empty", in: " , ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePoints(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateRejectsBadPoints(t *testing.T) {
	_, err := execute(t, "generate", "--points", "nope")
	assert.Error(t, err)
}

func TestSample(t *testing.T) {
	out, err := execute(t, "sample", "--seed", "3", "--fps", "60")
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewBufferString(out)).ReadAll()
	require.NoError(t, err)
	require.Greater(t, len(rows), 2)
	assert.Equal(t, []string{"time", "average", "max"}, rows[0])

	prev := -1.0
	for _, row := range rows[1:] {
		ts, err := strconv.ParseFloat(row[0], 64)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, ts, prev)
		prev = ts

		for _, col := range row[1:] {
			v, err := strconv.ParseFloat(col, 64)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}

	last := rows[len(rows)-1]
	assert.Equal(t, "1.0000", last[1])
	assert.Equal(t, "1.0000", last[2])
}

func TestSampleDeterministic(t *testing.T) {
	a, err := execute(t, "sample", "--seed", "11", "--fps", "30")
	require.NoError(t, err)
	b, err := execute(t, "sample", "--seed", "11", "--fps", "30")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestUnknownConfigFile(t *testing.T) {
	_, err := execute(t, "--config", t.TempDir()+"/missing.yaml", "generate")
	assert.Error(t, err)
}

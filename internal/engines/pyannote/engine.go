// Package pyannote adapts an external diarizer (typically a pyannote.audio
// wrapper script) that prints RTTM to stdout. The engine is a black box
// producing time-coded speaker turns; zero turns is a valid result.
package pyannote

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"scribeflow/internal/domain"
	"scribeflow/internal/runner"
)

// Engine invokes the diarizer executable and parses its RTTM output.
type Engine struct {
	scriptPath string
	runner     runner.Runner
}

// New builds an engine around the given diarizer executable.
func New(scriptPath string) *Engine {
	return &Engine{
		scriptPath: scriptPath,
		runner:     runner.Exec{},
	}
}

// NewWithRunner constructs an engine with an injectable runner for tests.
func NewWithRunner(scriptPath string, r runner.Runner) *Engine {
	return &Engine{scriptPath: scriptPath, runner: r}
}

// Diarize runs the diarizer on one audio file and returns turns ordered by
// start time.
func (e *Engine) Diarize(ctx context.Context, audioPath string) ([]domain.SpeakerTurn, error) {
	if strings.TrimSpace(e.scriptPath) == "" {
		return nil, fmt.Errorf("diarizer path is not configured")
	}

	res, err := e.runner.Run(ctx, e.scriptPath, audioPath)
	if err != nil {
		return nil, fmt.Errorf("diarizer: %w", err)
	}
	return ParseRTTM(res.Stdout)
}

// ParseRTTM converts RTTM speaker records into speaker turns. Lines other
// than SPEAKER records are ignored, as are comments.
//
// Field layout: SPEAKER <file> <chan> <tbeg> <tdur> <ortho> <stype> <name> <conf> <slat>
func ParseRTTM(data string) ([]domain.SpeakerTurn, error) {
	var turns []domain.SpeakerTurn
	for i, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ";;") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 8 || fields[0] != "SPEAKER" {
			continue
		}

		start, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("rttm line %d: bad start %q", i+1, fields[3])
		}
		dur, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return nil, fmt.Errorf("rttm line %d: bad duration %q", i+1, fields[4])
		}
		if dur < 0 {
			return nil, fmt.Errorf("rttm line %d: negative duration", i+1)
		}

		turns = append(turns, domain.SpeakerTurn{
			Start:     start,
			End:       start + dur,
			SpeakerID: fields[7],
		})
	}

	// RTTM is usually start-ordered already; overlapping turns make that a
	// convention rather than a guarantee, so enforce it.
	sort.SliceStable(turns, func(i, j int) bool { return turns[i].Start < turns[j].Start })
	return turns, nil
}

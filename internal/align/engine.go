package align

import (
	"fmt"
	"math"
	"strings"

	"scribeflow/internal/domain"
)

// Error reports malformed alignment input: a non-monotonic transcript or a
// negative-duration interval. Overlapping or gapped speaker turns are normal
// input and never produce an Error.
type Error struct {
	Reason string
	Index  int
}

// Error formats the validation failure with the offending index.
func (e *Error) Error() string {
	return fmt.Sprintf("alignment input: %s (index %d)", e.Reason, e.Index)
}

// Options tunes the speaker assignment heuristic and the grouped output.
// The assignment rules are deliberately overridable: only limited real-world
// material has validated the default heuristic against the pure
// overlap-maximizing alternative.
type Options struct {
	// LookAround bounds, in seconds, how far beyond a chunk's interval the
	// fallback scan considers candidate turns when no turn contains the
	// chunk's start.
	LookAround float64
	// MaxSilence is the largest gap, in seconds, folded into one group in
	// grouped mode. A larger gap ends the group even if the speaker is
	// unchanged.
	MaxSilence float64
	// OverlapOnly switches assignment to pure overlap maximization,
	// skipping the start-containment rule entirely.
	OverlapOnly bool
}

// DefaultOptions returns the assignment and grouping defaults.
func DefaultOptions() Options {
	return Options{
		LookAround: 2.0,
		MaxSilence: 3.0,
	}
}

// Engine assigns speaker identities to transcript chunks by reconciling
// chunk and turn time ranges. It holds no state beyond its options; Align is
// a pure function of its inputs.
type Engine struct {
	opts Options
}

// NewEngine creates an engine with the given options. Zero look-around and
// silence values fall back to the defaults.
func NewEngine(opts Options) *Engine {
	def := DefaultOptions()
	if opts.LookAround <= 0 {
		opts.LookAround = def.LookAround
	}
	if opts.MaxSilence <= 0 {
		opts.MaxSilence = def.MaxSilence
	}
	return &Engine{opts: opts}
}

// Align merges an ordered transcript with an ordered turn sequence into a
// speaker-labeled result. With no turns, every chunk is returned unlabeled
// and both modes degenerate to the input sequence.
func (e *Engine) Align(
	chunks []domain.TranscriptChunk,
	turns []domain.SpeakerTurn,
	mode domain.AlignMode,
) (domain.AlignmentResult, error) {
	if err := validate(chunks, turns); err != nil {
		return domain.AlignmentResult{}, err
	}

	labeled := make([]domain.AlignedChunk, 0, len(chunks))
	for _, c := range chunks {
		labeled = append(labeled, domain.AlignedChunk{
			Start:     c.Start,
			End:       c.End,
			Text:      c.Text,
			SpeakerID: e.assignSpeaker(c, turns),
		})
	}

	// With no turns both modes degenerate to the input sequence; grouping
	// would otherwise merge consecutive unlabeled chunks.
	if mode == domain.AlignModeGrouped && len(turns) > 0 {
		labeled = group(labeled, e.opts.MaxSilence)
	}

	return domain.AlignmentResult{
		Chunks:       labeled,
		Mode:         mode,
		SpeakerStats: stats(labeled),
	}, nil
}

// validate rejects non-monotonic chunk ordering and negative durations.
func validate(chunks []domain.TranscriptChunk, turns []domain.SpeakerTurn) error {
	prev := math.Inf(-1)
	for i, c := range chunks {
		if c.End < c.Start {
			return &Error{Reason: "transcript chunk has negative duration", Index: i}
		}
		if c.Start < prev {
			return &Error{Reason: "transcript chunks out of order", Index: i}
		}
		prev = c.Start
	}
	for i, t := range turns {
		if t.End < t.Start {
			return &Error{Reason: "speaker turn has negative duration", Index: i}
		}
	}
	return nil
}

// assignSpeaker picks the speaker for one chunk.
//
// The primary rule keys on the chunk's start instant: turn boundaries are
// approximate, and the leading edge of a chunk most reliably reflects who
// began speaking that content. Overlap only decides ties between turns that
// both contain the start, and serves as the fallback when none does.
func (e *Engine) assignSpeaker(c domain.TranscriptChunk, turns []domain.SpeakerTurn) string {
	if len(turns) == 0 {
		return ""
	}

	if !e.opts.OverlapOnly {
		best := ""
		bestOverlap := -1.0
		for _, t := range turns {
			if t.Start > c.Start {
				// Turns are ordered by start; nothing later can contain it.
				break
			}
			if c.Start >= t.End {
				continue
			}
			// Simultaneous speech: the turn overlapping the chunk more
			// wins, earlier-starting turn on exact ties.
			if ov := overlap(t.Start, t.End, c.Start, c.End); ov > bestOverlap {
				best = t.SpeakerID
				bestOverlap = ov
			}
		}
		if best != "" {
			return best
		}
	}

	return e.nearestByOverlap(c, turns)
}

// nearestByOverlap scores candidate turns within the look-around window by
// intersection-over-union against the chunk. A chunk overlapping no turn at
// all stays unlabeled.
func (e *Engine) nearestByOverlap(c domain.TranscriptChunk, turns []domain.SpeakerTurn) string {
	winStart := c.Start - e.opts.LookAround
	winEnd := c.End + e.opts.LookAround

	best := ""
	bestScore := 0.0
	bestDist := math.Inf(1)
	for _, t := range turns {
		if t.Start > winEnd {
			break
		}
		if t.End < winStart {
			continue
		}
		score := iou(t.Start, t.End, c.Start, c.End)
		if score <= 0 {
			continue
		}
		dist := math.Abs(t.Start - c.Start)
		if score > bestScore || (score == bestScore && dist < bestDist) {
			best = t.SpeakerID
			bestScore = score
			bestDist = dist
		}
	}
	return best
}

// group merges consecutive same-speaker chunks, splitting on speaker change
// or on a silence gap above maxSilence.
func group(chunks []domain.AlignedChunk, maxSilence float64) []domain.AlignedChunk {
	if len(chunks) == 0 {
		return chunks
	}

	out := make([]domain.AlignedChunk, 0, len(chunks))
	cur := chunks[0]
	cur.Text = strings.TrimSpace(cur.Text)
	texts := []string{cur.Text}

	for _, c := range chunks[1:] {
		gap := c.Start - cur.End
		if c.SpeakerID == cur.SpeakerID && gap <= maxSilence {
			texts = append(texts, strings.TrimSpace(c.Text))
			cur.End = c.End
			continue
		}
		cur.Text = strings.Join(texts, " ")
		out = append(out, cur)
		cur = c
		cur.Text = strings.TrimSpace(cur.Text)
		texts = []string{cur.Text}
	}
	cur.Text = strings.Join(texts, " ")
	return append(out, cur)
}

// stats sums per-speaker duration and entry count over the final sequence.
func stats(chunks []domain.AlignedChunk) map[string]domain.SpeakerStats {
	out := make(map[string]domain.SpeakerStats)
	for _, c := range chunks {
		if c.SpeakerID == "" {
			continue
		}
		s := out[c.SpeakerID]
		s.TotalDuration += c.End - c.Start
		s.TurnCount++
		out[c.SpeakerID] = s
	}
	return out
}

// overlap returns the length of the intersection of two intervals.
func overlap(aStart, aEnd, bStart, bEnd float64) float64 {
	lo := math.Max(aStart, bStart)
	hi := math.Min(aEnd, bEnd)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// iou returns intersection-over-union of two intervals.
func iou(aStart, aEnd, bStart, bEnd float64) float64 {
	inter := overlap(aStart, aEnd, bStart, bEnd)
	if inter <= 0 {
		return 0
	}
	union := math.Max(aEnd, bEnd) - math.Min(aStart, bStart)
	if union <= 0 {
		return 0
	}
	return inter / union
}

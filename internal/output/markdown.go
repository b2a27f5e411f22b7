package output

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"scribeflow/internal/domain"
)

// Renderer writes job results as markdown transcripts. Writes go through a
// temp file and rename so a crash never leaves a partial transcript behind.
type Renderer struct {
	fs  afero.Fs
	dir string
	now func() time.Time
}

// NewRenderer creates a renderer targeting dir.
func NewRenderer(fs afero.Fs, dir string) *Renderer {
	return &Renderer{fs: fs, dir: dir, now: time.Now}
}

// Write renders the result and persists it, returning the output path.
func (r *Renderer) Write(result domain.JobResult) (string, error) {
	if err := r.fs.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	content := r.render(result)
	outPath := filepath.Join(r.dir, transcriptFileName(result.Job.SourcePath))
	tmpPath := outPath + ".tmp"

	if err := afero.WriteFile(r.fs, tmpPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	if err := r.fs.Rename(tmpPath, outPath); err != nil {
		_ = r.fs.Remove(tmpPath)
		return "", fmt.Errorf("finalize transcript: %w", err)
	}
	return outPath, nil
}

// render builds the full markdown document.
func (r *Renderer) render(result domain.JobResult) string {
	var b strings.Builder
	job := result.Job

	base := strings.TrimSuffix(filepath.Base(job.SourcePath), filepath.Ext(job.SourcePath))
	fmt.Fprintf(&b, "# Transcript: %s\n\n", base)

	fmt.Fprintf(&b, "- Source: `%s`\n", job.SourcePath)
	if info, err := r.fs.Stat(job.SourcePath); err == nil {
		fmt.Fprintf(&b, "- Size: %s\n", humanize.Bytes(uint64(info.Size())))
	}
	if job.ContentType != "" {
		label := string(job.ContentType)
		if job.Subcategory != "" {
			label += " / " + job.Subcategory
		}
		fmt.Fprintf(&b, "- Type: %s\n", label)
	}
	fmt.Fprintf(&b, "- Generated: %s\n", r.now().UTC().Format(time.RFC3339))
	if result.Anonymized {
		b.WriteString("- Anonymized: yes\n")
	}
	b.WriteString("\n")

	if len(result.Alignment.SpeakerStats) > 0 {
		writeSpeakerTable(&b, result.Alignment.SpeakerStats)
	}

	if result.Summary != "" {
		b.WriteString("## Summary\n\n")
		b.WriteString(result.Summary)
		b.WriteString("\n\n")
	}

	b.WriteString("## Transcript\n\n")
	for _, c := range result.Alignment.Chunks {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		ts := fmt.Sprintf("[%s-%s]", secToTS(c.Start), secToTS(c.End))
		if c.SpeakerID != "" {
			fmt.Fprintf(&b, "%s **%s:** %s\n\n", ts, c.SpeakerID, text)
		} else {
			fmt.Fprintf(&b, "%s %s\n\n", ts, text)
		}
	}
	return b.String()
}

// writeSpeakerTable renders per-speaker talk time in stable order.
func writeSpeakerTable(b *strings.Builder, stats map[string]domain.SpeakerStats) {
	speakers := make([]string, 0, len(stats))
	for s := range stats {
		speakers = append(speakers, s)
	}
	sort.Strings(speakers)

	b.WriteString("## Speakers\n\n")
	b.WriteString("| Speaker | Talk time | Turns |\n")
	b.WriteString("|---|---|---|\n")
	for _, s := range speakers {
		st := stats[s]
		dur := time.Duration(st.TotalDuration * float64(time.Second)).Truncate(time.Second)
		fmt.Fprintf(b, "| %s | %s | %d |\n", s, dur, st.TurnCount)
	}
	b.WriteString("\n")
}

// secToTS formats seconds as mm:ss or hh:mm:ss.
func secToTS(sec float64) string {
	d := time.Duration(sec*1000) * time.Millisecond
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// transcriptFileName builds the output filename from the source media name.
func transcriptFileName(sourcePath string) string {
	base := filepath.Base(sourcePath)
	name := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "transcript"
	}
	return name + ".md"
}

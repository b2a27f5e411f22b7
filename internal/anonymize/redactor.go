package anonymize

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var (
	reEmail = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	rePhone = regexp.MustCompile(`\+?\d[\d\s().\-]{7,}\d`)
)

// Redactor removes emails, phone numbers, and configured names from
// transcript text. It is a thin enrichment stage: failures degrade the
// result, never the job.
type Redactor struct {
	names *regexp.Regexp
}

// New builds a redactor. names are literal strings matched case-insensitively
// on word boundaries.
func New(names []string) (*Redactor, error) {
	r := &Redactor{}
	if len(names) > 0 {
		quoted := make([]string, 0, len(names))
		for _, n := range names {
			n = strings.TrimSpace(n)
			if n != "" {
				quoted = append(quoted, regexp.QuoteMeta(n))
			}
		}
		if len(quoted) > 0 {
			re, err := regexp.Compile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
			if err != nil {
				return nil, fmt.Errorf("compile name patterns: %w", err)
			}
			r.names = re
		}
	}
	return r, nil
}

// Redact rewrites one chunk's text with sensitive spans replaced.
func (r *Redactor) Redact(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	out := reEmail.ReplaceAllString(text, "[email]")
	out = rePhone.ReplaceAllString(out, "[phone]")
	if r.names != nil {
		out = r.names.ReplaceAllString(out, "[name]")
	}
	return out, nil
}

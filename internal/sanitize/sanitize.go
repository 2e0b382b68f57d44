// Package sanitize validates and cleans AI-generated text before it is
// persisted or displayed. Markup and script fragments are stripped in place;
// prompt-injection phrasing fails the whole text.
//
// The processing order is fixed and load-bearing: the text is unescaped and
// normalized before the length gate and pattern scan, the injection check
// runs on the stripped text, and HTML escaping is the very last step.
// Gating or scanning the escaped form would both let escaped markup slip
// past the tables and fail re-runs on text the filter itself expanded.
package sanitize

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tilgarden/tilgarden/internal/common"
	"github.com/tilgarden/tilgarden/internal/logging"
)

// Filter applies a fixed security policy to untrusted text. It is stateless
// apart from its configuration and safe for concurrent use.
type Filter struct {
	policy Policy
	log    logging.Logger
}

// Result is the sanitized text plus scan counters for the caller's logs.
type Result struct {
	Text     string
	Stripped int
}

func New(log logging.Logger) *Filter {
	return NewWithPolicy(DefaultPolicy, log)
}

func NewWithPolicy(policy Policy, log logging.Logger) *Filter {
	return &Filter{policy: policy, log: log}
}

var (
	crlf      = strings.NewReplacer("\r\n", "\n", "\r", "\n")
	blankRuns = regexp.MustCompile(`\n{4,}`)
)

// Sanitize runs the full pipeline and returns the cleaned text.
// A security violation (over-length input or prompt-injection phrasing)
// matches common.ErrSecurityViolation.
func (f *Filter) Sanitize(ctx context.Context, text string) (Result, error) {
	s := crlf.Replace(text)
	// Unescape up front so the length gate and the pattern tables see the
	// semantic text. Escaping expands runes (`<` becomes `&lt;`), so gating
	// the escaped form would fail text that passed on a previous run.
	s = html.UnescapeString(s)
	s = blankRuns.ReplaceAllString(s, "\n\n")
	s = capLines(s, f.policy.MaxLines)

	if utf8.RuneCountInString(s) > f.policy.MaxRunes {
		return Result{}, fmt.Errorf("%w: text exceeds %d characters", common.ErrSecurityViolation, f.policy.MaxRunes)
	}

	stripped := 0
	for _, p := range markupPatterns {
		matches := p.re.FindAllString(s, -1)
		if len(matches) == 0 {
			continue
		}
		stripped += len(matches)
		f.log.Warn(ctx, "stripped markup from generated text", "pattern", p.name, "count", len(matches))
		s = p.re.ReplaceAllString(s, f.policy.Placeholder)
	}

	for _, p := range injectionPatterns {
		if p.re.MatchString(s) {
			return Result{}, fmt.Errorf("%w: prompt injection pattern %q", common.ErrSecurityViolation, p.name)
		}
	}

	// The text was unescaped at the top, so a single escape here cannot
	// double-escape; the placeholder contains no escapable runes.
	s = html.EscapeString(s)

	return Result{Text: s, Stripped: stripped}, nil
}

func capLines(s string, max int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= max {
		return s
	}
	return strings.Join(lines[:max], "\n")
}

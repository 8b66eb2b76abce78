// Package guard classifies natural-language input before it reaches the
// language-model agent or the policy engine. It is a cheap, fast-fail front
// door; the policy engine remains the authoritative backstop, so neither
// layer is trusted to be sufficient on its own.
package guard

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxInputLen bounds accepted input; anything longer is treated as a
// context-overwhelm attempt regardless of content.
const MaxInputLen = 2000

// obfuscationRatio is the fraction of non-alphanumeric, non-whitespace
// characters beyond which input is rejected as likely obfuscated.
const obfuscationRatio = 0.5

// Mode selects how Sanitize treats a positive detection.
type Mode string

const (
	// ModeStrict turns a positive detection into a hard rejection.
	ModeStrict Mode = "strict"
	// ModePermissive returns the input unchanged plus a warning string and
	// lets the caller decide whether to proceed.
	ModePermissive Mode = "permissive"
)

// ParseMode validates a configured mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStrict, ModePermissive:
		return Mode(s), nil
	}
	return "", fmt.Errorf("guard: unknown mode %q", s)
}

// Verdict is the classification result for one input string. It is consumed
// synchronously by the caller and never persisted by the guard itself.
type Verdict struct {
	Injection bool
	// Rule is the matched rule name or heuristic identifier.
	Rule string
	// Category groups the matched rule by attack intent; empty for heuristics.
	Category string
	// Match is the triggering substring, when one exists.
	Match string
	// Reason is a human-readable explanation for refusal messages.
	Reason string
}

// Rejection is returned by Sanitize in strict mode on a positive detection.
type Rejection struct {
	Verdict Verdict
}

func (r *Rejection) Error() string {
	return "guard: input rejected: " + r.Verdict.Reason
}

// AsRejection unwraps a guard rejection from an error, if present.
func AsRejection(err error) (*Rejection, bool) {
	rej, ok := err.(*Rejection)
	return rej, ok
}

var (
	repetitionRe = regexp.MustCompile(`(?i)repeat\s+\w+\s+\d+\s+times`)
	concatRe     = regexp.MustCompile(`(?i)(instructions?|commands?|rules?).*(\band\s+then\b|\bthen\b|followed\s+by)`)
	commandRe    = regexp.MustCompile(`(?i)[;&|]\s*(rm|drop|delete|cat|chmod)`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Detector runs the ordered detectors over incoming text. It holds no mutable
// state after construction and is safe for concurrent use.
type Detector struct {
	mode  Mode
	rules []Rule
}

// NewDetector constructs a Detector in the given mode.
func NewDetector(mode Mode) *Detector {
	return &Detector{mode: mode, rules: defaultRules()}
}

// Mode returns the operating mode chosen at construction.
func (d *Detector) Mode() Mode {
	return d.mode
}

// Classify runs the detectors in order and returns on the first positive
// match: rule set, repetition heuristic, concatenation heuristic, command
// heuristic, length bound, obfuscation ratio.
func (d *Detector) Classify(text string) Verdict {
	normalized := Normalize(text)
	if normalized == "" {
		return Verdict{}
	}

	for _, r := range d.rules {
		if match := r.re.FindString(normalized); match != "" {
			return Verdict{
				Injection: true,
				Rule:      r.Name,
				Category:  r.Category,
				Match:     match,
				Reason:    fmt.Sprintf("suspicious pattern detected: %q", match),
			}
		}
	}

	if match := repetitionRe.FindString(normalized); match != "" {
		return Verdict{Injection: true, Rule: "repetition-attack", Match: match, Reason: "repetition attack detected"}
	}
	if match := concatRe.FindString(normalized); match != "" {
		return Verdict{Injection: true, Rule: "instruction-concatenation", Match: match, Reason: "instruction concatenation detected"}
	}
	if match := commandRe.FindString(normalized); match != "" {
		return Verdict{Injection: true, Rule: "command-injection", Match: match, Reason: "command injection pattern detected"}
	}
	// The bound counts characters of the raw input. Multibyte text must not
	// be penalised for its encoding, and collapsing whitespace must not let
	// an oversized input back under the limit.
	if length := utf8.RuneCountInString(text); length > MaxInputLen {
		return Verdict{
			Injection: true,
			Rule:      "length-bound",
			Reason:    fmt.Sprintf("input too long (%d chars), limit is %d", length, MaxInputLen),
		}
	}
	if ratio := specialCharRatio(normalized); ratio > obfuscationRatio {
		return Verdict{Injection: true, Rule: "obfuscation", Reason: "too many special characters, use natural language"}
	}

	return Verdict{}
}

// Sanitize normalizes the input and applies the configured mode to the
// classification outcome. The guard never rewrites the semantics of benign
// input; normalization is limited to unicode and whitespace form.
func (d *Detector) Sanitize(text string) (string, []string, error) {
	normalized := Normalize(text)
	verdict := d.Classify(text)
	if !verdict.Injection {
		return normalized, nil, nil
	}
	if d.mode == ModeStrict {
		return "", nil, &Rejection{Verdict: verdict}
	}
	return normalized, []string{"security warning: " + verdict.Reason}, nil
}

// Normalize applies NFKC unicode normalization and collapses whitespace runs.
// NFKC folds full-width and compatibility characters so pattern matching sees
// the same text a reader does.
func Normalize(text string) string {
	folded := norm.NFKC.String(text)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(folded, " "))
}

func specialCharRatio(text string) float64 {
	if text == "" {
		return 0
	}
	runes := []rune(text)
	special := 0
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			continue
		}
		special++
	}
	return float64(special) / float64(len(runes))
}

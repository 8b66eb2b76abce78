package policy

import (
	"fmt"
	"regexp"
	"strings"
)

// Op names the semantic query intents the engine understands without free-form
// SQL. Named operations are the preferred path: the statement is chosen from a
// fixed template, so no text rewriting is involved.
type Op string

const (
	// OpStatement authorizes a caller-supplied SQL statement.
	OpStatement Op = "statement"
	// OpMyLeads lists the leads visible to the acting user.
	OpMyLeads Op = "my_leads"
	// OpTeamLeads lists leads across the team; requires the view-all capability.
	OpTeamLeads Op = "team_leads"
)

// Intent is either a named operation or a free-form statement to authorize.
type Intent struct {
	Op        Op
	Statement string
}

// AuthorizedQuery is a statement that has been rewritten to respect the
// acting user's row and column visibility.
type AuthorizedQuery struct {
	// Text is the statement to hand to the executor.
	Text string
	// Columns is the visible column list used for wildcard expansion, when known.
	Columns []string
	// Filtered reports whether row-level restriction applies to the result.
	Filtered bool
}

// Reason classifies why the engine refused to authorize an intent.
type Reason string

const (
	ReasonUnparseable      Reason = "unparseable_statement"
	ReasonUnknownTable     Reason = "unknown_table"
	ReasonUnknownRole      Reason = "unknown_role"
	ReasonPermissionDenied Reason = "permission_denied"
)

// Rejection is returned when an intent cannot be safely authorized. It is
// never downgraded to an allow.
type Rejection struct {
	Reason Reason
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return fmt.Sprintf("policy: rejected (%s)", r.Reason)
	}
	return fmt.Sprintf("policy: rejected (%s): %s", r.Reason, r.Detail)
}

// AsRejection unwraps a policy rejection from an error, if present.
func AsRejection(err error) (*Rejection, bool) {
	rej, ok := err.(*Rejection)
	return rej, ok
}

var (
	wildcardRe  = regexp.MustCompile(`(?i)\bSELECT\s+\*`)
	leadsRefRe  = regexp.MustCompile(`(?i)\bFROM\s+leads\b`)
	whereRe     = regexp.MustCompile(`(?i)\bWHERE\b`)
	clauseEndRe = regexp.MustCompile(`(?i)\b(GROUP\s+BY|ORDER\s+BY|HAVING|LIMIT|OFFSET)\b`)
	tautologyRe = regexp.MustCompile(`(?i)\bAND\s+1\s*=\s*1\b`)

	// conjoinedPrefixRe and conjoinedSuffixRe together recognise the one
	// position where an existing copy of the row predicate actually
	// restricts the result: directly after WHERE, or AND-ed onto a
	// parenthesised filter body, with only trailing clauses after it.
	conjoinedPrefixRe = regexp.MustCompile(`(?i)(\bWHERE|\)\s*AND)\s*$`)
	conjoinedSuffixRe = regexp.MustCompile(`(?i)^\s*($|GROUP\s+BY|ORDER\s+BY|HAVING|LIMIT|OFFSET)`)
)

// Engine rewrites untrusted statements so they cannot return rows or columns
// outside the acting user's authorization. It is stateless and safe for
// concurrent use.
type Engine struct {
	model *Model
}

// NewEngine constructs an Engine over the given model.
func NewEngine(model *Model) *Engine {
	return &Engine{model: model}
}

// Authorize produces an authorized query for the subject and intent, or a
// *Rejection explaining why it cannot.
//
// Rewriting is deterministic and idempotent: authorizing the engine's own
// output yields the same text again.
func (e *Engine) Authorize(subject Subject, intent Intent) (AuthorizedQuery, error) {
	caps, err := e.model.Capabilities(subject.Role)
	if err != nil {
		return AuthorizedQuery{}, &Rejection{Reason: ReasonUnknownRole, Detail: string(subject.Role)}
	}

	switch intent.Op {
	case OpMyLeads:
		return e.myLeadsQuery(subject, caps), nil
	case OpTeamLeads:
		if !caps.CanViewAll {
			return AuthorizedQuery{}, &Rejection{Reason: ReasonPermissionDenied, Detail: "team overview requires the view-all capability"}
		}
		return AuthorizedQuery{
			Text:     "SELECT id, name, email, company, status, owner_id, created_at FROM leads ORDER BY created_at DESC LIMIT 50",
			Columns:  []string{"id", "name", "email", "company", "status", "owner_id", "created_at"},
			Filtered: false,
		}, nil
	case OpStatement, "":
		return e.rewriteStatement(subject, caps, intent.Statement)
	default:
		return AuthorizedQuery{}, &Rejection{Reason: ReasonUnparseable, Detail: fmt.Sprintf("unknown operation %q", intent.Op)}
	}
}

// rewriteStatement applies column rewriting and row-predicate injection to a
// free-form statement.
//
// Column rewriting only covers wildcard expansion: a statement that names a
// hidden column explicitly is not stripped. Closing that gap needs column
// level parsing and a product decision; the row predicate still applies
// regardless.
func (e *Engine) rewriteStatement(subject Subject, caps Capabilities, stmt string) (AuthorizedQuery, error) {
	stmt = strings.TrimSpace(stmt)
	if stmt == "" {
		return AuthorizedQuery{}, &Rejection{Reason: ReasonUnparseable, Detail: "empty statement"}
	}
	// All clause detection runs on a copy with string literals blanked out,
	// so quoted text chosen by the caller can never steer the rewrite.
	masked := maskLiterals(stmt)
	if !leadsRefRe.MatchString(masked) {
		// Without a recognized table reference there is no safe place to
		// attach the row predicate.
		return AuthorizedQuery{}, &Rejection{Reason: ReasonUnknownTable, Detail: "statement does not reference the leads table"}
	}

	visible, err := e.model.VisibleColumns(subject.Role)
	if err != nil {
		return AuthorizedQuery{}, &Rejection{Reason: ReasonUnknownRole, Detail: string(subject.Role)}
	}
	hidden, _ := e.model.HiddenColumns(subject.Role)

	// Cheap path: nothing to hide, every row visible, no wildcard to expand.
	if caps.CanViewAll && len(hidden) == 0 && !wildcardRe.MatchString(masked) {
		return AuthorizedQuery{Text: stmt, Columns: nil, Filtered: false}, nil
	}

	text := stmt
	if loc := wildcardRe.FindStringIndex(masked); loc != nil {
		text = stmt[:loc[0]] + "SELECT " + strings.Join(visible, ", ") + stmt[loc[1]:]
		masked = maskLiterals(text)
	}

	predicate, err := e.model.RowPredicate(subject.Role, subject.ID)
	if err != nil {
		return AuthorizedQuery{}, &Rejection{Reason: ReasonUnknownRole, Detail: string(subject.Role)}
	}
	if caps.CanViewAll {
		// The predicate is a tautology; conjoin it only into an existing
		// filter clause so an unfiltered statement stays untouched.
		if whereRe.MatchString(masked) && !tautologyRe.MatchString(masked) {
			text = conjoin(text, masked, predicate)
		}
	} else if !predicateConjoined(masked, predicate) {
		text = conjoin(text, masked, predicate)
	}

	return AuthorizedQuery{Text: text, Columns: visible, Filtered: !caps.CanViewAll}, nil
}

// myLeadsQuery selects one of two fixed templates at construction time:
// unrestricted for capability-bearing roles, owner/assignee-restricted for
// everyone else.
func (e *Engine) myLeadsQuery(subject Subject, caps Capabilities) AuthorizedQuery {
	summary := []string{"id", "name", "email", "company", "status", "source", "value", "created_at"}
	hidden, _ := e.model.HiddenColumns(subject.Role)
	cols := make([]string, 0, len(summary))
	for _, col := range summary {
		if _, ok := hidden[col]; ok {
			continue
		}
		cols = append(cols, col)
	}
	list := strings.Join(cols, ", ")
	if caps.CanViewAll {
		return AuthorizedQuery{
			Text:     fmt.Sprintf("SELECT %s FROM leads ORDER BY created_at DESC LIMIT 20", list),
			Columns:  cols,
			Filtered: false,
		}
	}
	predicate := restrictedPredicate(subject.ID)
	return AuthorizedQuery{
		Text:     fmt.Sprintf("SELECT %s FROM leads WHERE %s ORDER BY created_at DESC LIMIT 20", list, predicate),
		Columns:  cols,
		Filtered: true,
	}
}

// maskLiterals blanks the contents of single-quoted string literals. The
// result has the same length as the input, so indexes found on the masked
// text are valid splice points in the original. A doubled quote inside a
// literal, the standard SQL escape, toggles out and straight back in.
func maskLiterals(stmt string) string {
	out := []byte(stmt)
	inLiteral := false
	for i := range out {
		if out[i] == '\'' {
			inLiteral = !inLiteral
			continue
		}
		if inLiteral {
			out[i] = ' '
		}
	}
	return string(out)
}

// predicateConjoined reports whether the predicate already appears as a
// top-level conjunct of the filter clause. Checking runs on the masked text,
// so a copy of the predicate smuggled inside a string literal never counts,
// and neither does a copy that is merely OR-ed into the filter.
func predicateConjoined(masked, predicate string) bool {
	for from := 0; ; {
		idx := strings.Index(masked[from:], predicate)
		if idx < 0 {
			return false
		}
		idx += from
		if conjoinedPrefixRe.MatchString(masked[:idx]) && conjoinedSuffixRe.MatchString(masked[idx+len(predicate):]) {
			return true
		}
		from = idx + 1
	}
}

// conjoin attaches the predicate to the statement's filter clause. An
// existing filter body is wrapped in parentheses first, so OR branches in it
// cannot escape the conjunction. Without a WHERE clause the predicate is
// inserted immediately after the table reference. Trailing clauses (GROUP BY,
// ORDER BY, LIMIT, ...) stay behind the filter. Clause positions come from
// the masked text; the splice happens on the original.
func conjoin(stmt, masked, predicate string) string {
	if loc := whereRe.FindStringIndex(masked); loc != nil {
		insertAt := len(stmt)
		if tail := clauseEndRe.FindStringIndex(masked[loc[1]:]); tail != nil {
			insertAt = loc[1] + tail[0]
		}
		body := strings.TrimSpace(stmt[loc[1]:insertAt])
		head := strings.TrimRight(stmt[:loc[1]], " ")
		rest := strings.TrimLeft(stmt[insertAt:], " ")
		out := head + " (" + body + ") AND " + predicate
		if rest != "" {
			out += " " + rest
		}
		return out
	}
	loc := leadsRefRe.FindStringIndex(masked)
	head := stmt[:loc[1]]
	rest := strings.TrimLeft(stmt[loc[1]:], " ")
	if rest == "" {
		return head + " WHERE " + predicate
	}
	return head + " WHERE " + predicate + " " + rest
}

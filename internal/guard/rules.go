package guard

import "regexp"

// Rule categories group patterns by the intent of the attack.
const (
	CategoryInstructionOverride = "instruction_override"
	CategoryPromptExtraction    = "prompt_extraction"
	CategoryRoleConfusion       = "role_confusion"
	CategorySecurityBypass      = "security_bypass"
	CategoryBulkData            = "bulk_data"
	CategorySQLManipulation     = "sql_manipulation"
	CategoryPrivilegeEscalation = "privilege_escalation"
	CategoryOutputManipulation  = "output_manipulation"
)

// Rule is one pattern in the ordered rule set. Matching is case-insensitive
// and language-level; it is not tied to any one database dialect.
type Rule struct {
	Name     string
	Category string
	re       *regexp.Regexp
}

func rule(name, category, pattern string) Rule {
	return Rule{Name: name, Category: category, re: regexp.MustCompile(`(?i)` + pattern)}
}

// defaultRules returns the ordered rule set. Earlier rules win; the first
// match short-circuits classification.
func defaultRules() []Rule {
	return []Rule{
		// Direct instruction overrides.
		rule("ignore-previous", CategoryInstructionOverride, `ignore\s+(all\s+)?(previous|above|the)`),
		rule("disregard-previous", CategoryInstructionOverride, `disregard\s+(all\s+)?(previous|above|the)`),
		rule("forget-previous", CategoryInstructionOverride, `forget\s+(all\s+)?(previous|above|the)`),
		rule("override-instructions", CategoryInstructionOverride, `override\s+(all\s+)?instructions?`),
		rule("new-instructions", CategoryInstructionOverride, `new\s+(instructions?|commands?|rules?)`),
		rule("change-instructions", CategoryInstructionOverride, `change\s+(your\s+)?instructions?`),
		rule("replace-instructions", CategoryInstructionOverride, `replace\s+(your\s+)?instructions?`),
		rule("delete-instructions", CategoryInstructionOverride, `delete\s+(your\s+)?instructions?`),

		// System prompt extraction.
		rule("show-prompt", CategoryPromptExtraction, `show\s+(your\s+)?(instructions?|system\s+prompt|prompt)`),
		rule("print-prompt", CategoryPromptExtraction, `print\s+(your\s+)?(instructions?|system\s+prompt|prompt)`),
		rule("repeat-prompt", CategoryPromptExtraction, `repeat\s+(your\s+)?(instructions?|system\s+prompt|prompt)`),
		rule("ask-prompt", CategoryPromptExtraction, `what\s+(are|were)\s+(your\s+)?(instructions?|system\s+prompt|prompt)`),
		rule("tell-prompt", CategoryPromptExtraction, `tell\s+me\s+(your\s+)?(instructions?|system\s+prompt|prompt)`),
		rule("probe-prompt", CategoryPromptExtraction, `(what|tell|explain).*(instructions?|system\s+prompt)`),

		// Role confusion.
		rule("you-are-now", CategoryRoleConfusion, `you\s+are\s+now`),
		rule("act-as", CategoryRoleConfusion, `act\s+as(\s+if\s+you\s+were)?`),
		rule("pretend", CategoryRoleConfusion, `pretend\s+(you\s+are|to\s+be)`),
		rule("role-play", CategoryRoleConfusion, `role\s+play`),
		rule("simulate", CategoryRoleConfusion, `simulate`),
		rule("become-a", CategoryRoleConfusion, `become\s+a\b`),

		// Security bypass phrasing.
		rule("bypass-security", CategorySecurityBypass, `bypass\s+security`),
		rule("ignore-security", CategorySecurityBypass, `ignore\s+security`),
		rule("disable-protection", CategorySecurityBypass, `disable\s+(security|filter|protection)`),
		rule("circumvent", CategorySecurityBypass, `circumvent`),
		rule("avoid-restriction", CategorySecurityBypass, `avoid\s+(security|filter|restriction)`),
		rule("no-security", CategorySecurityBypass, `no\s+security`),

		// Bulk data requests.
		rule("show-all-data", CategoryBulkData, `show\s+(me\s+)?(all\s+)?data`),
		rule("all-records", CategoryBulkData, `all\s+(users?|leads?|records?|data)`),
		rule("bypass-user-filter", CategoryBulkData, `bypass\s+user\s+filter`),
		rule("ignore-user-restriction", CategoryBulkData, `ignore\s+user\s+restriction`),
		rule("remove-where", CategoryBulkData, `remove\s+where\s+clause`),
		rule("select-all-users", CategoryBulkData, `select\s+\*\s+from\s+users`),
		rule("drop-table", CategoryBulkData, `drop\s+table`),

		// SQL manipulation tokens.
		rule("stacked-destructive", CategorySQLManipulation, `;\s*(drop|delete|truncate|alter|create)`),
		rule("union-select", CategorySQLManipulation, `union\s+select`),
		rule("or-1-eq-1", CategorySQLManipulation, `or\s+1\s*=\s*1`),

		// Privilege escalation phrasing.
		rule("claim-developer", CategoryPrivilegeEscalation, `you\s+are\s+(a\s+)?developer`),
		rule("claim-admin", CategoryPrivilegeEscalation, `you\s+are\s+(an?\s+)?(admin|administrator)`),
		rule("elevate-privileges", CategoryPrivilegeEscalation, `elevate\s+(your\s+)?privileges?`),
		rule("escalate-privileges", CategoryPrivilegeEscalation, `escalate\s+(your\s+)?privileges?`),
		rule("sudo", CategoryPrivilegeEscalation, `\bsudo\b`),
		rule("admin-mode", CategoryPrivilegeEscalation, `admin\s+mode`),

		// Output manipulation.
		rule("response-with", CategoryOutputManipulation, `(start\s+)?response\s+with`),
		rule("begin-response", CategoryOutputManipulation, `begin\s+your\s+response\s+with`),
		rule("output-only", CategoryOutputManipulation, `output\s+only`),
		rule("just-say", CategoryOutputManipulation, `just\s+say`),
		rule("dont-mention", CategoryOutputManipulation, `(don'?t|do not|never)\s+mention`),
		rule("skip-warning", CategoryOutputManipulation, `(ignore|skip)\s+(the\s+)?warning`),
	}
}

package cli

import (
	"fmt"
	"regexp"
	"strings"
)

// sqlLikePattern flags SQL-statement keywords or a quote immediately
// followed by a statement separator, the shape a string built by
// concatenating an identifier into a query would need to break out.
var sqlLikePattern = regexp.MustCompile(`['"]\s*;\s*|\b(DROP|DELETE|UPDATE|INSERT)\b`)

// ValidateInput rejects input strings carrying shell/path/SQL
// injection-style characters. internal/custody calls this against the
// user/token/symbol identifiers of its deposit, withdraw-request, key and
// listing calls before they become a ledger map key or an event-sink topic,
// so the error names which pattern tripped rather than returning one opaque
// message for all three. The SQL-like check runs first, so an input that
// matches it is reported as such even when it also contains a ';'.
func ValidateInput(input string) error {
	if sqlLikePattern.MatchString(strings.ToUpper(input)) {
		return fmt.Errorf("input %q contains a SQL-injection-like pattern", input)
	}

	if strings.Contains(input, ";") || strings.Contains(input, "&&") || strings.Contains(input, "||") {
		return fmt.Errorf("input %q contains shell control characters", input)
	}

	if strings.Contains(input, "../") || strings.Contains(input, "..\\") {
		return fmt.Errorf("input %q contains a path traversal sequence", input)
	}

	return nil
}

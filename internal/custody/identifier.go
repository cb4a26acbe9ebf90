package custody

import (
	"fmt"

	"github.com/dclob/exchange/pkg/apperrors"
	"github.com/dclob/exchange/pkg/cli"
)

// validateIdentifier rejects user/token/symbol strings carrying the
// injection-style characters pkg/cli.ValidateInput screens for, since
// every one of these strings ends up as a ledger map key and an
// event-sink topic.
func validateIdentifier(field, value string) error {
	if err := cli.ValidateInput(value); err != nil {
		return fmt.Errorf("%w: %s %q", apperrors.ErrInvalidIdentifier, field, value)
	}
	return nil
}

// Package verify wraps the Ed25519 signature-verification primitive the
// operator pipeline uses to authenticate a user's signed order payload
// before a trade batch is applied.
package verify

import (
	"crypto/ed25519"
	"fmt"

	"github.com/dclob/exchange/pkg/apperrors"
)

// Verifier checks a detached Ed25519 signature over msg against pubKey.
type Verifier interface {
	Verify(pubKey [32]byte, msg, sig []byte) error
}

// Ed25519Verifier is the production Verifier, backed directly by the
// standard library — this is the named external collaborator primitive the
// spec calls out, not a gap to fill with a third-party package.
type Ed25519Verifier struct{}

// NewEd25519Verifier returns the standard-library-backed Verifier.
func NewEd25519Verifier() Ed25519Verifier { return Ed25519Verifier{} }

// Verify reports ErrSignatureInvalid if sig does not verify for msg/pubKey.
func (Ed25519Verifier) Verify(pubKey [32]byte, msg, sig []byte) error {
	if len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("%w: signature has wrong length %d", apperrors.ErrSignatureInvalid, len(sig))
	}
	if !ed25519.Verify(pubKey[:], msg, sig) {
		return apperrors.ErrSignatureInvalid
	}
	return nil
}

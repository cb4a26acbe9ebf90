package custody

import (
	"fmt"

	"github.com/dclob/exchange/pkg/apperrors"
)

// AnnounceKey registers pubKey as user's signing key under keyID. A user's
// (user, keyID) slot is write-once: announcing a second key for the same
// id fails ErrPublicKeyAlreadyExist rather than silently rotating it, so an
// operator can trust a previously-verified key was never swapped out from
// under a batch it already authorized.
func (a *AssetManager) AnnounceKey(caller, user string, keyID uint32, pubKey [32]byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.requireInitialized(); err != nil {
		return err
	}
	if caller != user {
		return fmt.Errorf("%w: announcing a key requires the owning user", apperrors.ErrUnauthorized)
	}
	if err := validateIdentifier("user", user); err != nil {
		return err
	}
	k := keyKey{user: user, keyID: keyID}
	if _, ok := a.keys[k]; ok {
		return fmt.Errorf("%w: user %s key %d", apperrors.ErrPublicKeyAlreadyExist, user, keyID)
	}
	a.keys[k] = pubKey
	return nil
}

// GetUserKey returns the key user announced under keyID.
func (a *AssetManager) GetUserKey(user string, keyID uint32) ([32]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	pubKey, ok := a.keys[keyKey{user: user, keyID: keyID}]
	if !ok {
		return [32]byte{}, fmt.Errorf("%w: user %s key %d", apperrors.ErrNoUserPublicKeyExist, user, keyID)
	}
	return pubKey, nil
}

// ValidateUserSignature verifies sig over msg against the key user
// announced under keyID.
func (a *AssetManager) ValidateUserSignature(user string, keyID uint32, msg, sig []byte) error {
	pubKey, err := a.GetUserKey(user, keyID)
	if err != nil {
		return err
	}
	return a.verifier.Verify(pubKey, msg, sig)
}

// Package assertion verifies authentication assertions against a stored
// credential public key. The signature covers authData || clientDataHash and
// the algorithm is implied by the key itself.
//
// Signature counter state is owned by the caller: the package never persists
// or enforces counters on its own. CounterTracker implements the expected
// monotonicity rule for callers that want it.
package assertion

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/go-ctap/fido2/pkg/cosekey"
	"github.com/ldclabs/cose/key"
)

var (
	ErrInvalidSignature     = errors.New("assertion: invalid assertion signature")
	ErrCounterNotIncreasing = errors.New("assertion: signature counter did not increase")
)

// Verify checks signature over authDataRaw || clientDataHash using the
// credential public key captured at registration.
func Verify(clientDataHash, authDataRaw, signature []byte, credentialPublicKey key.Key) error {
	if err := cosekey.Verify(credentialPublicKey, slices.Concat(authDataRaw, clientDataHash), signature); err != nil {
		if errors.Is(err, cosekey.ErrInvalidSignature) {
			return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
		}
		return err
	}
	return nil
}

// CounterTracker keeps the last observed signature counter per credential.
// A counter must strictly increase between assertions; a pair of zeroes means
// the authenticator does not implement counters and is accepted.
type CounterTracker struct {
	mu   sync.Mutex
	last map[string]uint32
}

func NewCounterTracker() *CounterTracker {
	return &CounterTracker{last: make(map[string]uint32)}
}

// Observe records the counter from a verified assertion. It returns
// ErrCounterNotIncreasing when the counter did not move forward, which may
// indicate a cloned credential.
func (ct *CounterTracker) Observe(credentialID []byte, signCount uint32) error {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	id := string(credentialID)
	last, seen := ct.last[id]

	if signCount == 0 && last == 0 {
		return nil
	}
	if seen && signCount <= last {
		return fmt.Errorf("%w: got %d, last %d", ErrCounterNotIncreasing, signCount, last)
	}

	ct.last[id] = signCount
	return nil
}

package core

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// NormalizeAddress converts any case-variant of a 20-byte hex address to its
// EIP-55 checksum form so case-variant inputs map to one registry slot.
func NormalizeAddress(address string) (string, error) {
	trimmed := strings.TrimSpace(address)
	lower := strings.ToLower(strings.TrimPrefix(strings.ToLower(trimmed), "0x"))
	if len(lower) != 40 {
		return "", fmt.Errorf("core: invalid address %q: expected 40 hex characters", trimmed)
	}
	if _, err := hex.DecodeString(lower); err != nil {
		return "", fmt.Errorf("core: invalid address %q: %w", trimmed, err)
	}

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(lower))
	digest := hasher.Sum(nil)

	out := make([]byte, 40)
	for i := 0; i < 40; i++ {
		ch := lower[i]
		if ch >= 'a' && ch <= 'f' {
			nibble := digest[i/2]
			if i%2 == 0 {
				nibble >>= 4
			}
			if nibble&0x0f >= 8 {
				ch = ch - 'a' + 'A'
			}
		}
		out[i] = ch
	}
	return "0x" + string(out), nil
}

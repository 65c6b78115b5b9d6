// Package eth implements personal-sign signature recovery for wallet
// authentication. Pure computation, no network or storage access.
package eth

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// RecoverAddress recovers the address that produced a personal-sign
// signature over text. The signature is the 65-byte r||s||v hex form wallets
// return from personal_sign.
func RecoverAddress(text, signature string) (string, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != 65 {
		return "", fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}

	// Wallets encode the recovery id as 27/28; crypto.SigToPub wants 0/1.
	cp := make([]byte, 65)
	copy(cp, sig)
	if cp[64] >= 27 {
		cp[64] -= 27
	}
	if cp[64] > 1 {
		return "", fmt.Errorf("invalid recovery id %d", cp[64])
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(text)), cp)
	if err != nil {
		return "", fmt.Errorf("recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pub).Hex(), nil
}

// Verify reports whether the signature over text was produced by the claimed
// address. Address comparison is case-insensitive. Malformed input is never
// an error here: any recovery failure is reported as false, since callers
// treat verification failure as "session invalid", not as a fault.
func Verify(text, signature, claimedAddress string) bool {
	recovered, err := RecoverAddress(text, signature)
	if err != nil {
		return false
	}
	return strings.EqualFold(recovered, claimedAddress)
}

// Sign produces a personal-sign signature over text with the given key,
// in the same 65-byte hex form wallets return.
func Sign(text string, key *ecdsa.PrivateKey) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(text)), key)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	sig[64] += 27
	return hexutil.Encode(sig), nil
}

// AddressOf returns the checksummed address for a private key.
func AddressOf(key *ecdsa.PrivateKey) string {
	return crypto.PubkeyToAddress(key.PublicKey).Hex()
}

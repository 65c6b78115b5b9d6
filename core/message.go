package core

import "fmt"

// messagePrefix opens every signing message so wallets render a recognizable
// prompt and signatures cannot be replayed against other dapps.
const messagePrefix = "garuda wants you to sign in with your wallet:"

// BuildMessage returns the canonical message a wallet signs. Deterministic:
// the same (address, nonce, timestamp) always yields the same text, and the
// text embeds the address literally so a recovered signature binds to that
// address and no other.
func BuildMessage(address, nonce string, timestampMillis int64) AuthMessage {
	text := fmt.Sprintf("%s\n%s\n\nNonce: %s\nIssued At: %d",
		messagePrefix, address, nonce, timestampMillis)

	return AuthMessage{
		Text:            text,
		TimestampMillis: timestampMillis,
		Nonce:           nonce,
	}
}

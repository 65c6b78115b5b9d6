package ports

import "github.com/layer-3/garuda/core"

// Tokenizer converts between sessions and the bearer tokens the HTTP
// transport hands out.
type Tokenizer interface {
	SessionToToken(session *core.Session, userID string) (string, error)

	// TokenToSubject parses and verifies a bearer token, returning the
	// identity key and user ID it was minted for.
	TokenToSubject(token string) (identityKey, userID string, err error)
}

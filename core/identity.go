package core

import "time"

// LoginEvent carries what a provider learned during one login attempt. Any
// subset of the optional fields may be present.
type LoginEvent struct {
	Address     string
	Email       string
	DisplayName string
	Provider    CredentialKind
}

// Key returns the identity key the event resolves under: the wallet address
// when present, the email otherwise.
func (e LoginEvent) Key() string {
	if addr := NormalizeKey(e.Address); addr != "" {
		return addr
	}
	return NormalizeKey(e.Email)
}

// CanonicalUser is the single durable record all credentials for one person
// converge onto. For a given email at most one user carries it; for a given
// wallet address at most one user lists it in LinkedWallets.
type CanonicalUser struct {
	ID            string    `json:"id"`
	PrimaryKey    string    `json:"primaryKey"`
	Email         string    `json:"email,omitempty"`
	DisplayName   string    `json:"displayName,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	LinkedWallets []string  `json:"linkedWallets,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// HasWallet reports whether the address is already linked.
func (u *CanonicalUser) HasWallet(address string) bool {
	address = NormalizeKey(address)
	for _, w := range u.LinkedWallets {
		if w == address {
			return true
		}
	}
	return false
}

// AddWallet links the address and reports whether it was newly added.
func (u *CanonicalUser) AddWallet(address string) bool {
	address = NormalizeKey(address)
	if address == "" || u.HasWallet(address) {
		return false
	}
	u.LinkedWallets = append(u.LinkedWallets, address)
	return true
}

// Clone returns a deep copy so store adapters never hand out aliased state.
func (u *CanonicalUser) Clone() *CanonicalUser {
	cp := *u
	cp.LinkedWallets = append([]string(nil), u.LinkedWallets...)
	return &cp
}

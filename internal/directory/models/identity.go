package models

// Identity is the acting principal as supplied by the token layer.
// The zero value is an anonymous caller.
type Identity struct {
	AccountID uint
	Username  string
	Superuser bool
}

// Authenticated reports whether the identity belongs to a known account.
func (i Identity) Authenticated() bool {
	return i.AccountID != 0
}

package domain

import "time"

// Alias is the pseudonymous identity a provider sees for a platform user.
// The mapping is first-write-wins: once minted for a (user, provider) pair
// it never changes, so a provider observes a stable identity without ever
// learning the real user id.
type Alias struct {
	ID         string
	UserID     string
	ProviderID string
	Alias      string
	CreatedAt  time.Time
}

// AliasPrefix marks generated aliases, e.g. "u_3kTq0hGBPZ1vWmY".
const AliasPrefix = "u_"

// Package gate decides whether a subject may act on marketplace resources.
// Every mutating operation is authorized here and nowhere else.
package gate

import (
	"github.com/iamsyg/artisian-dashboard/internal/domain"
)

// Scope selects which checks apply.
type Scope string

const (
	// ScopeAuthenticated only requires a subject.
	ScopeAuthenticated Scope = "authenticated"
	// ScopeProfile requires a seller record, verified or not.
	ScopeProfile Scope = "profile"
	// ScopeCreate requires a verified seller.
	ScopeCreate Scope = "create"
	// ScopeOwned requires a verified seller that owns the resource.
	ScopeOwned Scope = "owned"
)

// Decision is the outcome of Authorize.
type Decision string

const (
	Allow            Decision = "allow"
	NotAuthenticated Decision = "not_authenticated"
	NotASeller       Decision = "not_a_seller"
	NotVerified      Decision = "not_verified"
	NotOwner         Decision = "not_owner"
)

// Request is the input of a single authorization decision.
type Request struct {
	Subject          string
	Seller           *domain.Seller
	Scope            Scope
	ResourceSellerID string
}

// Authorize evaluates the checks for r.Scope in order and returns the first
// failure, or Allow.
func Authorize(r Request) Decision {
	if r.Subject == "" {
		return NotAuthenticated
	}
	if r.Scope == ScopeAuthenticated {
		return Allow
	}

	if r.Seller == nil {
		return NotASeller
	}
	if r.Scope == ScopeProfile {
		return Allow
	}

	if !r.Seller.IsSeller {
		return NotVerified
	}
	if r.Scope == ScopeOwned && r.ResourceSellerID != r.Seller.ID {
		return NotOwner
	}
	return Allow
}

package registry

import (
	"gfvledger/internal/ledger"
)

// Roles is the authority every contract checks callers against: the
// deployment owner, the contracts allowed to mint asset units and the
// addresses allowed to mint reward tokens.
type Roles struct {
	Owner   ledger.Address
	Minters *Set
	Admins  *Set
}

func NewRoles(journal *ledger.Journal, owner ledger.Address) *Roles {
	return &Roles{
		Owner:   owner,
		Minters: NewAuthorizationSet(journal),
		Admins:  NewAuthorizationSet(journal),
	}
}

func (r *Roles) RequireOwner(caller ledger.Address) error {
	if caller != r.Owner {
		return ledger.ErrNotOwner
	}

	return nil
}

func (r *Roles) RequireMinter(caller ledger.Address) error {
	if !r.Minters.Contains(caller) {
		return ledger.ErrNotAuthorized
	}

	return nil
}

func (r *Roles) RequireAdmin(caller ledger.Address) error {
	if !r.Admins.Contains(caller) {
		return ledger.ErrNotAuthorized
	}

	return nil
}

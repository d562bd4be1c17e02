package registry

import (
	"gfvledger/internal/ledger"
)

// Set is an address allow-list whose mutations go through the journal.
// It reports the configured errors when adding a present member or
// removing an absent one.
type Set struct {
	journal *ledger.Journal
	members map[ledger.Address]struct{}
	present error
	absent  error
}

func NewSet(journal *ledger.Journal, present, absent error) *Set {
	return &Set{
		journal: journal,
		members: make(map[ledger.Address]struct{}),
		present: present,
		absent:  absent,
	}
}

func NewWhitelist(journal *ledger.Journal) *Set {
	return NewSet(journal, ledger.ErrAlreadyWhitelisted, ledger.ErrNotCurrentlyWhitelisted)
}

func NewAuthorizationSet(journal *ledger.Journal) *Set {
	return NewSet(journal, ledger.ErrAlreadyAuthorized, ledger.ErrNotAuthorized)
}

func (s *Set) Add(address ledger.Address) error {
	if s.Contains(address) {
		return s.present
	}

	ledger.Put(s.journal, s.members, address, struct{}{})
	return nil
}

func (s *Set) Remove(address ledger.Address) error {
	if !s.Contains(address) {
		return s.absent
	}

	ledger.Delete(s.journal, s.members, address)
	return nil
}

func (s *Set) Contains(address ledger.Address) bool {
	_, ok := s.members[address]
	return ok
}

func (s *Set) Len() int {
	return len(s.members)
}

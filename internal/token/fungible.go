package token

import (
	"github.com/holiman/uint256"

	"gfvledger/internal/ledger"
	"gfvledger/internal/registry"
)

// MintPolicy decides who may create new supply of a fungible token.
type MintPolicy uint8

const (
	// OwnerMint lets only the deployment owner mint (payment token).
	OwnerMint MintPolicy = iota
	// AdminMint lets only members of Roles.Admins mint (reward token).
	AdminMint
)

type allowanceKey struct {
	owner   ledger.Address
	spender ledger.Address
}

// Fungible is a balance/allowance ledger for a single fungible token.
type Fungible struct {
	contract    string
	address     ledger.Address
	policy      MintPolicy
	journal     *ledger.Journal
	roles       *registry.Roles
	balances    map[ledger.Address]uint256.Int
	allowances  map[allowanceKey]uint256.Int
	totalSupply uint256.Int
}

func NewFungible(contract string, address ledger.Address, policy MintPolicy, roles *registry.Roles, journal *ledger.Journal) *Fungible {
	return &Fungible{
		contract:   contract,
		address:    address,
		policy:     policy,
		journal:    journal,
		roles:      roles,
		balances:   make(map[ledger.Address]uint256.Int),
		allowances: make(map[allowanceKey]uint256.Int),
	}
}

func (t *Fungible) Address() ledger.Address {
	return t.address
}

func (t *Fungible) BalanceOf(address ledger.Address) *uint256.Int {
	balance := t.balances[address]
	return &balance
}

func (t *Fungible) TotalSupply() *uint256.Int {
	supply := t.totalSupply
	return &supply
}

func (t *Fungible) Allowance(owner, spender ledger.Address) *uint256.Int {
	allowance := t.allowances[allowanceKey{owner: owner, spender: spender}]
	return &allowance
}

func (t *Fungible) Transfer(from, to ledger.Address, amount *uint256.Int) error {
	if err := t.move(from, to, amount); err != nil {
		return err
	}

	t.journal.Emit(ledger.NewEvent(t.contract, "Transfer",
		"from", ledger.FormatAddress(from),
		"to", ledger.FormatAddress(to),
		"amount", amount.Dec(),
	))
	return nil
}

func (t *Fungible) Approve(owner, spender ledger.Address, amount *uint256.Int) error {
	ledger.Put(t.journal, t.allowances, allowanceKey{owner: owner, spender: spender}, *amount)

	t.journal.Emit(ledger.NewEvent(t.contract, "Approval",
		"owner", ledger.FormatAddress(owner),
		"spender", ledger.FormatAddress(spender),
		"amount", amount.Dec(),
	))
	return nil
}

// TransferFrom moves amount out of from on behalf of spender, consuming
// allowance unless the spender is the holder itself.
func (t *Fungible) TransferFrom(spender, from, to ledger.Address, amount *uint256.Int) error {
	if spender != from {
		key := allowanceKey{owner: from, spender: spender}
		allowance := t.allowances[key]
		if allowance.Lt(amount) {
			return ledger.ErrInsufficientAllowance
		}

		remaining := new(uint256.Int).Sub(&allowance, amount)
		ledger.Put(t.journal, t.allowances, key, *remaining)
	}

	return t.Transfer(from, to, amount)
}

func (t *Fungible) Mint(caller, to ledger.Address, amount *uint256.Int) error {
	switch t.policy {
	case AdminMint:
		if err := t.roles.RequireAdmin(caller); err != nil {
			return err
		}
		if amount.IsZero() {
			return ledger.ErrInvalidAmount
		}
	default:
		if err := t.roles.RequireOwner(caller); err != nil {
			return err
		}
	}

	supply, err := ledger.Add(&t.totalSupply, amount)
	if err != nil {
		return err
	}

	balance, err := ledger.Add(t.BalanceOf(to), amount)
	if err != nil {
		return err
	}

	ledger.Assign(t.journal, &t.totalSupply, *supply)
	ledger.Put(t.journal, t.balances, to, *balance)

	t.journal.Emit(ledger.NewEvent(t.contract, "TokensMinted",
		"to", ledger.FormatAddress(to),
		"amount", amount.Dec(),
	))
	return nil
}

func (t *Fungible) AddAdmin(caller, address ledger.Address) error {
	if t.policy != AdminMint {
		return ledger.ErrUnknownMethod
	}

	if err := t.roles.RequireOwner(caller); err != nil {
		return err
	}

	if err := t.roles.Admins.Add(address); err != nil {
		return err
	}

	t.journal.Emit(ledger.NewEvent(t.contract, "AdminRightsGranted", "address", ledger.FormatAddress(address)))
	return nil
}

func (t *Fungible) RevokeAdmin(caller, address ledger.Address) error {
	if t.policy != AdminMint {
		return ledger.ErrUnknownMethod
	}

	if err := t.roles.RequireOwner(caller); err != nil {
		return err
	}

	if err := t.roles.Admins.Remove(address); err != nil {
		return err
	}

	t.journal.Emit(ledger.NewEvent(t.contract, "AdminRightsRevoked", "address", ledger.FormatAddress(address)))
	return nil
}

func (t *Fungible) IsAdmin(address ledger.Address) bool {
	return t.roles.Admins.Contains(address)
}

func (t *Fungible) move(from, to ledger.Address, amount *uint256.Int) error {
	remaining, err := ledger.Sub(t.BalanceOf(from), amount)
	if err != nil {
		return err
	}

	ledger.Put(t.journal, t.balances, from, *remaining)

	credited, err := ledger.Add(t.BalanceOf(to), amount)
	if err != nil {
		return err
	}

	ledger.Put(t.journal, t.balances, to, *credited)
	return nil
}

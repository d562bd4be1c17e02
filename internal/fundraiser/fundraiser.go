package fundraiser

import (
	"errors"
	"strconv"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"gfvledger/internal/ledger"
	"gfvledger/internal/logger"
	"gfvledger/internal/registry"
)

const contractName = "fundraiser"

// PaymentToken is the fungible token tickets are paid with.
type PaymentToken interface {
	BalanceOf(address ledger.Address) *uint256.Int
	Transfer(from, to ledger.Address, amount *uint256.Int) error
	TransferFrom(spender, from, to ledger.Address, amount *uint256.Int) error
}

// AssetMinter creates asset units when tickets are redeemed.
type AssetMinter interface {
	Mint(caller, to ledger.Address, unit, amount uint64) error
}

type Config struct {
	Address     ledger.Address
	UnitID      uint64
	MaxTickets  uint64
	TicketPrice *uint256.Int
}

func (c Config) Validate() error {
	if c.MaxTickets == 0 {
		return errors.New("fundraiser: max tickets must be positive")
	}

	if c.TicketPrice == nil {
		return errors.New("fundraiser: ticket price is required")
	}

	return nil
}

// Campaign is a read-only snapshot of the campaign counters.
type Campaign struct {
	Phase           Phase
	TicketsSold     uint64
	TicketsRedeemed uint64
	MaxTickets      uint64
	TicketPrice     uint256.Int
}

// Fundraiser sells fixed-price tickets to whitelisted addresses and later
// redeems them for asset units. Every method is one operation: callers run
// it inside the journal's transactional boundary.
type Fundraiser struct {
	config          Config
	journal         *ledger.Journal
	roles           *registry.Roles
	payment         PaymentToken
	asset           AssetMinter
	whitelist       *registry.Set
	phase           Phase
	ticketsSold     uint64
	ticketsRedeemed uint64
	tickets         map[ledger.Address]uint64
}

func New(config Config, roles *registry.Roles, journal *ledger.Journal, payment PaymentToken, asset AssetMinter) (*Fundraiser, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Fundraiser{
		config:    config,
		journal:   journal,
		roles:     roles,
		payment:   payment,
		asset:     asset,
		whitelist: registry.NewWhitelist(journal),
		phase:     Listing,
		tickets:   make(map[ledger.Address]uint64),
	}, nil
}

func (f *Fundraiser) Address() ledger.Address {
	return f.config.Address
}

func (f *Fundraiser) Campaign() Campaign {
	return Campaign{
		Phase:           f.phase,
		TicketsSold:     f.ticketsSold,
		TicketsRedeemed: f.ticketsRedeemed,
		MaxTickets:      f.config.MaxTickets,
		TicketPrice:     *f.config.TicketPrice,
	}
}

func (f *Fundraiser) Tickets(address ledger.Address) uint64 {
	return f.tickets[address]
}

func (f *Fundraiser) IsWhitelisted(address ledger.Address) bool {
	return f.whitelist.Contains(address)
}

func (f *Fundraiser) StartFundraising(caller ledger.Address) error {
	if err := f.roles.RequireOwner(caller); err != nil {
		return err
	}

	if f.phase != Listing {
		return ledger.ErrInvalidTransition
	}

	f.transition(FundraisingLive)
	return nil
}

// EndFundraiser closes a sold-out campaign and sends the collected payments
// to the owner. Outside FundraisingLive it fails with InvalidTransition; a
// live campaign that is not sold out fails with CampaignNotFinished.
func (f *Fundraiser) EndFundraiser(caller ledger.Address) error {
	if err := f.roles.RequireOwner(caller); err != nil {
		return err
	}

	if f.phase != FundraisingLive {
		return ledger.ErrInvalidTransition
	}

	if f.ticketsSold != f.config.MaxTickets {
		return ledger.ErrCampaignNotFinished
	}

	f.transition(FundraisingComplete)

	balance := f.payment.BalanceOf(f.config.Address)
	if !balance.IsZero() {
		if err := f.payment.Transfer(f.config.Address, f.roles.Owner, balance); err != nil {
			return err
		}
	}

	f.journal.Emit(ledger.NewEvent(contractName, "FundsWithdrawn",
		"to", ledger.FormatAddress(f.roles.Owner),
		"amount", balance.Dec(),
	))
	return nil
}

func (f *Fundraiser) StartMinting(caller ledger.Address) error {
	if err := f.roles.RequireOwner(caller); err != nil {
		return err
	}

	if f.phase != FundraisingComplete {
		return ledger.ErrFundraisingNotComplete
	}

	f.transition(MintingLive)
	return nil
}

func (f *Fundraiser) AddToWhitelist(caller, address ledger.Address) error {
	if err := f.roles.RequireOwner(caller); err != nil {
		return err
	}

	if err := f.whitelist.Add(address); err != nil {
		return err
	}

	f.journal.Emit(ledger.NewEvent(contractName, "AddedToWhitelist", "address", ledger.FormatAddress(address)))
	return nil
}

func (f *Fundraiser) RemoveFromWhitelist(caller, address ledger.Address) error {
	if err := f.roles.RequireOwner(caller); err != nil {
		return err
	}

	if err := f.whitelist.Remove(address); err != nil {
		return err
	}

	f.journal.Emit(ledger.NewEvent(contractName, "RemovedFromWhitelist", "address", ledger.FormatAddress(address)))
	return nil
}

// BuyTicket pulls count*ticketPrice from the caller and credits count
// tickets. Counters move only once the payment went through.
func (f *Fundraiser) BuyTicket(caller ledger.Address, count uint64) error {
	switch f.phase {
	case Listing:
		return ledger.ErrFundraisingNotLive
	case FundraisingComplete, MintingLive:
		return ledger.ErrFundraisingEnded
	}

	if !f.whitelist.Contains(caller) {
		return ledger.ErrNotWhitelisted
	}

	if count == 0 {
		return ledger.ErrInvalidAmount
	}

	if count > f.config.MaxTickets-f.ticketsSold {
		return ledger.ErrNotEnoughTicketsAvailable
	}

	cost, err := ledger.Mul(uint256.NewInt(count), f.config.TicketPrice)
	if err != nil {
		return err
	}

	logger.Debug("buy ticket: pulling payment...", zap.String("caller", ledger.FormatAddress(caller)), zap.String("cost", cost.Dec()))
	if err := f.payment.TransferFrom(f.config.Address, caller, f.config.Address, cost); err != nil {
		return err
	}

	ledger.Put(f.journal, f.tickets, caller, f.tickets[caller]+count)
	ledger.Assign(f.journal, &f.ticketsSold, f.ticketsSold+count)

	f.journal.Emit(ledger.NewEvent(contractName, "TicketsPurchased",
		"buyer", ledger.FormatAddress(caller),
		"count", strconv.FormatUint(count, 10),
		"paid", cost.Dec(),
		"ticketsSold", strconv.FormatUint(f.ticketsSold, 10),
	))
	return nil
}

// RequestRefund gives back everything the caller paid while the campaign is
// still live and not sold out.
func (f *Fundraiser) RequestRefund(caller ledger.Address) error {
	if !f.whitelist.Contains(caller) {
		return ledger.ErrNotWhitelisted
	}

	count := f.tickets[caller]
	if count == 0 {
		return ledger.ErrNoTickets
	}

	if f.phase != FundraisingLive || f.ticketsSold >= f.config.MaxTickets {
		return ledger.ErrFundraisingEnded
	}

	amount, err := ledger.Mul(uint256.NewInt(count), f.config.TicketPrice)
	if err != nil {
		return err
	}

	ledger.Put(f.journal, f.tickets, caller, 0)
	ledger.Assign(f.journal, &f.ticketsSold, f.ticketsSold-count)

	if err := f.payment.Transfer(f.config.Address, caller, amount); err != nil {
		return err
	}

	f.journal.Emit(ledger.NewEvent(contractName, "Refunded",
		"buyer", ledger.FormatAddress(caller),
		"count", strconv.FormatUint(count, 10),
		"amount", amount.Dec(),
	))
	return nil
}

// ClaimTokens redeems every ticket the caller holds for one asset unit
// each. The ticket leaves circulation, so ticketsSold drops with it.
func (f *Fundraiser) ClaimTokens(caller ledger.Address) error {
	if f.phase != MintingLive {
		return ledger.ErrMintingNotLive
	}

	if !f.whitelist.Contains(caller) {
		return ledger.ErrNotWhitelisted
	}

	count := f.tickets[caller]
	if count == 0 {
		return ledger.ErrNoTickets
	}

	ledger.Put(f.journal, f.tickets, caller, 0)
	ledger.Assign(f.journal, &f.ticketsSold, f.ticketsSold-count)
	ledger.Assign(f.journal, &f.ticketsRedeemed, f.ticketsRedeemed+count)

	if err := f.asset.Mint(f.config.Address, caller, f.config.UnitID, count); err != nil {
		return err
	}

	f.journal.Emit(ledger.NewEvent(contractName, "TokensClaimed",
		"buyer", ledger.FormatAddress(caller),
		"unitId", strconv.FormatUint(f.config.UnitID, 10),
		"count", strconv.FormatUint(count, 10),
	))
	return nil
}

// Receive rejects value sent without going through BuyTicket.
func (f *Fundraiser) Receive(caller ledger.Address, amount *uint256.Int) error {
	return ledger.ErrPaymentRejected
}

func (f *Fundraiser) transition(next Phase) {
	previous := f.phase
	ledger.Assign(f.journal, &f.phase, next)

	logger.Debug("phase transition", zap.Stringer("from", previous), zap.Stringer("to", next))
	f.journal.Emit(ledger.NewEvent(contractName, "PhaseChanged",
		"from", previous.String(),
		"to", next.String(),
	))
}

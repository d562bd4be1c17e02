package sequencer

import (
	"fmt"
	"strconv"
	"time"

	"github.com/holiman/uint256"

	"gfvledger/internal/fundraiser"
	"gfvledger/internal/ledger"
	"gfvledger/internal/staking"
)

// Transaction is one call taken from the ordered transaction log.
type Transaction struct {
	Lt       uint64
	Hash     string
	Time     time.Time
	Caller   ledger.Address
	Contract string
	Method   string
	Args     Args
}

// Args holds call arguments by name, encoded as strings.
type Args map[string]string

func (a Args) String(key string) (string, error) {
	value, ok := a[key]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", ledger.ErrInvalidArgument, key)
	}

	return value, nil
}

func (a Args) Address(key string) (ledger.Address, error) {
	value, err := a.String(key)
	if err != nil {
		return ledger.Address{}, err
	}

	address, err := ledger.ParseAddress(value)
	if err != nil {
		return ledger.Address{}, fmt.Errorf("%w: %s: %v", ledger.ErrInvalidArgument, key, err)
	}

	return address, nil
}

func (a Args) Uint64(key string) (uint64, error) {
	value, err := a.String(key)
	if err != nil {
		return 0, err
	}

	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ledger.ErrInvalidArgument, key, err)
	}

	return n, nil
}

func (a Args) Amount(key string) (*uint256.Int, error) {
	value, err := a.String(key)
	if err != nil {
		return nil, err
	}

	amount, err := ledger.ParseAmount(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ledger.ErrInvalidArgument, key, err)
	}

	return amount, nil
}

func (a Args) Bool(key string) (bool, error) {
	value, err := a.String(key)
	if err != nil {
		return false, err
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ledger.ErrInvalidArgument, key, err)
	}

	return b, nil
}

// Receipt is the outcome of applying a transaction. Campaign and the
// position maps reflect the state right after the transaction for every
// address it touched.
type Receipt struct {
	Transaction Transaction
	Events      []ledger.Event
	Err         error
	Campaign    fundraiser.Campaign
	Tickets     map[ledger.Address]uint64
	Stakes      map[ledger.Address]staking.Position
}

func (r Receipt) Succeeded() bool {
	return r.Err == nil
}

func (r Receipt) ErrorCode() string {
	return ledger.Code(r.Err)
}

// PhaseChanged reports the phase the campaign entered in this transaction.
func (r Receipt) PhaseChanged() (fundraiser.Phase, bool) {
	for _, event := range r.Events {
		if event.Contract == ContractFundraiser && event.Name == "PhaseChanged" {
			return r.Campaign.Phase, true
		}
	}

	return 0, false
}

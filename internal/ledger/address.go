package ledger

import (
	"fmt"

	"github.com/tonkeeper/tongo/ton"
)

// Address identifies an account (user wallet or contract) on the host chain.
type Address = ton.AccountID

func ParseAddress(s string) (Address, error) {
	accountID, err := ton.ParseAccountID(s)
	if err != nil {
		return Address{}, fmt.Errorf("parse address %q: %w", s, err)
	}

	return accountID, nil
}

func FormatAddress(address Address) string {
	return address.ToRaw()
}

// Package ledgertest holds fixtures shared by the ledger package tests.
package ledgertest

import (
	"time"

	"github.com/holiman/uint256"

	"gfvledger/internal/ledger"
)

// Genesis is the block time every test ledger starts at.
var Genesis = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Address returns a deterministic basechain address whose first byte is n.
func Address(n byte) ledger.Address {
	var address ledger.Address
	address.Address[0] = n
	return address
}

func Amount(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

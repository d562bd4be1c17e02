package ledger

import (
	"fmt"

	"github.com/holiman/uint256"
)

func ParseAmount(s string) (*uint256.Int, error) {
	amount, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}

	return amount, nil
}

// Mul returns x*y, failing with ErrOverflow instead of wrapping around.
func Mul(x, y *uint256.Int) (*uint256.Int, error) {
	result, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}

	return result, nil
}

func Add(x, y *uint256.Int) (*uint256.Int, error) {
	result, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}

	return result, nil
}

// Sub returns x-y, failing with ErrInsufficientBalance when y > x.
func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	result, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrInsufficientBalance
	}

	return result, nil
}

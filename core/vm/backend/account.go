// Package backend implements a minimal in-memory Handler: the reference
// world-state a host needs to drive core/vm.Driver without a real
// database, trie, or network behind it.
package backend

import (
	"github.com/holiman/uint256"

	"github.com/loriopatrick/evm/core/types"
)

// Account is one entry of the in-memory state map: balance, nonce,
// storage, and code, exactly the fields spec.md's memory backend names.
type Account struct {
	Nonce   uint64
	Balance *uint256.Int
	Storage map[types.Hash]types.Hash
	Code    []byte
}

// NewAccount returns a zeroed account ready for use.
func NewAccount() *Account {
	return &Account{
		Balance: new(uint256.Int),
		Storage: make(map[types.Hash]types.Hash),
	}
}

// isEmpty reports the EIP-161 emptiness test: zero nonce, zero balance, no
// code. The Backend never prunes accounts that pass it.
func (a *Account) isEmpty() bool {
	return a.Nonce == 0 && a.Balance.IsZero() && len(a.Code) == 0
}


package backend

import (
	"github.com/holiman/uint256"

	"github.com/loriopatrick/evm/core/types"
)

// Environment is the immutable per-transaction context a Backend exposes
// through the Handler's query methods: nothing in it changes while a
// transaction runs, unlike Accounts and logs.
type Environment struct {
	GasPrice    *uint256.Int
	Origin      types.Address
	ChainID     *uint256.Int
	Coinbase    types.Address
	Number      uint64
	Timestamp   uint64
	Difficulty  *uint256.Int
	GasLimit    uint64

	// blockHashes is a 256-slot ring of block hashes; the hash of block n
	// is stored at index n%256. BlockHash returns zero outside
	// [Number-256, Number).
	blockHashes [256]types.Hash
}

// NewEnvironment returns an Environment with sane zero defaults; callers
// fill in the fields that matter for their fixture.
func NewEnvironment() *Environment {
	return &Environment{
		GasPrice:   new(uint256.Int),
		ChainID:    new(uint256.Int),
		Difficulty: new(uint256.Int),
	}
}

// SetBlockHash records the hash of block number n, evicting whatever
// previously occupied that slot in the 256-entry ring.
func (e *Environment) SetBlockHash(n uint64, h types.Hash) {
	e.blockHashes[n%256] = h
}

// BlockHash returns the recorded hash for n if it falls within the last
// 256 blocks before Number, else the zero hash.
func (e *Environment) BlockHash(n uint64) types.Hash {
	if n >= e.Number || e.Number-n > 256 {
		return types.Hash{}
	}
	return e.blockHashes[n%256]
}

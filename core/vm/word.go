package vm

import (
	"github.com/holiman/uint256"

	"github.com/loriopatrick/evm/core/types"
)

// Word is the EVM's 256-bit machine word. Arithmetic wraps modulo 2^256;
// signed opcodes reinterpret the same bits as two's-complement.
//
// uint256.Int already implements exactly this representation (four
// little-endian uint64 limbs) and ships the wrapping/modular/shift
// primitives the opcode table needs, so Word is a plain alias rather than
// a wrapper: every EVM fork built on this library uses it the same way.
type Word = uint256.Int

// NewWord returns the zero word.
func NewWord() *Word {
	return new(uint256.Int)
}

// WordFromUint64 returns a word holding the given small value.
func WordFromUint64(v uint64) *Word {
	return new(uint256.Int).SetUint64(v)
}

// WordFromHash reinterprets a big-endian 32-byte Hash as a word.
func WordFromHash(h types.Hash) *Word {
	return new(uint256.Int).SetBytes32(h[:])
}

// WordToHash renders a word as a big-endian 32-byte Hash.
func WordToHash(w *Word) types.Hash {
	return types.Hash(w.Bytes32())
}

// WordToAddress truncates a word to its low 20 bytes, the representation
// used whenever a word is popped from the stack to be read as an address.
func WordToAddress(w *Word) types.Address {
	b := w.Bytes32()
	return types.BytesToAddress(b[12:])
}

// AddressToWord left-pads an address into a word (high 12 bytes zero).
func AddressToWord(a types.Address) *Word {
	return new(uint256.Int).SetBytes(a[:])
}

package vm

import "github.com/loriopatrick/evm/core/types"

// Context carries the values a running frame observes about itself: who
// it is, who called it, what value it believes it was sent, and whether
// it is forbidden from mutating state. The first three differ across the
// four CALL-family schemes (see CallScheme); IsStatic is carried here
// (rather than tracked separately by the Handler) so PreValidate can veto
// a write with nothing more than the Context it is already given.
type Context struct {
	Address       types.Address
	Caller        types.Address
	ApparentValue *Word
	IsStatic      bool
}

// CallScheme distinguishes the four call-opcode variants. It controls
// which Context the nested frame observes and whether a value transfer
// accompanies the call (spec.md §4.4).
type CallScheme int

const (
	CallSchemeCall CallScheme = iota
	CallSchemeCallCode
	CallSchemeDelegateCall
	CallSchemeStaticCall
)

func (s CallScheme) String() string {
	switch s {
	case CallSchemeCall:
		return "CALL"
	case CallSchemeCallCode:
		return "CALLCODE"
	case CallSchemeDelegateCall:
		return "DELEGATECALL"
	case CallSchemeStaticCall:
		return "STATICCALL"
	default:
		return "UNKNOWN"
	}
}

// CreateScheme distinguishes CREATE (nonce-derived address) from CREATE2
// (salt-derived address).
type CreateScheme struct {
	IsCreate2 bool
	Salt      types.Hash // meaningful only when IsCreate2
}

// Transfer describes a value movement accompanying a call or create.
type Transfer struct {
	Source types.Address
	Target types.Address
	Value  *Word
}

package vm

import "github.com/loriopatrick/evm/core/types"

// Handler is the interpreter's sole outward interface. The Machine never
// touches world state directly; every external opcode (see instructions
// not present in pureOps) is dispatched through one of these methods by
// the Runtime.
//
// Query and mutation methods are synchronous from the interpreter's point
// of view even though an implementation backed by remote storage may
// suspend internally — the frame is logically frozen between the point
// an external opcode pops its arguments and the point the result is
// pushed, so nothing in the Machine observes a partial Handler call.
type Handler interface {
	Balance(addr types.Address) *Word
	CodeSize(addr types.Address) uint64
	CodeHash(addr types.Address) types.Hash
	Code(addr types.Address) []byte
	Storage(addr types.Address, index types.Hash) types.Hash
	OriginalStorage(addr types.Address, index types.Hash) types.Hash

	GasLeft() uint64
	GasPrice() *Word
	Origin() types.Address
	BlockHash(number uint64) types.Hash
	BlockNumber() uint64
	BlockCoinbase() types.Address
	BlockTimestamp() uint64
	BlockDifficulty() *Word
	BlockGasLimit() uint64
	ChainID() *Word

	Exists(addr types.Address) bool
	Deleted(addr types.Address) bool

	// SetStorage, Log, and MarkDelete report failures as ExitError, which
	// the Runtime converts directly into the current frame's exit reason.
	SetStorage(addr types.Address, index types.Hash, value types.Hash) ExitError
	Log(addr types.Address, topics []types.Hash, data []byte) ExitError
	MarkDelete(addr, target types.Address) ExitError

	// Create and Call either resolve synchronously (CreateCapture.Result /
	// CallCapture.Result set) or trap, suspending the current frame so the
	// host can run the nested frame and hand the outcome back through
	// CreateFeedback/CallFeedback.
	Create(caller types.Address, scheme CreateScheme, value *Word, initCode []byte, gasCap uint64) CreateCapture
	Call(codeAddress types.Address, transfer *Transfer, input []byte, gasCap uint64, isStatic bool, ctx Context) CallCapture
	CreateFeedback(f CreateFeedback)
	CallFeedback(f CallFeedback)

	// PreValidate runs before every opcode (pure and external alike) and
	// may veto based on stack depth, static-call writes, or any other
	// host-defined policy.
	PreValidate(ctx Context, op OpCode, stack *Stack) ExitError

	// Other handles any opcode byte with no entry in the pure table and no
	// dedicated external case in the Runtime's dispatch.
	Other(opcode byte, m *Machine) ExitReason
}

// CreateResult is the synchronous outcome of a completed Create.
type CreateResult struct {
	Exit    ExitReason
	Address types.Address // meaningful only when Exit is ExitSucceed
	Output  []byte
}

// CreateInterrupt is the payload of a suspended Create: the host must run
// the nested init-code frame and resume via Handler.CreateFeedback.
//
// Address is decided by the Handler before it traps, not by the driver:
// only the Handler's backend knows the deployer's current nonce (for
// CREATE) or can hash init_code (for CREATE2), so address derivation
// stays a Handler-side concern even though the nested frame is run by
// whatever drives the interrupt.
type CreateInterrupt struct {
	Caller   types.Address
	Scheme   CreateScheme
	Value    *Word
	InitCode []byte
	GasCap   uint64
	Address  types.Address
}

// CreateCapture is the two-variant Capture<CreateResult, CreateInterrupt>:
// exactly one of Result or Interrupt is non-nil.
type CreateCapture struct {
	Result    *CreateResult
	Interrupt *CreateInterrupt
}

// Trapped reports whether the call suspended rather than resolving.
func (c CreateCapture) Trapped() bool { return c.Interrupt != nil }

// CreateFeedback delivers a resolved nested-create outcome back to a
// suspended frame.
type CreateFeedback struct {
	Result CreateResult
}

// CallResult is the synchronous outcome of a completed Call.
type CallResult struct {
	Exit   ExitReason
	Output []byte
}

// CallInterrupt is the payload of a suspended Call.
type CallInterrupt struct {
	CodeAddress types.Address
	Transfer    *Transfer
	Input       []byte
	GasCap      uint64
	IsStatic    bool
	Context     Context
}

// CallCapture is the two-variant Capture<CallResult, CallInterrupt>.
type CallCapture struct {
	Result    *CallResult
	Interrupt *CallInterrupt
}

// Trapped reports whether the call suspended rather than resolving.
func (c CallCapture) Trapped() bool { return c.Interrupt != nil }

// CallFeedback delivers a resolved nested-call outcome back to a
// suspended frame.
type CallFeedback struct {
	Result CallResult
}

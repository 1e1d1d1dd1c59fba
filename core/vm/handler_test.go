package vm

import "github.com/loriopatrick/evm/core/types"

// fakeHandler is a minimal in-memory Handler used only by this package's
// own tests, independent of core/vm/backend, so these tests never need
// that package's real address-derivation/balance-transfer logic.
type fakeHandler struct {
	balances map[types.Address]*Word
	code     map[types.Address][]byte
	storage  map[types.Address]map[types.Hash]types.Hash
	deleted  map[types.Address]bool
	logs     []fakeLog

	blockNumber uint64

	// nextCreateAddr is returned by Create for every CREATE in these
	// tests; address derivation itself is core/vm/backend's job, not
	// something core/vm's own tests need to exercise.
	nextCreateAddr types.Address
}

type fakeLog struct {
	addr   types.Address
	topics []types.Hash
	data   []byte
}

func newFakeHandler() *fakeHandler {
	return &fakeHandler{
		balances: make(map[types.Address]*Word),
		code:     make(map[types.Address][]byte),
		storage:  make(map[types.Address]map[types.Hash]types.Hash),
		deleted:  make(map[types.Address]bool),
	}
}

func (h *fakeHandler) Balance(addr types.Address) *Word {
	if b, ok := h.balances[addr]; ok {
		return b
	}
	return NewWord()
}
func (h *fakeHandler) CodeSize(addr types.Address) uint64     { return uint64(len(h.code[addr])) }
func (h *fakeHandler) CodeHash(addr types.Address) types.Hash { return types.Hash{} }
func (h *fakeHandler) Code(addr types.Address) []byte         { return h.code[addr] }
func (h *fakeHandler) Storage(addr types.Address, index types.Hash) types.Hash {
	if m, ok := h.storage[addr]; ok {
		return m[index]
	}
	return types.Hash{}
}
func (h *fakeHandler) OriginalStorage(addr types.Address, index types.Hash) types.Hash {
	return h.Storage(addr, index)
}
func (h *fakeHandler) GasLeft() uint64             { return ^uint64(0) }
func (h *fakeHandler) GasPrice() *Word             { return NewWord() }
func (h *fakeHandler) Origin() types.Address       { return types.Address{} }
func (h *fakeHandler) BlockHash(n uint64) types.Hash { return types.Hash{} }
func (h *fakeHandler) BlockNumber() uint64         { return h.blockNumber }
func (h *fakeHandler) BlockCoinbase() types.Address { return types.Address{} }
func (h *fakeHandler) BlockTimestamp() uint64      { return 0 }
func (h *fakeHandler) BlockDifficulty() *Word      { return NewWord() }
func (h *fakeHandler) BlockGasLimit() uint64       { return 0 }
func (h *fakeHandler) ChainID() *Word              { return NewWord() }
func (h *fakeHandler) Exists(addr types.Address) bool {
	_, ok := h.code[addr]
	return ok
}
func (h *fakeHandler) Deleted(addr types.Address) bool { return h.deleted[addr] }

func (h *fakeHandler) SetStorage(addr types.Address, index, value types.Hash) ExitError {
	if h.storage[addr] == nil {
		h.storage[addr] = make(map[types.Hash]types.Hash)
	}
	h.storage[addr][index] = value
	return noError
}
func (h *fakeHandler) Log(addr types.Address, topics []types.Hash, data []byte) ExitError {
	h.logs = append(h.logs, fakeLog{addr, topics, data})
	return noError
}
func (h *fakeHandler) MarkDelete(addr, target types.Address) ExitError {
	h.deleted[addr] = true
	return noError
}

func (h *fakeHandler) Create(caller types.Address, scheme CreateScheme, value *Word, initCode []byte, gasCap uint64) CreateCapture {
	return CreateCapture{Interrupt: &CreateInterrupt{
		Caller: caller, Scheme: scheme, Value: value, InitCode: initCode, GasCap: gasCap, Address: h.nextCreateAddr,
	}}
}
func (h *fakeHandler) Call(codeAddress types.Address, transfer *Transfer, input []byte, gasCap uint64, isStatic bool, ctx Context) CallCapture {
	return CallCapture{Interrupt: &CallInterrupt{
		CodeAddress: codeAddress, Transfer: transfer, Input: input, GasCap: gasCap, IsStatic: isStatic, Context: ctx,
	}}
}
func (h *fakeHandler) CreateFeedback(f CreateFeedback) {
	if IsSucceed(f.Result.Exit) {
		h.code[f.Result.Address] = f.Result.Output
	}
}
func (h *fakeHandler) CallFeedback(f CallFeedback) {}

func (h *fakeHandler) PreValidate(ctx Context, op OpCode, stack *Stack) ExitError {
	if !ctx.IsStatic {
		return noError
	}
	switch op {
	case SSTORE, LOG0, LOG1, LOG2, LOG3, LOG4, CREATE, CREATE2, SELFDESTRUCT:
		return ErrOther("static call may not modify state")
	}
	return noError
}

func (h *fakeHandler) Other(opcode byte, m *Machine) ExitReason { return ErrDesignatedInvalid }

package backend

import (
	"encoding/binary"

	"github.com/holiman/uint256"

	"github.com/loriopatrick/evm/core/types"
	"github.com/loriopatrick/evm/core/vm"
	"github.com/loriopatrick/evm/crypto"
	"github.com/loriopatrick/evm/log"
)

// Backend is the reference in-memory Handler: a map of accounts, a log
// slice, and an immutable Environment, exactly the minimal world state
// spec.md describes for exercising the Driver without a real database.
type Backend struct {
	accounts map[types.Address]*Account
	deleted  map[types.Address]bool
	logs     []types.Log

	env *Environment
	log *log.Logger
}

// New returns an empty Backend over the given environment.
func New(env *Environment) *Backend {
	return &Backend{
		accounts: make(map[types.Address]*Account),
		deleted:  make(map[types.Address]bool),
		env:      env,
		log:      log.Default().Module("backend"),
	}
}

// SetAccount installs or replaces an account, for fixture setup.
func (b *Backend) SetAccount(addr types.Address, a *Account) {
	b.accounts[addr] = a
}

// Account returns the account at addr, or nil if none exists.
func (b *Backend) Account(addr types.Address) *Account {
	return b.accounts[addr]
}

// Logs returns every log emitted so far, in emission order.
func (b *Backend) Logs() []types.Log {
	return b.logs
}

func (b *Backend) getOrCreate(addr types.Address) *Account {
	a, ok := b.accounts[addr]
	if !ok {
		a = NewAccount()
		b.accounts[addr] = a
	}
	return a
}

// --- Handler: query operations -------------------------------------------

func (b *Backend) Balance(addr types.Address) *vm.Word {
	if a := b.accounts[addr]; a != nil {
		return new(uint256.Int).Set(a.Balance)
	}
	return new(uint256.Int)
}

func (b *Backend) CodeSize(addr types.Address) uint64 {
	if a := b.accounts[addr]; a != nil {
		return uint64(len(a.Code))
	}
	return 0
}

func (b *Backend) CodeHash(addr types.Address) types.Hash {
	a := b.accounts[addr]
	if a == nil || len(a.Code) == 0 {
		return types.EmptyCodeHash
	}
	return crypto.Keccak256Hash(a.Code)
}

func (b *Backend) Code(addr types.Address) []byte {
	if a := b.accounts[addr]; a != nil {
		return a.Code
	}
	return nil
}

func (b *Backend) Storage(addr types.Address, index types.Hash) types.Hash {
	if a := b.accounts[addr]; a != nil {
		return a.Storage[index]
	}
	return types.Hash{}
}

// OriginalStorage returns the same live value as Storage: this reference
// Backend keeps no pre-call snapshot, since the only consumer of the
// distinction (SSTORE gas refunds) is out of scope here.
func (b *Backend) OriginalStorage(addr types.Address, index types.Hash) types.Hash {
	return b.Storage(addr, index)
}

// GasLeft always reports an effectively unlimited budget: gas accounting
// is a Non-goal, so nothing in this package ever decrements it.
func (b *Backend) GasLeft() uint64 { return ^uint64(0) }

func (b *Backend) GasPrice() *vm.Word { return new(uint256.Int).Set(b.env.GasPrice) }
func (b *Backend) Origin() types.Address { return b.env.Origin }
func (b *Backend) BlockHash(number uint64) types.Hash { return b.env.BlockHash(number) }
func (b *Backend) BlockNumber() uint64 { return b.env.Number }
func (b *Backend) BlockCoinbase() types.Address { return b.env.Coinbase }
func (b *Backend) BlockTimestamp() uint64 { return b.env.Timestamp }
func (b *Backend) BlockDifficulty() *vm.Word { return new(uint256.Int).Set(b.env.Difficulty) }
func (b *Backend) BlockGasLimit() uint64 { return b.env.GasLimit }
func (b *Backend) ChainID() *vm.Word { return new(uint256.Int).Set(b.env.ChainID) }

func (b *Backend) Exists(addr types.Address) bool {
	_, ok := b.accounts[addr]
	return ok
}

func (b *Backend) Deleted(addr types.Address) bool {
	return b.deleted[addr]
}

// --- Handler: mutation operations -----------------------------------------

// SetStorage writes value at index, deleting the slot entirely when value
// is the zero word (spec.md's apply/fold rule for storage writes).
func (b *Backend) SetStorage(addr types.Address, index, value types.Hash) vm.ExitError {
	a := b.getOrCreate(addr)
	if value.IsZero() {
		delete(a.Storage, index)
		return ""
	}
	a.Storage[index] = value
	return ""
}

func (b *Backend) Log(addr types.Address, topics []types.Hash, data []byte) vm.ExitError {
	b.logs = append(b.logs, types.Log{
		Address:     addr,
		Topics:      topics,
		Data:        data,
		BlockNumber: b.env.Number,
	})
	return ""
}

// MarkDelete transfers addr's entire balance to target and marks addr
// deleted. Whether SELFDESTRUCT-to-self zeroes the balance is left to the
// caller: when addr == target the transfer is a no-op by construction
// (subtracting and re-adding the same balance), matching one reasonable
// reading of that hard-fork-dependent behavior (spec.md §4's open question).
func (b *Backend) MarkDelete(addr, target types.Address) vm.ExitError {
	a := b.getOrCreate(addr)
	dest := b.getOrCreate(target)
	amount := new(uint256.Int).Set(a.Balance)
	a.Balance.Clear()
	dest.Balance.Add(dest.Balance, amount)
	b.deleted[addr] = true
	return ""
}

// --- Handler: control operations -------------------------------------------

func (b *Backend) Create(caller types.Address, scheme vm.CreateScheme, value *vm.Word, initCode []byte, gasCap uint64) vm.CreateCapture {
	callerAcct := b.getOrCreate(caller)
	if callerAcct.Balance.Lt(value) {
		return vm.CreateCapture{Result: &vm.CreateResult{Exit: vm.ErrOutOfFund}}
	}

	var addr types.Address
	if scheme.IsCreate2 {
		addr = create2Address(caller, scheme.Salt, initCode)
	} else {
		addr = createAddress(caller, callerAcct.Nonce)
	}
	if existing := b.accounts[addr]; existing != nil && (existing.Nonce != 0 || len(existing.Code) != 0) {
		return vm.CreateCapture{Result: &vm.CreateResult{Exit: vm.ErrCreateCollision}}
	}

	callerAcct.Nonce++
	callerAcct.Balance.Sub(callerAcct.Balance, value)
	dest := b.getOrCreate(addr)
	dest.Balance.Add(dest.Balance, value)
	dest.Nonce = 1

	b.log.Debug("create", "address", addr.Hex(), "caller", caller.Hex())
	return vm.CreateCapture{Interrupt: &vm.CreateInterrupt{
		Caller:   caller,
		Scheme:   scheme,
		Value:    value,
		InitCode: initCode,
		GasCap:   gasCap,
		Address:  addr,
	}}
}

func (b *Backend) Call(codeAddress types.Address, transfer *vm.Transfer, input []byte, gasCap uint64, isStatic bool, ctx vm.Context) vm.CallCapture {
	if transfer != nil {
		source := b.getOrCreate(transfer.Source)
		if source.Balance.Lt(transfer.Value) {
			return vm.CallCapture{Result: &vm.CallResult{Exit: vm.ErrOutOfFund}}
		}
		dest := b.getOrCreate(transfer.Target)
		source.Balance.Sub(source.Balance, transfer.Value)
		dest.Balance.Add(dest.Balance, transfer.Value)
	}
	return vm.CallCapture{Interrupt: &vm.CallInterrupt{
		CodeAddress: codeAddress,
		Transfer:    transfer,
		Input:       input,
		GasCap:      gasCap,
		IsStatic:    isStatic,
		Context:     ctx,
	}}
}

func (b *Backend) CreateFeedback(fb vm.CreateFeedback) {
	if !vm.IsSucceed(fb.Result.Exit) {
		return
	}
	b.getOrCreate(fb.Result.Address).Code = fb.Result.Output
}

func (b *Backend) CallFeedback(fb vm.CallFeedback) {
	b.log.Debug("call resolved", "exit", fb.Result.Exit.String())
}

// PreValidate vetoes the write opcodes a STATICCALL descendant attempts:
// SSTORE, LOG*, CREATE*, SELFDESTRUCT, and a value-bearing CALL.
func (b *Backend) PreValidate(ctx vm.Context, op vm.OpCode, stack *vm.Stack) vm.ExitError {
	if !ctx.IsStatic {
		return ""
	}
	switch op {
	case vm.SSTORE, vm.LOG0, vm.LOG1, vm.LOG2, vm.LOG3, vm.LOG4,
		vm.CREATE, vm.CREATE2, vm.SELFDESTRUCT:
		return vm.ErrOther("static call may not modify state")
	case vm.CALL:
		if v, err := stack.Peek(2); err == "" && !v.IsZero() {
			return vm.ErrOther("static call may not transfer value")
		}
	}
	return ""
}

// Other handles opcodes with no core/vm dispatch case: the post-merge/
// EOF additions (BASEFEE, BLOBHASH, BLOBBASEFEE, TLOAD, TSTORE, MCOPY) and
// any genuinely unassigned byte. This reference backend treats all of
// them as designated-invalid; a real client would give each its own
// semantics.
func (b *Backend) Other(opcode byte, m *vm.Machine) vm.ExitReason {
	return vm.ErrDesignatedInvalid
}

// createAddress derives a CREATE address as keccak256(rlp([sender,
// nonce]))[12:], spec.md's literal formula. Only this one RLP shape is
// implemented — a general encoder is out of scope.
func createAddress(sender types.Address, nonce uint64) types.Address {
	encoded := rlpList(rlpBytes(sender.Bytes()), rlpUint64(nonce))
	return types.BytesToAddress(crypto.Keccak256(encoded)[12:])
}

// create2Address derives a CREATE2 address as keccak256(0xff ++ sender ++
// salt ++ keccak256(init_code))[12:].
func create2Address(sender types.Address, salt types.Hash, initCode []byte) types.Address {
	initHash := crypto.Keccak256(initCode)
	buf := make([]byte, 0, 1+20+32+32)
	buf = append(buf, 0xff)
	buf = append(buf, sender.Bytes()...)
	buf = append(buf, salt.Bytes()...)
	buf = append(buf, initHash...)
	return types.BytesToAddress(crypto.Keccak256(buf)[12:])
}

func rlpBytes(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return b
	}
	return append(rlpLengthPrefix(0x80, len(b)), b...)
}

func rlpUint64(v uint64) []byte {
	if v == 0 {
		return []byte{0x80}
	}
	return rlpBytes(trimLeadingZeros(v))
}

func rlpList(items ...[]byte) []byte {
	var payload []byte
	for _, it := range items {
		payload = append(payload, it...)
	}
	return append(rlpLengthPrefix(0xc0, len(payload)), payload...)
}

func rlpLengthPrefix(base byte, n int) []byte {
	if n < 56 {
		return []byte{base + byte(n)}
	}
	lenBytes := trimLeadingZeros(uint64(n))
	return append([]byte{base + 55 + byte(len(lenBytes))}, lenBytes...)
}

func trimLeadingZeros(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	i := 0
	for i < 7 && buf[i] == 0 {
		i++
	}
	return buf[i:]
}

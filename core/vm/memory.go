package vm

// Memory is the Machine's byte-addressable scratch space: zero-initialized,
// grows monotonically within a frame, and is never shrunk once grown.
//
// Two sizes matter: the "effective length" (highest byte ever touched,
// rounded up to a 32-byte word — what MSIZE reports) and an optional
// "limit", a per-frame cap an implementation may configure; exceeding it
// is a Fatal::NotSupported, not a recoverable Error.
type Memory struct {
	store []byte
	limit uint64 // 0 means unlimited
}

// NewMemory returns an empty Memory with no cap.
func NewMemory() *Memory {
	return &Memory{}
}

// NewMemoryWithLimit returns an empty Memory capped at limit bytes.
func NewMemoryWithLimit(limit uint64) *Memory {
	return &Memory{limit: limit}
}

// Len returns the effective length in bytes (always a multiple of 32).
func (m *Memory) Len() uint64 {
	return uint64(len(m.store))
}

// Data returns the full backing slice. Callers must not retain it past the
// next mutating call.
func (m *Memory) Data() []byte {
	return m.store
}

// resizeOffset expands memory to cover [off, off+size), a no-op when size
// is 0. Fails with FatalNotSupported when off+size overflows or exceeds
// the configured limit.
func (m *Memory) resizeOffset(off, size uint64) ExitReason {
	if size == 0 {
		return nil
	}
	end := off + size
	if end < off {
		return FatalNotSupported // overflow
	}
	if m.limit != 0 && end > m.limit {
		return FatalNotSupported
	}
	return m.resize(end)
}

// resize grows memory to cover at least newSize bytes, rounded up to the
// next 32-byte word.
func (m *Memory) resize(newSize uint64) ExitReason {
	if newSize <= uint64(len(m.store)) {
		return nil
	}
	words := (newSize + 31) / 32
	target := words * 32
	grown := make([]byte, target-uint64(len(m.store)))
	m.store = append(m.store, grown...)
	return nil
}

// get returns `size` bytes starting at `off`, zero-padding reads that run
// past the effective length. Callers must resize first if they intend to
// write; get is read-only and never grows memory.
func (m *Memory) get(off, size uint64) []byte {
	out := make([]byte, size)
	if off >= uint64(len(m.store)) || size == 0 {
		return out
	}
	end := off + size
	if end > uint64(len(m.store)) {
		end = uint64(len(m.store))
	}
	copy(out, m.store[off:end])
	return out
}

// set writes exactly targetLen bytes at off, zero-padding value on the
// right if it is shorter than targetLen. It never expands memory — callers
// must resizeOffset first.
func (m *Memory) set(off uint64, value []byte, targetLen uint64) {
	if targetLen == 0 {
		return
	}
	n := uint64(len(value))
	if n > targetLen {
		n = targetLen
	}
	copy(m.store[off:off+n], value[:n])
	for i := n; i < targetLen; i++ {
		m.store[off+i] = 0
	}
}

// copyLarge copies len bytes from src[srcOff:] into m[dst:], zero-filling
// whatever part of the destination window falls past the end of src. It is
// the shared primitive behind CODECOPY, CALLDATACOPY, EXTCODECOPY, and
// RETURNDATACOPY; only RETURNDATACOPY additionally enforces the strict
// srcOff+len <= len(src) bound before calling in (see runtime.go).
func (m *Memory) copyLarge(dst, srcOff, length uint64, src []byte) {
	if length == 0 {
		return
	}
	var window []byte
	if srcOff < uint64(len(src)) {
		end := srcOff + length
		if end > uint64(len(src)) {
			end = uint64(len(src))
		}
		window = src[srcOff:end]
	}
	m.set(dst, window, length)
}

// Package regfile is the reference bitlayer.RegisterProtocol: a fixed-size
// byte array claiming one 7-bit address, with out-of-range accesses handled
// non-fatally as the interface contract requires.
package regfile

import "sync"

// File is a bounds-checked register file claiming a single I²C address.
// It is safe for concurrent use; the engine only ever accesses it from its
// own goroutine, but callers (a CLI dump command, a test) may read it from
// elsewhere at the same time.
type File struct {
	mu   sync.Mutex
	addr uint8
	regs []byte
}

// New allocates a File of n registers, all initialized to zero, claiming
// addr. addr must be a valid, non-reserved 7-bit address; New does not
// re-validate it — callers are expected to have already run it through
// cmd/i2cslave's isValidSlaveAddress or an equivalent check.
func New(addr uint8, n int) *File {
	return &File{addr: addr, regs: make([]byte, n)}
}

// CheckAddress implements bitlayer.RegisterProtocol. 0x00 (the general call
// address) never matches, even if the file was misconfigured with addr 0.
func (f *File) CheckAddress(address uint8) bool {
	if address == 0x00 {
		return false
	}
	return address == f.addr
}

// SetRegister implements bitlayer.RegisterProtocol. An out-of-range index
// is silently dropped: a master writing past the end of the file is a
// master bug, not something worth crashing the slave over.
func (f *File) SetRegister(index int, b byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index >= 0 && index < len(f.regs) {
		f.regs[index] = b
	}
}

// GetRegister implements bitlayer.RegisterProtocol, returning 0 for an
// out-of-range index.
func (f *File) GetRegister(index int) byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index >= 0 && index < len(f.regs) {
		return f.regs[index]
	}
	return 0
}

// Len returns the number of addressable registers.
func (f *File) Len() int {
	return len(f.regs)
}

// Snapshot returns a copy of the current register contents, for
// introspection (e.g. a CLI dump command) without racing the engine.
func (f *File) Snapshot() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]byte, len(f.regs))
	copy(out, f.regs)
	return out
}

// Set overwrites register index directly, bypassing the bus — used to seed
// initial values before the engine starts.
func (f *File) Set(index int, b byte) {
	f.SetRegister(index, b)
}

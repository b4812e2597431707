package bitlayer

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeWire models one open-drain line shared by any number of named
// drivers: the line reads low if any driver asserts low, high otherwise —
// standing in for the external pull-up resistor. This is the in-memory
// stand-in this package's tests use instead of real hardware, in the same
// spirit as gpioioctl's dummy chip for non-Linux test runs.
type fakeWire struct {
	mu      sync.Mutex
	drivers map[string]bool
}

func newFakeWire() *fakeWire {
	return &fakeWire{drivers: map[string]bool{}}
}

func (w *fakeWire) setLow(driver string, low bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if low {
		w.drivers[driver] = true
	} else {
		delete(w.drivers, driver)
	}
}

func (w *fakeWire) level() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.drivers) > 0 {
		return 0
	}
	return 1
}

// fakePin is the Engine-facing side of a fakeWire.
type fakePin struct {
	wire   *fakeWire
	driver string
	name   string
}

func (p *fakePin) SetInput() error     { return nil }
func (p *fakePin) SetOutputLow() error { p.wire.setLow(p.driver, true); return nil }
func (p *fakePin) Release() error      { p.wire.setLow(p.driver, false); return nil }
func (p *fakePin) Read() int           { return p.wire.level() }
func (p *fakePin) Name() string        { return p.name }

// step gives the busy-polling observers a generous number of scheduler
// quanta to notice a level change before the simulated master moves on.
const step = 2 * time.Millisecond

// masterSim drives the two wires as an I²C bus master would, one step at a
// time, leaving every phase transition long enough for the engine's
// Pin Observers to catch up.
type masterSim struct {
	sda, scl *fakeWire
}

func newMasterSim(sda, scl *fakeWire) *masterSim {
	return &masterSim{sda: sda, scl: scl}
}

func (m *masterSim) sdaLow()     { m.sda.setLow("master", true); time.Sleep(step) }
func (m *masterSim) sdaRelease() { m.sda.setLow("master", false); time.Sleep(step) }
func (m *masterSim) sclLow()     { m.scl.setLow("master", true); time.Sleep(step) }
func (m *masterSim) sclHigh()    { m.scl.setLow("master", false); time.Sleep(step) }

func (m *masterSim) start() {
	m.sdaRelease()
	m.sclHigh()
	m.sdaLow()
}

func (m *masterSim) repeatedStart() {
	m.sclLow()
	m.sdaRelease()
	m.sclHigh()
	m.sdaLow()
}

func (m *masterSim) stop() {
	m.sclLow()
	m.sdaLow()
	m.sclHigh()
	m.sdaRelease()
}

// writeByteToSlave clocks b out MSB-first and returns whether the slave
// acknowledged.
func (m *masterSim) writeByteToSlave(b byte) bool {
	for i := 7; i >= 0; i-- {
		m.sclLow()
		if (b>>uint(i))&1 == 0 {
			m.sdaLow()
		} else {
			m.sdaRelease()
		}
		m.sclHigh()
	}
	m.sclLow()
	m.sdaRelease()
	m.sclHigh()
	ack := m.sda.level() == 0
	m.sclLow()
	return ack
}

// readByteFromSlave clocks one byte in from the slave and drives the given
// ack bit back (ack=true keeps the transaction going, ack=false = NACK).
func (m *masterSim) readByteFromSlave(ack bool) byte {
	var b byte
	for i := 0; i < 8; i++ {
		m.sclLow()
		m.sclHigh()
		b = (b << 1) | byte(m.sda.level())
	}
	m.sclLow()
	if ack {
		m.sdaLow()
	} else {
		m.sdaRelease()
	}
	m.sclHigh()
	m.sclLow()
	m.sdaRelease()
	return b
}

func (m *masterSim) sendAddress(addr uint8, write bool) bool {
	rw := byte(1)
	if write {
		rw = 0
	}
	return m.writeByteToSlave((addr << 1) | rw)
}

// fakeRegisters is a minimal bounds-checked RegisterProtocol for tests.
type fakeRegisters struct {
	mu   sync.Mutex
	addr uint8
	regs []byte
}

func newFakeRegisters(addr uint8, n int) *fakeRegisters {
	return &fakeRegisters{addr: addr, regs: make([]byte, n)}
}

func (f *fakeRegisters) CheckAddress(address uint8) bool { return address == f.addr }

func (f *fakeRegisters) SetRegister(index int, b byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index >= 0 && index < len(f.regs) {
		f.regs[index] = b
	}
}

func (f *fakeRegisters) GetRegister(index int) byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index >= 0 && index < len(f.regs) {
		return f.regs[index]
	}
	return 0
}

func (f *fakeRegisters) snapshot() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]byte, len(f.regs))
	copy(out, f.regs)
	return out
}

type testRig struct {
	sdaWire, sclWire *fakeWire
	master           *masterSim
	regs             *fakeRegisters
	cancel           context.CancelFunc
}

func newTestRig(t *testing.T, addr uint8, nregs int) *testRig {
	t.Helper()
	sdaWire, sclWire := newFakeWire(), newFakeWire()
	regs := newFakeRegisters(addr, nregs)
	engine := New(Config{
		RegisterProtocol: regs,
		SDA:              &fakePin{wire: sdaWire, driver: "engine", name: "SDA"},
		SCL:              &fakePin{wire: sclWire, driver: "engine", name: "SCL"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		engine.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	})

	return &testRig{
		sdaWire: sdaWire,
		sclWire: sclWire,
		master:  newMasterSim(sdaWire, sclWire),
		regs:    regs,
		cancel:  cancel,
	}
}

func TestEngineWriteThenReadSingleByte(t *testing.T) {
	rig := newTestRig(t, 0x42, 8)

	rig.master.start()
	if !rig.master.sendAddress(0x42, true) {
		t.Fatal("expected ACK on address write")
	}
	if !rig.master.writeByteToSlave(0x03) {
		t.Fatal("expected ACK on register pointer byte")
	}
	if !rig.master.writeByteToSlave(0xAB) {
		t.Fatal("expected ACK on data byte")
	}
	rig.master.stop()

	if got := rig.regs.snapshot()[3]; got != 0xAB {
		t.Fatalf("register 3 = %#02x, want 0xAB", got)
	}

	rig.master.start()
	if !rig.master.sendAddress(0x42, false) {
		t.Fatal("expected ACK on address read (defaults to register 0)")
	}
	b := rig.master.readByteFromSlave(false)
	rig.master.stop()
	if b != rig.regs.snapshot()[0] {
		t.Fatalf("read byte %#02x, want register 0 (%#02x)", b, rig.regs.snapshot()[0])
	}
}

func TestEngineSequentialWriteAutoIncrements(t *testing.T) {
	rig := newTestRig(t, 0x50, 4)

	rig.master.start()
	rig.master.sendAddress(0x50, true)
	rig.master.writeByteToSlave(0x00)
	rig.master.writeByteToSlave(0x11)
	rig.master.writeByteToSlave(0x22)
	rig.master.writeByteToSlave(0x33)
	rig.master.stop()

	got := rig.regs.snapshot()
	want := []byte{0x11, 0x22, 0x33, 0x00}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("register %d = %#02x, want %#02x", i, got[i], w)
		}
	}
}

func TestEngineRepeatedStartWriteThenRead(t *testing.T) {
	rig := newTestRig(t, 0x60, 4)
	rig.regs.SetRegister(2, 0x99)

	rig.master.start()
	rig.master.sendAddress(0x60, true)
	rig.master.writeByteToSlave(0x02)
	rig.master.repeatedStart()
	rig.master.sendAddress(0x60, false)
	b := rig.master.readByteFromSlave(false)
	rig.master.stop()

	if b != 0x99 {
		t.Fatalf("read %#02x via repeated start, want 0x99 (register 2 reused)", b)
	}
}

func TestEngineStopResetsRegisterPointer(t *testing.T) {
	rig := newTestRig(t, 0x10, 4)
	rig.regs.SetRegister(0, 0x5A)
	rig.regs.SetRegister(3, 0xC3)

	rig.master.start()
	rig.master.sendAddress(0x10, true)
	rig.master.writeByteToSlave(0x03)
	rig.master.stop()

	rig.master.start()
	if !rig.master.sendAddress(0x10, false) {
		t.Fatal("expected ACK on address read")
	}
	b := rig.master.readByteFromSlave(false)
	rig.master.stop()

	if b != rig.regs.snapshot()[0] {
		t.Fatalf("STOP should have reset the pointer to 0, read %#02x instead of register 0 (%#02x)", b, rig.regs.snapshot()[0])
	}
}

func TestEngineNackStopsMultiByteRead(t *testing.T) {
	rig := newTestRig(t, 0x20, 4)
	rig.regs.SetRegister(0, 0xAA)
	rig.regs.SetRegister(1, 0xBB)

	rig.master.start()
	rig.master.sendAddress(0x20, false)
	first := rig.master.readByteFromSlave(true)
	second := rig.master.readByteFromSlave(false)
	rig.master.stop()

	if first != 0xAA || second != 0xBB {
		t.Fatalf("got %#02x, %#02x, want 0xAA, 0xBB", first, second)
	}
}

func TestEngineAddressMismatchIsIgnored(t *testing.T) {
	rig := newTestRig(t, 0x30, 4)

	rig.master.start()
	if rig.master.sendAddress(0x31, true) {
		t.Fatal("expected no ACK for a mismatched address")
	}
	rig.master.stop()
}

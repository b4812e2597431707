package regfile

import "testing"

func TestCheckAddress(t *testing.T) {
	f := New(0x42, 4)
	if !f.CheckAddress(0x42) {
		t.Error("expected CheckAddress(0x42) to match")
	}
	if f.CheckAddress(0x43) {
		t.Error("expected CheckAddress(0x43) not to match")
	}
}

func TestCheckAddressRejectsGeneralCall(t *testing.T) {
	f := New(0x00, 4)
	if f.CheckAddress(0x00) {
		t.Error("0x00 must never match, even when misconfigured as the file's own address")
	}
}

func TestSetGetRegister(t *testing.T) {
	f := New(0x10, 4)
	f.SetRegister(0, 0xAB)
	f.SetRegister(3, 0xCD)
	if got := f.GetRegister(0); got != 0xAB {
		t.Errorf("GetRegister(0) = %#02x, want 0xAB", got)
	}
	if got := f.GetRegister(3); got != 0xCD {
		t.Errorf("GetRegister(3) = %#02x, want 0xCD", got)
	}
}

func TestOutOfRangeIsNonFatal(t *testing.T) {
	f := New(0x10, 4)
	f.SetRegister(-1, 0xFF)
	f.SetRegister(99, 0xFF)
	if got := f.GetRegister(-1); got != 0 {
		t.Errorf("GetRegister(-1) = %#02x, want 0", got)
	}
	if got := f.GetRegister(99); got != 0 {
		t.Errorf("GetRegister(99) = %#02x, want 0", got)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	f := New(0x10, 2)
	f.SetRegister(0, 0x11)
	snap := f.Snapshot()
	snap[0] = 0x22
	if got := f.GetRegister(0); got != 0x11 {
		t.Errorf("Snapshot mutation leaked into File: GetRegister(0) = %#02x, want 0x11", got)
	}
}

// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ftdi exposes two CBUS pins of a FT232R/FT232H as
// periph.io/x/conn/v3/gpio.PinIO, using the chip's asynchronous CBUS bitbang
// mode. It serves as a GPIO backend for the i2c-emulation engine when no SBC
// GPIO header is available: the two pins stand in for SDA and SCL.
//
// Documented behavior (AN232R-01, CBUS bitbang mode): the upper nibble of
// the mask passed to SetBitMode selects which CBUS lines are outputs (1) vs
// inputs (0); the lower nibble of every subsequent Write byte drives the
// output lines, and every Read/GetBitMode byte reflects the live level of
// all four lines.
package ftdi

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/d2xx"
)

// bitModeCbusBitbang switches the chip into 4-bit CBUS bitbang mode
// (FT232R and FT232H only).
const bitModeCbusBitbang byte = 0x20

// d2xxOpen is overridden by resetOpenFunc under the periph_host_ftdi_debug
// build tag to wrap the handle with a logging shim.
var d2xxOpen = d2xx.Open

func init() {
	resetOpenFunc()
}

// Dev represents an opened FTDI chip running in CBUS bitbang mode, with two
// of its four CBUS lines dedicated to SDA and SCL.
type Dev struct {
	mu       sync.Mutex
	h        d2xx.Handle
	dirMask  byte // upper nibble: 1 = output, per CBUS bitbang convention
	outBits  byte // lower nibble of the last byte written
	sdaIndex int
	scl      *cbusPin
	sda      *cbusPin
}

// Open opens the FTDI device at the given index (0 for the first one found)
// and switches it into CBUS bitbang mode with sdaIndex/sclIndex (0-3) as the
// two lines used by the engine. The other two CBUS lines are left as
// plain inputs and are never touched.
func Open(index, sdaIndex, sclIndex int) (*Dev, error) {
	if sdaIndex == sclIndex || sdaIndex < 0 || sdaIndex > 3 || sclIndex < 0 || sclIndex > 3 {
		return nil, fmt.Errorf("ftdi: sdaIndex and sclIndex must be distinct values in [0,3], got %d and %d", sdaIndex, sclIndex)
	}
	h, e := d2xxOpen(index)
	if e != 0 {
		return nil, fmt.Errorf("ftdi: opening device %d: %s", index, e)
	}
	d := &Dev{h: h, sdaIndex: sdaIndex}
	// Start every line as input (open-drain discipline: the engine only ever
	// asserts low, it never drives high).
	if err := d.setBitModeLocked(0x00); err != nil {
		_ = d.Close()
		return nil, err
	}
	d.sda = &cbusPin{n: "SDA", num: sdaIndex, p: gpio.PullUp, bus: d}
	d.scl = &cbusPin{n: "SCL", num: sclIndex, p: gpio.PullUp, bus: d}
	return d, nil
}

// SDA returns the pin wired to the I²C data line.
func (d *Dev) SDA() gpio.PinIO { return d.sda }

// SCL returns the pin wired to the I²C clock line.
func (d *Dev) SCL() gpio.PinIO { return d.scl }

// Close releases the underlying USB handle.
func (d *Dev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.h == nil {
		return nil
	}
	e := d.h.Close()
	d.h = nil
	if e != 0 {
		return fmt.Errorf("ftdi: close: %s", e)
	}
	return nil
}

// cBusGPIOFunc implements cBusGPIO.
func (d *Dev) cBusGPIOFunc(n int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dirMask&(1<<uint(n+4)) != 0 {
		return "Out"
	}
	return "In"
}

// cBusGPIOIn implements cBusGPIO: switches line n to input (released high
// via the external pull-up).
func (d *Dev) cBusGPIOIn(n int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setBitModeLocked(d.dirMask &^ (1 << uint(n+4)))
}

// cBusGPIORead implements cBusGPIO: reads the live level of all four lines
// and returns the one at index n.
func (d *Dev) cBusGPIORead(n int) gpio.Level {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, e := d.h.GetBitMode()
	if e != 0 {
		// Fail safe to released/high, matching the pull-up idle state.
		return gpio.High
	}
	return b&(1<<uint(n)) != 0
}

// cBusGPIOOut implements cBusGPIO: drives line n low, or releases it by
// switching it back to input. The chip only ever actively drives low,
// mirroring invariant 1 of the emulated slave's open-drain discipline.
func (d *Dev) cBusGPIOOut(n int, l gpio.Level) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if l {
		return d.setBitModeLocked(d.dirMask &^ (1 << uint(n+4)))
	}
	mask := d.dirMask | (1 << uint(n+4))
	if err := d.setBitModeLocked(mask); err != nil {
		return err
	}
	return d.writeBitsLocked(d.outBits &^ (1 << uint(n)))
}

func (d *Dev) setBitModeLocked(dirMask byte) error {
	e := d.h.SetBitMode(dirMask, bitModeCbusBitbang)
	if e != 0 {
		return fmt.Errorf("ftdi: SetBitMode: %s", e)
	}
	d.dirMask = dirMask
	return nil
}

func (d *Dev) writeBitsLocked(bits byte) error {
	n, e := d.h.Write([]byte{bits})
	if e != 0 {
		return fmt.Errorf("ftdi: Write: %s", e)
	}
	if n != 1 {
		return fmt.Errorf("ftdi: Write: short write")
	}
	d.outBits = bits
	return nil
}

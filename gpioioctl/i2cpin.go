// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpioioctl

import (
	"periph.io/x/conn/v3/gpio"

	"github.com/martin-fink/i2c-emulation/internal/bitlayer"
)

// I2CPin adapts any gpio.PinIO — in practice a *GPIOLine obtained from a
// GPIOChip — to the narrower bitlayer.Pin contract the bit-banged protocol
// engine needs: configure for input, drive low, release to high-Z, read the
// level. The engine never calls Out(gpio.High); driving high would defeat
// open-drain wired-AND semantics on a shared bus.
type I2CPin struct {
	line gpio.PinIO
	pull gpio.Pull
}

// NewI2CPin wraps line. pull is reasserted every time the pin is released,
// so it should normally be gpio.PullUp — the engine relies on an external
// or internal pull-up to produce the line's idle-high level.
func NewI2CPin(line gpio.PinIO, pull gpio.Pull) *I2CPin {
	return &I2CPin{line: line, pull: pull}
}

func (p *I2CPin) SetInput() error {
	return p.line.In(p.pull, gpio.NoEdge)
}

func (p *I2CPin) SetOutputLow() error {
	return p.line.Out(gpio.Low)
}

func (p *I2CPin) Release() error {
	return p.line.In(p.pull, gpio.NoEdge)
}

func (p *I2CPin) Read() int {
	if p.line.Read() == gpio.High {
		return 1
	}
	return 0
}

func (p *I2CPin) Name() string {
	return p.line.Name()
}

var _ bitlayer.Pin = (*I2CPin)(nil)

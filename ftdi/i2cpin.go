// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ftdi

import (
	"periph.io/x/conn/v3/gpio"

	"github.com/martin-fink/i2c-emulation/internal/bitlayer"
)

// I2CPin adapts one of Dev's two CBUS pins to the bitlayer.Pin contract.
type I2CPin struct {
	pin gpio.PinIO
}

// NewI2CPin wraps pin, normally the result of Dev.SDA() or Dev.SCL().
func NewI2CPin(pin gpio.PinIO) *I2CPin {
	return &I2CPin{pin: pin}
}

func (p *I2CPin) SetInput() error {
	return p.pin.In(gpio.PullUp, gpio.NoEdge)
}

func (p *I2CPin) SetOutputLow() error {
	return p.pin.Out(gpio.Low)
}

func (p *I2CPin) Release() error {
	return p.pin.In(gpio.PullUp, gpio.NoEdge)
}

func (p *I2CPin) Read() int {
	if p.pin.Read() == gpio.High {
		return 1
	}
	return 0
}

func (p *I2CPin) Name() string {
	return p.pin.Name()
}

var _ bitlayer.Pin = (*I2CPin)(nil)

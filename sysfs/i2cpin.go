// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sysfs

import (
	"periph.io/x/conn/v3/gpio"

	"github.com/martin-fink/i2c-emulation/internal/bitlayer"
)

// I2CPin adapts a *Pin to the bitlayer.Pin contract, the same role
// gpioioctl.I2CPin plays for the character-device backend.
type I2CPin struct {
	pin *Pin
}

// NewI2CPin wraps pin. sysfs has no pull resistor control (see Pin.Pull), so
// the board's SDA/SCL lines need an external pull-up when this backend is
// used.
func NewI2CPin(pin *Pin) *I2CPin {
	return &I2CPin{pin: pin}
}

func (p *I2CPin) SetInput() error {
	return p.pin.In(gpio.PullNoChange, gpio.NoEdge)
}

func (p *I2CPin) SetOutputLow() error {
	return p.pin.Out(gpio.Low)
}

func (p *I2CPin) Release() error {
	return p.pin.In(gpio.PullNoChange, gpio.NoEdge)
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

// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.
//
// Package gpioioctl provides access to Linux GPIO lines using the ioctl
// interface. It is one of three interchangeable backends cmd/i2cslave can
// use to drive the two bit-banged SDA/SCL lines of the emulated I2C slave
// (the others are sysfs and ftdi); see I2CPin in i2cpin.go for the adapter
// that bridges a line obtained here to the protocol engine in
// internal/bitlayer.
//
// https://docs.kernel.org/userspace-api/gpio/index.html
//
// GPIO Pins can be accessed via periph.io/x/conn/v3/gpio/gpioreg,
// or using the Chips collection to access the specific GPIO chip
// and using it's ByName()/ByNumber methods.
//
// GPIOChip also provides a LineSet feature that allows you to atomically
// read/write to multiple GPIO pins as a single operation; see lineset.go
// for why the I2C engine itself never uses it.
package gpioioctl

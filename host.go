// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package host

import "periph.io/x/conn/v3/driver/driverreg"

// Init registers the gpioioctl and sysfs GPIO backends (see host_linux.go)
// and then calls driverreg.Init() to run them, so that cmd/i2cslave can look
// up its SDA/SCL lines via gpioreg immediately afterward.
func Init() (*driverreg.State, error) {
	return driverreg.Init()
}

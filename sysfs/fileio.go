// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sysfs

import (
	"errors"
	"io"
	"os"
	"runtime"
	"syscall"
)

const isLinux = runtime.GOOS == "linux"

// fileIO is the subset of *os.File this package relies on, small enough to
// fake in tests without touching a real sysfs tree.
type fileIO interface {
	io.Closer
	Fd() uintptr
	Read(b []byte) (int, error)
	ReadAt(b []byte, off int64) (int, error)
	Write(b []byte) (int, error)
	WriteAt(b []byte, off int64) (int, error)
}

func fileIOOpen(path string, flag int) (fileIO, error) {
	return os.OpenFile(path, flag, 0)
}

// seekRead always reads from the start of the pseudo-file: sysfs GPIO value
// and direction files are single-line and cheap to reread in full, and
// reusing the same handle across polls avoids an open(2) per sample on the
// engine's busy-poll path.
func seekRead(f fileIO, b []byte) (int, error) {
	return f.ReadAt(b, 0)
}

func seekWrite(f fileIO, b []byte) error {
	_, err := f.WriteAt(b, 0)
	return err
}

func isErrBusy(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EBUSY
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return isErrBusy(pathErr.Err)
	}
	return false
}

// Command i2cslave emulates an I²C slave device on two bit-banged GPIO
// pins, exposing a flat register file that a real I²C master can read and
// write exactly as it would a hardware peripheral.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/driver/driverreg"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	host "github.com/martin-fink/i2c-emulation"
	"github.com/martin-fink/i2c-emulation/ftdi"
	"github.com/martin-fink/i2c-emulation/gpioioctl"
	"github.com/martin-fink/i2c-emulation/internal/bitlayer"
	"github.com/martin-fink/i2c-emulation/internal/boardpins"
	"github.com/martin-fink/i2c-emulation/internal/regfile"
	"github.com/martin-fink/i2c-emulation/sysfs"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "i2cslave:", err)
		os.Exit(1)
	}
}

type config struct {
	backend   string
	sdaLine   int
	sclLine   int
	registers int
	verbosity int
	address   uint8
}

func run(args []string) error {
	fs := flag.NewFlagSet("i2cslave", flag.ContinueOnError)
	backend := fs.String("backend", "ioctl", "GPIO backend to use: ioctl, sysfs, or ftdi")
	sda := fs.Int("sda", -1, "SDA line number (backend-specific); -1 auto-detects from the board model")
	scl := fs.Int("scl", -1, "SCL line number (backend-specific); -1 auto-detects from the board model")
	registers := fs.Int("registers", 256, "number of addressable registers in the emulated device")
	verbose := countFlag{}
	fs.Var(&verbose, "v", "increase logging verbosity; repeatable (-v -v -v -v)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: i2cslave [-v]... [-backend ioctl|sysfs|ftdi] [-sda N] [-scl N] [-registers N] ADDRESS")
	}

	addrArg, err := strconv.ParseUint(fs.Arg(0), 10, 8)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", fs.Arg(0), err)
	}
	if !isValidSlaveAddress(uint8(addrArg)) {
		return fmt.Errorf("address %d is reserved or out of the 7-bit range", addrArg)
	}

	cfg := config{
		backend:   *backend,
		sdaLine:   *sda,
		sclLine:   *scl,
		registers: *registers,
		verbosity: int(verbose),
		address:   uint8(addrArg),
	}

	log := newLogger(cfg.verbosity)

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("initializing GPIO drivers: %w", err)
	}
	if _, err := driverreg.Init(); err != nil {
		return fmt.Errorf("initializing GPIO drivers: %w", err)
	}

	sdaPin, sclPin, closeFn, err := openBackend(cfg, log)
	if err != nil {
		return err
	}
	defer closeFn()

	regs := regfile.New(cfg.address, cfg.registers)
	engine := bitlayer.New(bitlayer.Config{
		RegisterProtocol: regs,
		SDA:              sdaPin,
		SCL:              sclPin,
		Logger:           log.WithField("component", "engine"),
		OnProtocolError: func(e *bitlayer.Error) {
			log.WithField("kind", e.Kind).Warn(e.Error())
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("shutting down")
		cancel()
	}()

	log.WithField("address", cfg.address).WithField("registers", cfg.registers).
		Info("emulated I2C slave running")
	if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// isValidSlaveAddress rejects the reserved 7-bit ranges (0x00-0x07 and
// 0x78-0x7F, per the I²C specification's reserved-address table) in
// addition to anything outside 0-127. This is a CLI-level convenience, not
// an engine invariant: bitlayer.RegisterProtocol implementations are free
// to apply their own policy.
func isValidSlaveAddress(addr uint8) bool {
	if addr > 0x7F {
		return false
	}
	if addr <= 0x07 {
		return false
	}
	if addr >= 0x78 {
		return false
	}
	return true
}

// openBackend opens the selected GPIO backend and returns the two
// bitlayer.Pin handles plus a cleanup function.
func openBackend(cfg config, log *logrus.Entry) (sda, scl bitlayer.Pin, closeFn func(), err error) {
	switch cfg.backend {
	case "ioctl":
		return openIoctlBackend(cfg, log)
	case "sysfs":
		return openSysfsBackend(cfg, log)
	case "ftdi":
		return openFtdiBackend(cfg, log)
	default:
		return nil, nil, nil, fmt.Errorf("unknown backend %q", cfg.backend)
	}
}

func resolvePins(cfg config, log *logrus.Entry) (sdaLine, sclLine int) {
	if cfg.sdaLine >= 0 && cfg.sclLine >= 0 {
		return cfg.sdaLine, cfg.sclLine
	}
	if p, ok := boardpins.Detect(); ok {
		log.WithField("sda", p.SDA).WithField("scl", p.SCL).Debug("detected board default pins")
		sdaLine, sclLine = p.SDA, p.SCL
		if cfg.sdaLine >= 0 {
			sdaLine = cfg.sdaLine
		}
		if cfg.sclLine >= 0 {
			sclLine = cfg.sclLine
		}
		return sdaLine, sclLine
	}
	log.Warn("could not auto-detect board pins; pass -sda and -scl explicitly")
	return cfg.sdaLine, cfg.sclLine
}

func openIoctlBackend(cfg config, log *logrus.Entry) (bitlayer.Pin, bitlayer.Pin, func(), error) {
	sdaLine, sclLine := resolvePins(cfg, log)
	if sdaLine < 0 || sclLine < 0 {
		return nil, nil, nil, fmt.Errorf("ioctl backend requires -sda and -scl (board auto-detection failed)")
	}
	sda := gpioreg.ByName(fmt.Sprintf("GPIO%d", sdaLine))
	scl := gpioreg.ByName(fmt.Sprintf("GPIO%d", sclLine))
	if sda == nil || scl == nil {
		return nil, nil, nil, fmt.Errorf("GPIO lines %d/%d not found via the ioctl backend", sdaLine, sclLine)
	}
	return gpioioctl.NewI2CPin(sda, gpio.PullUp), gpioioctl.NewI2CPin(scl, gpio.PullUp), func() {}, nil
}

func openSysfsBackend(cfg config, log *logrus.Entry) (bitlayer.Pin, bitlayer.Pin, func(), error) {
	sdaLine, sclLine := resolvePins(cfg, log)
	if sdaLine < 0 || sclLine < 0 {
		return nil, nil, nil, fmt.Errorf("sysfs backend requires -sda and -scl (board auto-detection failed)")
	}
	sdaPin, ok := sysfs.Pins[sdaLine]
	if !ok {
		return nil, nil, nil, fmt.Errorf("sysfs GPIO%d not found", sdaLine)
	}
	sclPin, ok := sysfs.Pins[sclLine]
	if !ok {
		return nil, nil, nil, fmt.Errorf("sysfs GPIO%d not found", sclLine)
	}
	return sysfs.NewI2CPin(sdaPin), sysfs.NewI2CPin(sclPin), func() {}, nil
}

func openFtdiBackend(cfg config, log *logrus.Entry) (bitlayer.Pin, bitlayer.Pin, func(), error) {
	sdaLine, sclLine := cfg.sdaLine, cfg.sclLine
	if sdaLine < 0 {
		sdaLine = 0
	}
	if sclLine < 0 {
		sclLine = 1
	}
	dev, err := ftdi.Open(0, sdaLine, sclLine)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening FTDI device: %w", err)
	}
	return ftdi.NewI2CPin(dev.SDA()), ftdi.NewI2CPin(dev.SCL()), func() { _ = dev.Close() }, nil
}

// countFlag implements flag.Value to let -v be repeated (-v -v -v) to raise
// verbosity, the way many CLIs in this ecosystem do.
type countFlag int

func (c *countFlag) String() string {
	return strconv.Itoa(int(*c))
}

func (c *countFlag) Set(string) error {
	*c++
	return nil
}

func (c *countFlag) IsBoolFlag() bool {
	return true
}

// newLogger maps the repeated -v count onto logrus levels: 0 flags is
// Error, each additional flag steps down to Warn, Info, Debug, and finally
// Trace at 4+.
func newLogger(verbosity int) *logrus.Entry {
	l := logrus.New()
	levels := []logrus.Level{
		logrus.ErrorLevel,
		logrus.WarnLevel,
		logrus.InfoLevel,
		logrus.DebugLevel,
		logrus.TraceLevel,
	}
	if verbosity >= len(levels) {
		verbosity = len(levels) - 1
	}
	l.SetLevel(levels[verbosity])
	return logrus.NewEntry(l)
}

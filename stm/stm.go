// stm.go - Client for the coprocessor's state transition manager

// Package stm drives power and front-panel state through the coprocessor's
// /dev/stm/immediate device. Every call is a single ioctl with 32-byte in
// and out buffers, the first input word carrying the argument.
package stm

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/intuitionamiga/IntuitionHAL/ipc"
)

//go:generate mockgen -destination=mock_transport_test.go -package=stm . Transport

// Transport is the subset of *ipc.Channel used here.
type Transport interface {
	Open(ctx context.Context, path string, mode ipc.Mode) (ipc.FD, error)
	Close(ctx context.Context, fd ipc.FD) error
	Ioctl(ctx context.Context, fd ipc.FD, num int32, in, out []byte) (int32, error)
}

type Device struct {
	t  Transport
	fd ipc.FD
}

// Open opens the immediate STM device.
func Open(ctx context.Context, t Transport) (*Device, error) {
	fd, err := t.Open(ctx, PATH_IMMEDIATE, ipc.MODE_NONE)
	if err != nil {
		return nil, fmt.Errorf("stm: open: %w", err)
	}
	return &Device{t: t, fd: fd}, nil
}

func (d *Device) FD() ipc.FD {
	return d.fd
}

func (d *Device) Close(ctx context.Context) error {
	return d.t.Close(ctx, d.fd)
}

// ioctl issues num with arg in the first input word and returns the
// result code and the output buffer.
func (d *Device) ioctl(ctx context.Context, num int32, arg uint32) (int32, []byte, error) {
	in := make([]byte, BUFFER_SIZE)
	out := make([]byte, BUFFER_SIZE)
	binary.BigEndian.PutUint32(in, arg)
	ret, err := d.t.Ioctl(ctx, d.fd, num, in, out)
	if err != nil {
		return ret, nil, fmt.Errorf("stm: ioctl 0x%04X: %w", num, err)
	}
	return ret, out, nil
}

func (d *Device) HotReset(ctx context.Context) error {
	_, _, err := d.ioctl(ctx, IOCTL_HOTRESET, 0)
	return err
}

func (d *Device) Shutdown(ctx context.Context) error {
	_, _, err := d.ioctl(ctx, IOCTL_SHUTDOWN, 0)
	return err
}

func (d *Device) Idle(ctx context.Context) error {
	_, _, err := d.ioctl(ctx, IOCTL_IDLE, 0)
	return err
}

func (d *Device) Wakeup(ctx context.Context) error {
	_, _, err := d.ioctl(ctx, IOCTL_WAKEUP, 0)
	return err
}

// SetLEDMode sets the front LED to LED_OFF, LED_DIM or LED_BRIGHT.
func (d *Device) SetLEDMode(ctx context.Context, mode uint32) error {
	if mode > LED_BRIGHT {
		return fmt.Errorf("stm: LED mode %d out of range", mode)
	}
	_, _, err := d.ioctl(ctx, IOCTL_LEDMODE, mode)
	return err
}

func (d *Device) FlashLED(ctx context.Context) error {
	_, _, err := d.ioctl(ctx, IOCTL_LEDFLASH, 0)
	return err
}

func (d *Device) SetDimming(ctx context.Context, on bool) error {
	var arg uint32
	if on {
		arg = 1
	}
	_, _, err := d.ioctl(ctx, IOCTL_VIDIMMING, arg)
	return err
}

// ReadVersion returns the STM firmware version word.
func (d *Device) ReadVersion(ctx context.Context) (uint32, error) {
	_, out, err := d.ioctl(ctx, IOCTL_READVER, 0)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(out), nil
}

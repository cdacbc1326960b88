package input

// Linux input plumbing:
// - constants for event codes we care about
// - ioctl helpers for EVIOCGRAB and the EV_KEY capability bitmap
// - parsing input_event stream (16B vs 24B timeval size)

import (
	"encoding/binary"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Minimal Linux input constants
const (
	evSyn = 0x00
	evKey = 0x01
)

// Keys the rover is driven with (linux/input-event-codes.h)
const (
	keySpace = 57
	keyUp    = 103
	keyLeft  = 105
	keyRight = 106
	keyDown  = 108

	keyMax = 0x2ff
)

// EV_KEY values
const (
	keyReleased = 0
	keyPressed  = 1
	keyRepeated = 2
)

// ioctl request encoding (Linux _IOC macro)
const (
	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocWrite = 1
	iocRead  = 2
)

func ioc(dir uint32, typ uint32, nr uint32, size uint32) uintptr {
	return uintptr((dir << iocDirShift) | (typ << iocTypeShift) | (nr << iocNRShift) | (size << iocSizeShift))
}

func evioCGrab() uintptr {
	// EVIOCGRAB = _IOW('E', 0x90, int)
	return ioc(iocWrite, uint32('E'), uint32(0x90), uint32(unsafe.Sizeof(int32(0))))
}

func evioCGBit(ev uint32, size uint32) uintptr {
	// EVIOCGBIT(ev, len) = _IOC(_IOC_READ, 'E', 0x20 + ev, len)
	return ioc(iocRead, uint32('E'), 0x20+ev, size)
}

func tryGrab(fd int) error {
	var one int32 = 1
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), evioCGrab(), uintptr(unsafe.Pointer(&one)))
	if errno != 0 {
		return errno
	}
	return nil
}

// keyBits reads the EV_KEY capability bitmap of fd.
func keyBits(fd int) ([]byte, error) {
	bits := make([]byte, keyMax/8+1)
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), evioCGBit(evKey, uint32(len(bits))), uintptr(unsafe.Pointer(&bits[0])))
	if errno != 0 {
		return nil, errno
	}
	return bits, nil
}

func hasBit(bits []byte, code int) bool {
	if code/8 >= len(bits) {
		return false
	}
	return bits[code/8]&(1<<(uint(code)%8)) != 0
}

// hasDriveKeys reports whether the bitmap advertises all four arrows.
func hasDriveKeys(bits []byte) bool {
	for _, c := range []int{keyUp, keyDown, keyLeft, keyRight} {
		if !hasBit(bits, c) {
			return false
		}
	}
	return true
}

// inputParser parses Linux input_event structs from a stream.
// Kernel uses different struct size depending on timeval size (32-bit vs 64-bit).
type inputParser struct {
	buf []byte
	sz  int // 0 unknown, else 16 or 24
}

func (p *inputParser) feed(chunk []byte, cb func(etype uint16, code uint16, value int32)) {
	p.buf = append(p.buf, chunk...)
	if p.sz == 0 {
		if len(p.buf) >= 48 && len(p.buf)%24 == 0 {
			p.sz = 24
		} else if len(p.buf) >= 32 && len(p.buf)%16 == 0 {
			p.sz = 16
		} else if len(p.buf) >= 24 {
			// fallback: 64-bit timeval
			p.sz = 24
		}
	}
	for p.sz != 0 && len(p.buf) >= p.sz {
		ev := p.buf[:p.sz]
		p.buf = p.buf[p.sz:]
		var etype, code uint16
		var value int32
		if p.sz == 24 {
			etype = binary.LittleEndian.Uint16(ev[16:18])
			code = binary.LittleEndian.Uint16(ev[18:20])
			value = int32(binary.LittleEndian.Uint32(ev[20:24]))
		} else {
			etype = binary.LittleEndian.Uint16(ev[8:10])
			code = binary.LittleEndian.Uint16(ev[10:12])
			value = int32(binary.LittleEndian.Uint32(ev[12:16]))
		}
		cb(etype, code, value)
	}
}

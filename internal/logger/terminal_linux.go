//go:build linux

package logger

import (
	"syscall"
	"unsafe"
)

// get-attributes ioctl request, not defined in syscall on linux
const tcgets = 0x5401

// isTerminal reports whether fd is attached to a tty. The TCGETS ioctl
// only succeeds on terminal descriptors.
func isTerminal(fd uintptr) bool {
	var attrs syscall.Termios
	_, _, errno := syscall.Syscall6(
		syscall.SYS_IOCTL,
		fd,
		tcgets,
		uintptr(unsafe.Pointer(&attrs)),
		0, 0, 0,
	)
	return errno == 0
}

//go:build darwin

package logger

import (
	"syscall"
	"unsafe"
)

// isTerminal reports whether fd is attached to a tty. Darwin has no
// TCGETS; TIOCGETA is the equivalent get-attributes request, and it only
// succeeds on terminal descriptors.
func isTerminal(fd uintptr) bool {
	var attrs syscall.Termios
	_, _, errno := syscall.Syscall6(
		syscall.SYS_IOCTL,
		fd,
		syscall.TIOCGETA,
		uintptr(unsafe.Pointer(&attrs)),
		0, 0, 0,
	)
	return errno == 0
}

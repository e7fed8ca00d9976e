//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package io

import (
	"golang.org/x/sys/unix"
)

// IsTerminal returns true if the file descriptor is attached to a terminal.
func IsTerminal(fd uintptr) bool {
	_, err := unix.IoctlGetTermios(int(fd), ioctlGetTermios)
	return err == nil
}

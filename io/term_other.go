//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package io

// IsTerminal always returns false on platforms without termios.
func IsTerminal(fd uintptr) bool {
	return false
}

//go:build linux

package io

import (
	"golang.org/x/sys/unix"
)

const ioctlGetTermios = unix.TCGETS

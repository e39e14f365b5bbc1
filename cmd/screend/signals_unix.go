//go:build !windows
// +build !windows

package main

import (
	"os"
	"syscall"
)

var snapshotSignals = []os.Signal{syscall.SIGUSR1}

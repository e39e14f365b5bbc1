//go:build windows
// +build windows

package main

import "os"

// no user signal exists on Windows
var snapshotSignals []os.Signal

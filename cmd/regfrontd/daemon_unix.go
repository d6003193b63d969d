//go:build !windows

package main

import (
	"os"

	systemdDaemon "github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sys/unix"
)

// terminationSignals begin a graceful shutdown when received.
var terminationSignals = []os.Signal{unix.SIGINT, unix.SIGTERM}

// notifyReady sends a message to the host when the server is ready to be used.
func notifyReady() {
	// Tell the init daemon we are accepting requests
	go systemdDaemon.SdNotify(false, systemdDaemon.SdNotifyReady)
}

// notifyStopping sends a message to the host when the server is shutting down.
func notifyStopping() {
	go systemdDaemon.SdNotify(false, systemdDaemon.SdNotifyStopping)
}

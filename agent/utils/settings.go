package utils

import (
	"path/filepath"
	"time"
)

const (
	DefaultTimeout      = 1 * time.Minute
	DefaultPollInterval = 500 * time.Millisecond
	DefaultPingEvery    = 5 // minutes

	storageDir = ".findy/alice"
)

var Settings = &Hub{}

// Hub holds the process wide settings which the CLI sets from its flags.
type Hub struct {
	storagePath  string        // directory of the wallet files
	timeout      time.Duration // timeout for connection accept
	pollInterval time.Duration // connection state poll interval
	pingEvery    int           // trust ping interval in minutes, 0 is off
	strictSecret bool          // refuse to regenerate the keypair after read errors

}

func (h *Hub) StoragePath() string {
	if h.storagePath == "" {
		return filepath.Join(HomeDir(), storageDir)
	}
	return h.storagePath
}

func (h *Hub) SetStoragePath(path string) {
	h.storagePath = path
}

// SetTimeout sets the default timeout for accepting the connection.
func (h *Hub) SetTimeout(to time.Duration) {
	h.timeout = to
}

func (h *Hub) Timeout() time.Duration {
	if h.timeout == 0 {
		return DefaultTimeout
	}
	return h.timeout
}

func (h *Hub) SetPollInterval(d time.Duration) {
	h.pollInterval = d
}

func (h *Hub) PollInterval() time.Duration {
	if h.pollInterval == 0 {
		return DefaultPollInterval
	}
	return h.pollInterval
}

func (h *Hub) SetPingEvery(minutes int) {
	h.pingEvery = minutes
}

func (h *Hub) PingEvery() int {
	return h.pingEvery
}

func (h *Hub) SetStrictSecret(strict bool) {
	h.strictSecret = strict
}

func (h *Hub) StrictSecret() bool {
	return h.strictSecret
}

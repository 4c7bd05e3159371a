package singleinstance

// This file defines the API for single-instance ownership and run-once delegation.
// The resident owns the method cache, so delegating keeps what it has learned.

import (
	"context"

	"get-selected-text/src/selector"
)

// Mode says where the resident should deliver a delegated grab.
type Mode int

const (
	// ModeStdout returns the result to the client only.
	ModeStdout Mode = iota
	// ModeClipboard also copies the selection to the clipboard inside the resident.
	ModeClipboard
)

func (m Mode) String() string {
	if m == ModeClipboard {
		return "CLIPBOARD"
	}
	return "STDOUT"
}

// Server owns the TCP endpoint and answers run-once requests.
type Server interface {
	// Start binds the first port of the configured range and begins accepting clients.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection as a Conn, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn represents one client connection and exposes request + response API.
type Conn interface {
	Request() Request
	// RespondSuccess sends the grabbed selection.
	RespondSuccess(res selector.Result) error
	// RespondError sends an error with human-readable message.
	RespondError(msg string) error
	Close() error
}

// Request represents a single run-once client request.
type Request struct {
	Mode Mode
}

// Client attempts to delegate a grab to a resident server.
type Client interface {
	// TryRunOnce scans the port range, performs the handshake and delegates to the resident.
	// If no resident is found, returns delegated=false, err=nil.
	TryRunOnce(ctx context.Context, mode Mode) (delegated bool, res selector.Result, err error)
}

// NewServer returns a TCP server that binds p.Start.
func NewServer(p Ports) Server { return newTcpServer(p) }

// NewClient returns a TCP client that scans p for a resident.
func NewClient(p Ports) Client { return newTcpClient(p) }

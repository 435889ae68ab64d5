package mobilesync

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMobile is returned when pushing an event while no push session
	// has an accepted mobile connection.
	ErrNoMobile = errors.New("no mobile connected")
	// ErrNoSession is returned when terminating while no session is current.
	ErrNoSession = errors.New("no active session")
	// ErrSessionClosed is returned when a handle outlives its session.
	ErrSessionClosed = errors.New("session closed")
	// ErrManagerClosed is returned by Start* after Close.
	ErrManagerClosed = errors.New("sync manager closed")
)

// BindError reports a failure to set up a session listener.
type BindError struct {
	Op   string // "resolve", "listen" or "qr"
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("mobile sync %s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("mobile sync %s: %v", e.Op, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

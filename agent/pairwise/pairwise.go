// Package pairwise manages the participant's single pairwise connection: it
// accepts an out-of-band invitation, waits until the peer has connected and
// remembers the connection for later messaging.
package pairwise

import (
	"context"
	"sync"

	"github.com/findy-network/findy-alice/agent/aries"
	"github.com/findy-network/findy-alice/agent/output"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

var (
	// ErrMissingConnectionRecord is returned when an operation needs the
	// active connection but no connection is accepted yet.
	ErrMissingConnectionRecord = output.NewError(output.MissingConnectionRecord)

	// ErrNoConnectionRecord is returned when the invitation didn't produce a
	// connection.
	ErrNoConnectionRecord = output.NewError(output.NoConnectionRecord)
)

// State is the session state.
type State int

const (
	Idle State = iota
	InvitationReceived
	WaitingForConnection
	Connected
)

func (s State) String() string {
	return [...]string{
		"Idle",
		"InvitationReceived",
		"WaitingForConnection",
		"Connected",
	}[s]
}

type Runtime interface {
	aries.Invitations
	aries.Connections
}

// Session tracks one active connection. Accepting a new invitation replaces
// the previous connection.
type Session struct {
	rt Runtime

	l         sync.RWMutex
	state     State
	connID    string
	connected bool

	// OnConnected is called once per accepted connection, after the
	// connection ID is stored.
	OnConnected func(c *aries.Connection)
}

func NewSession(rt Runtime) *Session {
	return &Session{rt: rt}
}

func (s *Session) setState(st State) {
	s.l.Lock()
	defer s.l.Unlock()
	glog.V(3).Infoln("session state:", s.state, "->", st)
	s.state = st
}

// State returns the current session state.
func (s *Session) State() State {
	s.l.RLock()
	defer s.l.RUnlock()
	return s.state
}

// Connected tells if any connection has reached the connected state.
func (s *Session) Connected() bool {
	s.l.RLock()
	defer s.l.RUnlock()
	return s.connected
}

// ConnectionID returns the active connection ID or an empty string.
func (s *Session) ConnectionID() string {
	s.l.RLock()
	defer s.l.RUnlock()
	return s.connID
}

// ActiveID returns the active connection ID or ErrMissingConnectionRecord.
func (s *Session) ActiveID() (string, error) {
	s.l.RLock()
	defer s.l.RUnlock()
	if s.connID == "" {
		return "", ErrMissingConnectionRecord
	}
	return s.connID, nil
}

// AcceptConnection receives the invitation and blocks until the connection
// is connected. Only ctx can stop the wait. On failure the previous
// connection, if any, stays active.
func (s *Session) AcceptConnection(ctx context.Context, invitationURL string) (err error) {
	defer err2.Handle(&err, "accept connection")

	prev := s.State()
	defer func() {
		if err != nil {
			s.setState(prev)
		}
	}()

	c := try.To1(s.receiveInvitation(ctx, invitationURL))
	s.setState(InvitationReceived)

	id := try.To1(s.waitForConnection(ctx, c))

	s.l.Lock()
	s.connID = id
	s.connected = true
	s.state = Connected
	s.l.Unlock()

	glog.Infoln(output.GreenText(output.ConnectionEstablished))
	if s.OnConnected != nil {
		s.OnConnected(c)
	}
	return nil
}

func (s *Session) receiveInvitation(ctx context.Context, url string) (*aries.Connection, error) {
	c, err := s.rt.ReceiveInvitationFromURL(ctx, url)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNoConnectionRecord
	}
	return c, nil
}

func (s *Session) waitForConnection(ctx context.Context, c *aries.Connection) (string, error) {
	s.setState(WaitingForConnection)
	glog.V(1).Infoln("waiting for connection:", c.ID)

	conn, err := s.rt.ReturnWhenIsConnected(ctx, c.ID)
	if err != nil {
		return "", err
	}
	*c = *conn
	return conn.ID, nil
}

// Restore sets the connection which was accepted earlier, e.g. by a previous
// process, as the active connection. The runtime isn't asked.
func (s *Session) Restore(id string) {
	s.l.Lock()
	defer s.l.Unlock()
	glog.V(1).Infoln("restore connection:", id)
	s.connID = id
	s.connected = true
	s.state = Connected
}

// ActiveConnection returns the current data of the active connection.
func (s *Session) ActiveConnection(ctx context.Context) (c *aries.Connection, err error) {
	id, err := s.ActiveID()
	if err != nil {
		return nil, err
	}
	return s.rt.GetByID(ctx, id)
}

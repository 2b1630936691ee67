package pairwise

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/findy-network/findy-alice/agent/aries"
	"github.com/lainio/err2/assert"
)

type pollingRuntime struct {
	sync.Mutex

	conn      *aries.Connection // returned from the invitation
	states    []aries.ConnectionState
	polls     int
	inviteErr error
}

func (r *pollingRuntime) ReceiveInvitationFromURL(_ context.Context, _ string) (*aries.Connection, error) {
	if r.inviteErr != nil {
		return nil, r.inviteErr
	}
	if r.conn == nil {
		return nil, nil
	}
	c := *r.conn
	return &c, nil
}

func (r *pollingRuntime) GetByID(_ context.Context, id string) (*aries.Connection, error) {
	r.Lock()
	defer r.Unlock()

	r.polls++
	i := r.polls - 1
	if i >= len(r.states) {
		i = len(r.states) - 1
	}
	return &aries.Connection{ID: id, State: r.states[i]}, nil
}

func (r *pollingRuntime) ReturnWhenIsConnected(ctx context.Context, id string) (*aries.Connection, error) {
	return aries.PollUntilConnected(ctx, r, id, time.Millisecond)
}

func threePolls() *pollingRuntime {
	return &pollingRuntime{
		conn: &aries.Connection{ID: "faber-conn", State: aries.ConnectionStateInvited},
		states: []aries.ConnectionState{
			aries.ConnectionStateInvited,
			aries.ConnectionStateResponded,
			aries.ConnectionStateCompleted,
		},
	}
}

func TestSession_AcceptConnection(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	rt := threePolls()
	s := NewSession(rt)
	assert.Equal(s.State(), Idle)

	calls := 0
	s.OnConnected = func(c *aries.Connection) {
		calls++
		assert.That(c.State.IsConnected())
	}

	err := s.AcceptConnection(context.Background(), "https://example/inv")
	assert.NoError(err)
	assert.Equal(rt.polls, 3)
	assert.Equal(s.State(), Connected)
	assert.That(s.Connected())
	assert.Equal(calls, 1)
	assert.Equal(s.ConnectionID(), "faber-conn")

	// the active connection is fetched from the runtime
	c, err := s.ActiveConnection(context.Background())
	assert.NoError(err)
	assert.Equal(c.ID, "faber-conn")
}

func TestSession_NoConnectionRecord(t *testing.T) {
	urls := []string{
		"https://example/inv",
		"https://example/inv?oob=e30",
		"",
	}
	for _, url := range urls {
		t.Run(url, func(t *testing.T) {
			assert.PushTester(t)
			defer assert.PopTester()

			s := NewSession(&pollingRuntime{})
			err := s.AcceptConnection(context.Background(), url)
			assert.That(errors.Is(err, ErrNoConnectionRecord))
			assert.Equal(s.ConnectionID(), "")
			assert.Equal(s.State(), Idle)
			assert.That(!s.Connected())
		})
	}
}

func TestSession_InvitationError(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	inviteErr := errors.New("bad invitation")
	s := NewSession(&pollingRuntime{inviteErr: inviteErr})
	err := s.AcceptConnection(context.Background(), "x")
	assert.That(errors.Is(err, inviteErr))
	assert.Equal(s.State(), Idle)
}

func TestSession_MissingConnectionRecord(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	s := NewSession(threePolls())
	c, err := s.ActiveConnection(context.Background())
	assert.Nil(c)
	assert.That(errors.Is(err, ErrMissingConnectionRecord))
}

func TestSession_CanceledWait(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	rt := &pollingRuntime{
		conn:   &aries.Connection{ID: "slow"},
		states: []aries.ConnectionState{aries.ConnectionStateInvited},
	}
	s := NewSession(rt)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.AcceptConnection(ctx, "https://example/inv")
	assert.That(errors.Is(err, context.DeadlineExceeded))
	assert.Equal(s.State(), Idle)
	assert.Equal(s.ConnectionID(), "")
}

func TestSession_SecondAcceptReplaces(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	rt := threePolls()
	s := NewSession(rt)
	assert.NoError(s.AcceptConnection(context.Background(), "first"))

	rt.conn = &aries.Connection{ID: "acme-conn"}
	assert.NoError(s.AcceptConnection(context.Background(), "second"))
	assert.Equal(s.ConnectionID(), "acme-conn")

	// failed accept keeps the previous connection
	rt.conn = nil
	err := s.AcceptConnection(context.Background(), "third")
	assert.That(errors.Is(err, ErrNoConnectionRecord))
	assert.Equal(s.ConnectionID(), "acme-conn")
	assert.Equal(s.State(), Connected)
}

/*
Package cloud implements the agent runtime over a findy agency cloud agent.
The cloud agent owns the wallet, the DIDComm transport and the protocol state
machines. This package talks to it through the agency gRPC API:

  - invitations are started with the connection protocol,
  - the status stream of the agent is translated to aries.Events,
  - paused credential and proof protocols are resumed with ACK,
  - basic messages and trust pings are run over the pairwise.

The cloud agent selects the credentials for the proof by itself, that's why
SelectCredentialsForRequest only returns the automatic selection.
*/
package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/findy-network/findy-alice/agent/aries"
	"github.com/findy-network/findy-alice/agent/utils"
	"github.com/findy-network/findy-alice/std/invitation"
	"github.com/findy-network/findy-common-go/agency/client"
	agency "github.com/findy-network/findy-common-go/grpc/agency/v1"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"google.golang.org/grpc"
)

const (
	eventBufSize = 16

	// FormatIndy is the only proof format the cloud agent supports.
	FormatIndy = "indy"
)

var ErrConnectionNotFound = errors.New("connection not found")

// AutoSelection is the proof format selection which lets the cloud agent
// choose the credentials.
var AutoSelection = aries.ProofFormats{FormatIndy: json.RawMessage(`{"auto":true}`)}

type Config struct {
	User    string // the cloud agent, i.e. the JWT subject
	TLSPath string
	Addr    string
	Port    int

	Label        string
	PollInterval time.Duration

	// DialOptions are given to the gRPC client, e.g. for tests.
	DialOptions []grpc.DialOption
}

type Agent struct {
	cfg  Config
	conn client.Conn

	l     sync.RWMutex
	conns map[string]*aries.Connection

	events    chan aries.Event
	stop      context.CancelFunc
	closeOnce sync.Once
}

func New(cfg Config) *Agent {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = aries.DefaultPollInterval
	}
	return &Agent{
		cfg:    cfg,
		conns:  make(map[string]*aries.Connection),
		events: make(chan aries.Event, eventBufSize),
	}
}

// Initialize opens the gRPC connection and starts to listen the status
// stream of the cloud agent.
func (a *Agent) Initialize(ctx context.Context) (err error) {
	defer err2.Handle(&err, "cloud agent %s init", a.cfg.User)

	baseCfg := client.BuildClientConnBase(a.cfg.TLSPath, a.cfg.Addr,
		a.cfg.Port, a.cfg.DialOptions)
	a.conn = client.TryOpen(a.cfg.User, baseCfg)

	lctx, cancel := context.WithCancel(context.Background())
	a.stop = cancel
	ch := try.To1(a.conn.ListenStatus(lctx, &agency.ClientID{ID: utils.UUID()}))
	glog.V(1).Infoln("listening cloud agent:", a.cfg.User)

	go a.listen(lctx, ch)
	return nil
}

// Shutdown stops listening and closes the gRPC connection. The event
// channel is closed.
func (a *Agent) Shutdown(context.Context) (err error) {
	defer err2.Handle(&err, "cloud agent shutdown")

	if a.stop != nil {
		a.stop()
	}
	a.closeOnce.Do(func() { close(a.events) })
	if a.conn.ClientConn != nil {
		try.To(a.conn.Close())
	}
	return nil
}

func (a *Agent) Events() <-chan aries.Event {
	return a.events
}

// ReceiveInvitationFromURL starts the connection protocol with the invitation
// of the URL. The connection state is followed in the background.
func (a *Agent) ReceiveInvitationFromURL(ctx context.Context, url string) (c *aries.Connection, err error) {
	defer err2.Handle(&err, "receive invitation")

	inv, invJSON := try.To2(invitation.FromURL(url))
	glog.V(1).Infoln("invitation from:", inv.Label)

	pw := &client.Pairwise{
		Conn:  a.conn,
		Label: a.cfg.Label,
	}
	connID, ch := try.To2(pw.Connection(context.Background(), invJSON))
	if connID == "" {
		return nil, nil
	}

	c = &aries.Connection{
		ID:         connID,
		State:      aries.ConnectionStateRequested,
		TheirLabel: inv.Label,
	}
	a.setConnection(c)
	go a.track(connID, ch)

	return c, nil
}

func (a *Agent) setConnection(c *aries.Connection) {
	a.l.Lock()
	defer a.l.Unlock()
	cp := *c
	a.conns[c.ID] = &cp
}

func (a *Agent) setConnectionState(id string, st aries.ConnectionState) {
	a.l.Lock()
	defer a.l.Unlock()
	if c, ok := a.conns[id]; ok {
		c.State = st
	}
}

// track follows the protocol state stream of the connection until it ends.
func (a *Agent) track(connID string, ch <-chan *agency.ProtocolState) {
	final := aries.ConnectionStateAbandoned
	for st := range ch {
		glog.V(3).Infof("connection status: %s|%s", connID, st.State)
		final = stateOf(st.State)
		if final == aries.ConnectionStateCompleted {
			break
		}
	}
	a.setConnectionState(connID, final)
}

func stateOf(s agency.ProtocolState_State) aries.ConnectionState {
	switch s {
	case agency.ProtocolState_OK:
		return aries.ConnectionStateCompleted
	case agency.ProtocolState_ERR, agency.ProtocolState_NACK:
		return aries.ConnectionStateAbandoned
	default:
		return aries.ConnectionStateResponded
	}
}

func (a *Agent) GetByID(_ context.Context, id string) (*aries.Connection, error) {
	a.l.RLock()
	defer a.l.RUnlock()
	c, ok := a.conns[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConnectionNotFound, id)
	}
	cp := *c
	return &cp, nil
}

func (a *Agent) ReturnWhenIsConnected(ctx context.Context, id string) (*aries.Connection, error) {
	return aries.PollUntilConnected(ctx, a, id, a.cfg.PollInterval)
}

func (a *Agent) AcceptOffer(ctx context.Context, credentialRecordID string) error {
	return a.resume(ctx, agency.Protocol_ISSUE_CREDENTIAL, credentialRecordID)
}

func (a *Agent) SelectCredentialsForRequest(context.Context, string) (aries.ProofFormats, error) {
	return AutoSelection, nil
}

func (a *Agent) AcceptRequest(ctx context.Context, proofRecordID string, formats aries.ProofFormats) error {
	if _, ok := formats[FormatIndy]; !ok {
		return fmt.Errorf("proof format %q is missing", FormatIndy)
	}
	return a.resume(ctx, agency.Protocol_PRESENT_PROOF, proofRecordID)
}

func (a *Agent) resume(ctx context.Context, typeID agency.Protocol_Type, id string) (err error) {
	defer err2.Handle(&err, "resume %s %s", typeID, id)

	didComm := agency.NewProtocolServiceClient(a.conn)
	res := try.To1(didComm.Resume(ctx, &agency.ProtocolState{
		ProtocolID: &agency.ProtocolID{
			TypeID: typeID,
			Role:   agency.Protocol_RESUMER,
			ID:     id,
		},
		State: agency.ProtocolState_ACK,
	}))
	glog.V(3).Infoln("resume result:", res.ID)
	return nil
}

func (a *Agent) SendMessage(ctx context.Context, connectionID, text string) (err error) {
	defer err2.Handle(&err, "basic message")

	ch := try.To1(client.Pairwise{
		ID:   connectionID,
		Conn: a.conn,
	}.BasicMessage(ctx, text))
	return waitOK(ch)
}

func (a *Agent) Ping(ctx context.Context, connectionID string) (err error) {
	defer err2.Handle(&err, "trust ping")

	ch := try.To1(client.Pairwise{
		ID:   connectionID,
		Conn: a.conn,
	}.Ping(ctx))
	return waitOK(ch)
}

// waitOK drains the protocol state stream and fails if the last state isn't
// OK.
func waitOK(ch <-chan *agency.ProtocolState) error {
	var last *agency.ProtocolState
	for st := range ch {
		last = st
	}
	if last == nil {
		return errors.New("protocol stream ended without state")
	}
	if last.State != agency.ProtocolState_OK {
		return fmt.Errorf("protocol ended with state %s: %s", last.State, last.Info)
	}
	return nil
}

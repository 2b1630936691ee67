// Package alice is the participant: it owns the record storage, provisions
// the Ethereum keypair, keeps the pairwise connection and answers the
// credential offers and proof requests the agent runtime receives.
package alice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/findy-network/findy-alice/agent/aries"
	"github.com/findy-network/findy-alice/agent/bus"
	"github.com/findy-network/findy-alice/agent/ether"
	"github.com/findy-network/findy-alice/agent/output"
	"github.com/findy-network/findy-alice/agent/pairwise"
	"github.com/findy-network/findy-alice/agent/prot"
	"github.com/findy-network/findy-alice/agent/storage/api"
	"github.com/findy-network/findy-alice/agent/storage/cfg"
	"github.com/findy-network/findy-alice/agent/utils"
	"github.com/findy-network/findy-alice/protocol/issuecredential/holder"
	"github.com/findy-network/findy-alice/protocol/presentproof/prover"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// Config is the wallet of the participant. Key is 32 bytes in hex, see
// cfg.KeyFromPassword.
type Config struct {
	Name        string
	Key         string
	StoragePath string
}

type Option func(a *Alice)

// WithStore uses the given record store instead of opening the wallet. The
// caller owns the store.
func WithStore(s api.RecordStore) Option {
	return func(a *Alice) { a.store = s }
}

// WithExit sets the function Exit calls. The default is os.Exit.
func WithExit(f func(code int)) Option {
	return func(a *Alice) { a.exit = f }
}

func WithPolicy(p prot.Policy) Option {
	return func(a *Alice) { a.policy = p }
}

// WithStrictSecret stops Build when the keypair record cannot be read.
func WithStrictSecret(strict bool) Option {
	return func(a *Alice) { a.strict = strict }
}

func WithOutput(w io.Writer) Option {
	return func(a *Alice) { a.out = w }
}

// WithConnectionStorage sets where the accepted connections are saved. The
// wallet's connection storage is used when the store isn't injected.
func WithConnectionStorage(cs api.ConnectionStorage) Option {
	return func(a *Alice) { a.conns = cs }
}

func WithStation(s *bus.Station) Option {
	return func(a *Alice) { a.station = s }
}

type Alice struct {
	agent   aries.Agent
	session *pairwise.Session
	station *bus.Station

	storeCfg *cfg.AgentStorage // nil when the store is injected
	store    api.RecordStore
	conns    api.ConnectionStorage // optional

	policy  prot.Policy
	strict  bool
	exit    func(code int)
	out     io.Writer
	secrets ether.Result

	l          sync.Mutex
	stopPump   context.CancelFunc
	shutdowned bool
}

// Build opens the wallet, initializes the agent runtime and provisions the
// keypair record.
func Build(ctx context.Context, c Config, agent aries.Agent, opts ...Option) (a *Alice, err error) {
	defer err2.Handle(&err, "build alice %s", c.Name)

	if agent == nil {
		return nil, errors.New("agent runtime is nil")
	}
	a = &Alice{
		agent:  agent,
		policy: prot.AcceptAll,
		exit:   os.Exit,
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.station == nil {
		a.station = bus.New()
	}

	if a.store == nil {
		path := c.StoragePath
		if path == "" {
			path = utils.Settings.StoragePath()
		}
		try.To(os.MkdirAll(path, 0700))
		a.storeCfg = &cfg.AgentStorage{AgentStorageConfig: api.AgentStorageConfig{
			AgentKey: c.Key,
			AgentID:  c.Name,
			FilePath: path,
		}}
		s := try.To1(a.storeCfg.Open())
		a.store = s.RecordStorage()
		if a.conns == nil {
			a.conns = s.ConnectionStorage()
		}
	}
	defer err2.Handle(&err, func(err error) error {
		a.closeStore()
		return err
	})

	try.To(agent.Initialize(ctx))
	glog.V(1).Infoln("agent runtime initialized:", c.Name)
	defer err2.Handle(&err, func(err error) error {
		if serr := agent.Shutdown(context.Background()); serr != nil {
			glog.Warningln("agent runtime shutdown:", serr)
		}
		return err
	})

	a.secrets = try.To1(ether.Provisioner{
		Store:  a.store,
		Strict: a.strict,
	}.Provision(ctx))

	a.session = pairwise.NewSession(agent)
	a.session.OnConnected = a.saveConnection

	pumpCtx, cancel := context.WithCancel(context.Background())
	a.stopPump = cancel
	go a.station.Pump(pumpCtx, agent.Events())

	return a, nil
}

// Secrets returns what the keypair provisioning did in Build.
func (a *Alice) Secrets() ether.Result {
	return a.secrets
}

func (a *Alice) Session() *pairwise.Session {
	return a.session
}

// AcceptConnection accepts the out-of-band invitation and blocks until the
// connection is ready or ctx is done.
func (a *Alice) AcceptConnection(ctx context.Context, invitationURL string) error {
	return a.session.AcceptConnection(ctx, invitationURL)
}

func (a *Alice) saveConnection(c *aries.Connection) {
	if a.conns == nil {
		return
	}
	err := a.conns.AddConnection(api.Connection{
		ID:         c.ID,
		TheirLabel: c.TheirLabel,
		State:      string(c.State),
	})
	if err != nil {
		glog.Warningln("save connection:", err)
	}
}

// UseConnection makes the earlier accepted connection active. The
// connection must be in the connection storage when it's available.
func (a *Alice) UseConnection(id string) (err error) {
	defer err2.Handle(&err, "use connection %s", id)

	if a.conns != nil {
		try.To1(a.conns.GetConnection(id))
	}
	a.session.Restore(id)
	return nil
}

// Connections returns the saved connections.
func (a *Alice) Connections() ([]api.Connection, error) {
	if a.conns == nil {
		return nil, nil
	}
	return a.conns.ListConnections()
}

func (a *Alice) AcceptCredentialOffer(ctx context.Context, offer *aries.CredentialExchange) error {
	return holder.Handler{
		Credentials: a.agent,
		Policy:      a.policy,
	}.HandleCredentialOffer(ctx, offer)
}

func (a *Alice) AcceptProofRequest(ctx context.Context, req *aries.ProofExchange) error {
	return prover.Handler{
		Proofs: a.agent,
		Policy: a.policy,
	}.HandleRequestPresentation(ctx, req)
}

// SendMessage sends a basic message over the active connection.
func (a *Alice) SendMessage(ctx context.Context, text string) (err error) {
	id, err := a.session.ActiveID()
	if err != nil {
		return err
	}
	defer err2.Handle(&err, "send message to %s", id)

	try.To(a.agent.SendMessage(ctx, id, text))
	glog.V(1).Infoln("message sent:", id)
	return nil
}

// Ping sends a trust ping over the active connection.
func (a *Alice) Ping(ctx context.Context) (err error) {
	id, err := a.session.ActiveID()
	if err != nil {
		return err
	}
	defer err2.Handle(&err, "ping %s", id)

	try.To(a.agent.Ping(ctx, id))
	glog.V(3).Infoln("ping ok:", id)
	return nil
}

// EtherAddress returns the address of the provisioned keypair with the 0x
// prefix.
func (a *Alice) EtherAddress(ctx context.Context) (addr string, err error) {
	defer err2.Handle(&err, "ether address")

	r := try.To1(a.store.Get(ctx, api.RecordTypeCustom, ether.RecordID))
	addr, ok := r.MetadataValue(ether.KeyAddress)
	if !ok {
		return "", errors.New("record has no " + ether.KeyAddress)
	}
	return ether.HexAddress(addr), nil
}

// DeleteRecord deletes the participant's custom record.
func (a *Alice) DeleteRecord(ctx context.Context, id string) (err error) {
	defer err2.Handle(&err, "delete record %s", id)

	try.To(a.store.Delete(ctx, api.RecordTypeCustom, id))
	return nil
}

// Listen answers the inbound offers and requests until ctx is done or the
// runtime is shut down. Handler errors are logged, they don't stop
// listening.
func (a *Alice) Listen(ctx context.Context) error {
	key := bus.KeyType(utils.UUID())
	ch := a.station.AddListener(key)
	defer a.station.RmListener(key)

	glog.V(1).Infoln("listening runtime events:", key)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			a.dispatch(ctx, ev)
		}
	}
}

func (a *Alice) dispatch(ctx context.Context, ev aries.Event) {
	glog.V(3).Infoln("event:", ev)

	var err error
	switch ev.Type {
	case aries.EventCredentialOffer:
		err = a.AcceptCredentialOffer(ctx, ev.Credential)
	case aries.EventProofRequest:
		err = a.AcceptProofRequest(ctx, ev.Proof)
	case aries.EventBasicMessage:
		if ev.Message != nil && !ev.Message.SentByMe {
			fmt.Fprintln(a.out, "message received:", ev.Message.Content)
		}
	case aries.EventConnectionState:
		if ev.Connection != nil {
			glog.V(1).Infoln("connection", ev.Connection.ID, "state:",
				ev.Connection.State)
		}
	default:
		glog.V(3).Infoln("unhandled event:", ev)
	}

	switch {
	case errors.Is(err, prot.ErrDeclined):
		glog.V(1).Infoln("declined:", ev)
	case err != nil:
		glog.Errorln(output.RedText(err))
	}
}

// Restart shuts the runtime down and closes the wallet. The process keeps
// running and a new Alice can be built with the same config.
func (a *Alice) Restart(ctx context.Context) (err error) {
	defer err2.Handle(&err, "restart")

	a.l.Lock()
	defer a.l.Unlock()

	if a.shutdowned {
		glog.Warningln("restart: already shut down")
		return nil
	}
	a.shutdowned = true

	a.stopPump()
	try.To(a.agent.Shutdown(ctx))
	a.closeStore()
	return nil
}

// Exit prints the exit text, shuts down and ends the process with status 0.
func (a *Alice) Exit(ctx context.Context) {
	fmt.Fprintln(a.out, output.Exit)
	if err := a.Restart(ctx); err != nil {
		glog.Errorln("shutdown:", err)
	}
	a.exit(0)
}

func (a *Alice) closeStore() {
	if a.storeCfg == nil {
		return
	}
	if err := a.storeCfg.Close(); err != nil {
		glog.Warningln("wallet close:", err)
	}
}

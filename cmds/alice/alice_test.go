package alice

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/findy-network/findy-alice/agent/alice"
	"github.com/findy-network/findy-alice/agent/aries"
	"github.com/findy-network/findy-alice/agent/ether"
	"github.com/findy-network/findy-alice/agent/pairwise"
	"github.com/findy-network/findy-alice/agent/storage/api"
	"github.com/findy-network/findy-alice/agent/storage/mgddb"
	"github.com/findy-network/findy-alice/agent/storage/mock"
	"github.com/findy-network/findy-alice/cmds"
	"github.com/golang/mock/gomock"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

const testWallet = "cmds_alice_test_wallet"

var (
	testKey       = mgddb.MustGenerateKey()
	testInvitation = "https://example.com/?oob=" + base64.RawURLEncoding.EncodeToString(
		[]byte(`{"@type":"https://didcomm.org/out-of-band/1.0/invitation","@id":"1"}`))
)

func TestMain(m *testing.M) {
	try.To(flag.Set("logtostderr", "true"))
	try.To(flag.Set("stderrthreshold", "WARNING"))
	flag.Parse()

	code := m.Run()
	_ = os.RemoveAll(testWallet + ".bolt")
	os.Exit(code)
}

func baseCmd() Cmd {
	return Cmd{
		Cmd:     cmds.Cmd{WalletName: testWallet, WalletKey: testKey},
		GrpcCmd: cmds.GrpcCmd{Addr: "localhost", Port: 50051, User: "alice"},
	}
}

func TestConnectCmd_Validate(t *testing.T) {
	tests := []struct {
		name string
		cmd  ConnectCmd
		ok   bool
	}{
		{"ok", ConnectCmd{Cmd: baseCmd(), Invitation: testInvitation}, true},
		{"no invitation", ConnectCmd{Cmd: baseCmd()}, false},
		{"bad invitation", ConnectCmd{Cmd: baseCmd(), Invitation: "https://example.com"}, false},
		{"negative ping", ConnectCmd{Cmd: baseCmd(), Invitation: testInvitation, PingEvery: -1}, false},
		{"no agency", ConnectCmd{Cmd: Cmd{Cmd: baseCmd().Cmd}, Invitation: testInvitation}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.PushTester(t)
			defer assert.PopTester()

			err := tt.cmd.Validate()
			if tt.ok {
				assert.NoError(err)
			} else {
				assert.Error(err)
			}
		})
	}
}

type chatter struct {
	sent     []string
	restarts int
	exits    int
	sendErr  error
}

func (c *chatter) SendMessage(_ context.Context, text string) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, text)
	return nil
}

func (c *chatter) Restart(context.Context) error {
	c.restarts++
	return nil
}

func (c *chatter) Exit(context.Context) {
	c.exits++
}

func TestChat(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	ctx := context.Background()
	var out bytes.Buffer

	c := &chatter{}
	done := Chat(ctx, c, strings.NewReader("hello\n\n  world \n/exit\nnot sent\n"), &out)
	assert.That(done)
	assert.DeepEqual(c.sent, []string{"hello", "world"})
	assert.Equal(c.exits, 1)

	c = &chatter{}
	assert.That(Chat(ctx, c, strings.NewReader("/restart\n"), &out))
	assert.Equal(c.restarts, 1)

	c = &chatter{sendErr: errors.New("no connection")}
	assert.That(!Chat(ctx, c, strings.NewReader("hi\n"), &out))
	assert.That(strings.Contains(out.String(), "no connection"))
}

func TestPickConnection(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	_, err := pickConnection(nil)
	assert.Error(err)
	id, err := pickConnection([]api.Connection{{ID: "c1"}})
	assert.NoError(err)
	assert.Equal(id, "c1")
	_, err = pickConnection([]api.Connection{{ID: "c1"}, {ID: "c2"}})
	assert.Error(err)
}

func TestWalletCmds(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	wc := WalletCmd{
		Cmd:         cmds.Cmd{WalletName: testWallet, WalletKey: testKey},
		StoragePath: ".",
	}

	var out bytes.Buffer
	r, err := ShowCmd{WalletCmd: wc}.Exec(&out)
	assert.NoError(err)
	assert.Equal(r.(*ShowResult).EtherAddress, "")
	assert.That(strings.Contains(out.String(), "no ether wallet"))

	sc, s, err := wc.open()
	assert.NoError(err)
	res, err := ether.Provisioner{Store: s.RecordStorage()}.Provision(context.Background())
	assert.NoError(err)
	assert.NoError(s.AddConnection(api.Connection{ID: "c1", TheirLabel: "faber", State: "completed"}))
	assert.NoError(sc.Close())

	out.Reset()
	r, err = ShowCmd{WalletCmd: wc}.Exec(&out)
	assert.NoError(err)
	show := r.(*ShowResult)
	assert.Equal(show.EtherAddress, "0x"+res.Keypair.Address)
	assert.Equal(len(show.Connections), 1)
	js, err := show.JSON()
	assert.NoError(err)
	assert.That(strings.Contains(string(js), res.Keypair.Address))

	del := DeleteCmd{WalletCmd: wc, ID: ether.RecordID}
	assert.NoError(del.Validate())
	_, err = del.Exec(&out)
	assert.NoError(err)

	out.Reset()
	r, err = ShowCmd{WalletCmd: wc}.Exec(&out)
	assert.NoError(err)
	assert.Equal(r.(*ShowResult).EtherAddress, "")

	assert.Error(DeleteCmd{WalletCmd: wc}.Validate())
}

// stubAgent is an agent runtime which never gets a connection from an
// invitation.
type stubAgent struct {
	sync.Mutex
	shutdowns int
	events    chan aries.Event
}

func newStubAgent() *stubAgent {
	return &stubAgent{events: make(chan aries.Event)}
}

func (s *stubAgent) Initialize(context.Context) error { return nil }

func (s *stubAgent) Shutdown(context.Context) error {
	s.Lock()
	defer s.Unlock()
	s.shutdowns++
	close(s.events)
	return nil
}

func (s *stubAgent) Events() <-chan aries.Event { return s.events }

func (s *stubAgent) ReceiveInvitationFromURL(context.Context, string) (*aries.Connection, error) {
	return nil, nil
}

func (s *stubAgent) GetByID(_ context.Context, id string) (*aries.Connection, error) {
	return &aries.Connection{ID: id, State: aries.ConnectionStateInvited}, nil
}

func (s *stubAgent) ReturnWhenIsConnected(ctx context.Context, id string) (*aries.Connection, error) {
	return aries.PollUntilConnected(ctx, s, id, time.Millisecond)
}

func (s *stubAgent) AcceptOffer(context.Context, string) error { return nil }

func (s *stubAgent) SelectCredentialsForRequest(context.Context, string) (aries.ProofFormats, error) {
	return aries.ProofFormats{}, nil
}

func (s *stubAgent) AcceptRequest(context.Context, string, aries.ProofFormats) error {
	return nil
}

func (s *stubAgent) SendMessage(context.Context, string, string) error { return nil }

func (s *stubAgent) Ping(context.Context, string) error { return nil }

func buildWithFailingSave(t *testing.T, agent aries.Agent) *alice.Alice {
	ctrl := gomock.NewController(t)
	store := mock.NewMockRecordStore(ctrl)
	store.EXPECT().Get(gomock.Any(), api.RecordTypeCustom, ether.RecordID).
		Return(nil, api.ErrNotFound).AnyTimes()
	store.EXPECT().Save(gomock.Any(), gomock.Any()).
		Return(errors.New("disk full"))

	a, err := alice.Build(context.Background(), alice.Config{Name: "degraded"},
		agent, alice.WithStore(store), alice.WithOutput(&bytes.Buffer{}))
	assert.NoError(err)
	assert.That(a.Secrets().Failed)
	return a
}

func TestEtherAddress_NotProvisioned(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	a := buildWithFailingSave(t, newStubAgent())
	defer func() { _ = a.Restart(context.Background()) }()

	var out bytes.Buffer
	addr := etherAddress(context.Background(), &out, a)
	assert.Equal(addr, "")
	assert.That(strings.Contains(out.String(), "no ether wallet"))
}

func TestConnectRun_AcceptFails(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	agent := newStubAgent()
	a := buildWithFailingSave(t, agent)

	c := ConnectCmd{
		Cmd:        baseCmd(),
		Invitation: testInvitation,
		Timeout:    time.Second,
		In:         strings.NewReader(""),
	}
	var out bytes.Buffer
	r, err := c.run(context.Background(), &out, a)
	assert.Nil(r)
	assert.That(errors.Is(err, pairwise.ErrNoConnectionRecord))
	assert.That(strings.Contains(out.String(), "no ether wallet"))

	// failed run releases the runtime and the wallet
	agent.Lock()
	assert.Equal(agent.shutdowns, 1)
	agent.Unlock()
	assert.NoError(a.Restart(context.Background()))
}

package alice

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/findy-network/findy-alice/agent/aries"
	"github.com/findy-network/findy-alice/agent/ether"
	"github.com/findy-network/findy-alice/agent/output"
	"github.com/findy-network/findy-alice/agent/pairwise"
	"github.com/findy-network/findy-alice/agent/prot"
	"github.com/findy-network/findy-alice/agent/storage/api"
	"github.com/findy-network/findy-alice/agent/storage/mgddb"
	"github.com/findy-network/findy-alice/agent/storage/mock"
	"github.com/golang/mock/gomock"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

const (
	testWallet = "alice_test_wallet"
	testPath   = "."
)

var testKey = mgddb.MustGenerateKey()

func TestMain(m *testing.M) {
	try.To(flag.Set("logtostderr", "true"))
	try.To(flag.Set("stderrthreshold", "WARNING"))
	try.To(flag.Set("v", "3"))
	flag.Parse()

	code := m.Run()
	_ = os.RemoveAll(testWallet + ".bolt")
	os.Exit(code)
}

// fakeAgent is an in-memory agent runtime. Connections reach the completed
// state after pollsToConnect reads.
type fakeAgent struct {
	sync.Mutex

	pollsToConnect int
	polls          int
	noConnection   bool

	initialized int
	shutdowns   int

	acceptedOffers []string
	acceptedProofs map[string]aries.ProofFormats
	sent           []string
	pings          int
	sendErr        error

	events chan aries.Event
}

func newFakeAgent() *fakeAgent {
	return &fakeAgent{
		pollsToConnect: 3,
		acceptedProofs: make(map[string]aries.ProofFormats),
		events:         make(chan aries.Event, 4),
	}
}

func (f *fakeAgent) Initialize(context.Context) error {
	f.Lock()
	defer f.Unlock()
	f.initialized++
	return nil
}

func (f *fakeAgent) Shutdown(context.Context) error {
	f.Lock()
	defer f.Unlock()
	f.shutdowns++
	close(f.events)
	return nil
}

func (f *fakeAgent) Events() <-chan aries.Event {
	return f.events
}

func (f *fakeAgent) ReceiveInvitationFromURL(_ context.Context, url string) (*aries.Connection, error) {
	if f.noConnection {
		return nil, nil
	}
	return &aries.Connection{ID: "conn-" + url, State: aries.ConnectionStateInvited}, nil
}

func (f *fakeAgent) GetByID(_ context.Context, id string) (*aries.Connection, error) {
	f.Lock()
	defer f.Unlock()
	f.polls++
	st := aries.ConnectionStateRequested
	if f.polls >= f.pollsToConnect {
		st = aries.ConnectionStateCompleted
	}
	return &aries.Connection{ID: id, State: st}, nil
}

func (f *fakeAgent) ReturnWhenIsConnected(ctx context.Context, id string) (*aries.Connection, error) {
	return aries.PollUntilConnected(ctx, f, id, time.Millisecond)
}

func (f *fakeAgent) AcceptOffer(_ context.Context, id string) error {
	f.Lock()
	defer f.Unlock()
	f.acceptedOffers = append(f.acceptedOffers, id)
	return nil
}

func (f *fakeAgent) SelectCredentialsForRequest(context.Context, string) (aries.ProofFormats, error) {
	return aries.ProofFormats{"indy": []byte(`{"auto":true}`)}, nil
}

func (f *fakeAgent) AcceptRequest(_ context.Context, id string, formats aries.ProofFormats) error {
	f.Lock()
	defer f.Unlock()
	f.acceptedProofs[id] = formats
	return nil
}

func (f *fakeAgent) SendMessage(_ context.Context, connID, text string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, connID+":"+text)
	return nil
}

func (f *fakeAgent) Ping(context.Context, string) error {
	f.pings++
	return nil
}

func testConfig() Config {
	return Config{Name: testWallet, Key: testKey, StoragePath: testPath}
}

func TestBuild_ProvisionsOnce(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	ctx := context.Background()
	agent := newFakeAgent()
	a, err := Build(ctx, testConfig(), agent, WithOutput(&bytes.Buffer{}))
	assert.NoError(err)
	assert.Equal(agent.initialized, 1)
	assert.That(a.Secrets().Created)

	addr, err := a.EtherAddress(ctx)
	assert.NoError(err)
	assert.That(strings.HasPrefix(addr, "0x"))
	assert.Equal(len(addr), 42)
	assert.NoError(a.Restart(ctx))
	assert.Equal(agent.shutdowns, 1)

	// second process life with the same wallet keeps the keypair
	agent2 := newFakeAgent()
	a2, err := Build(ctx, testConfig(), agent2, WithOutput(&bytes.Buffer{}))
	assert.NoError(err)
	assert.That(!a2.Secrets().Created)
	addr2, err := a2.EtherAddress(ctx)
	assert.NoError(err)
	assert.Equal(addr2, addr)

	assert.NoError(a2.AcceptConnection(ctx, "url2"))
	conns, err := a2.Connections()
	assert.NoError(err)
	assert.Equal(len(conns), 1)
	assert.Equal(conns[0].ID, "conn-url2")
	assert.NoError(a2.UseConnection("conn-url2"))
	assert.Error(a2.UseConnection("unknown"))

	assert.NoError(a2.DeleteRecord(ctx, ether.RecordID))
	_, err = a2.EtherAddress(ctx)
	assert.That(errors.Is(err, api.ErrNotFound))
	assert.NoError(a2.Restart(ctx))
	assert.NoError(a2.Restart(ctx))
}

func TestBuild_InjectedStore(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	existing := api.NewRecord(api.RecordTypeCustom, ether.RecordID)
	existing.SetMetadata(ether.KeyAddress, "0xABC")

	store := mock.NewMockRecordStore(ctrl)
	store.EXPECT().Get(gomock.Any(), api.RecordTypeCustom, ether.RecordID).
		Return(existing, nil).Times(2)
	store.EXPECT().Save(gomock.Any(), gomock.Any()).Times(0)

	a, err := Build(context.Background(), Config{Name: "injected"},
		newFakeAgent(), WithStore(store))
	assert.NoError(err)
	assert.That(!a.Secrets().Created)
	assert.Equal(a.Secrets().Keypair.Address, "0xABC")

	addr, err := a.EtherAddress(context.Background())
	assert.NoError(err)
	assert.Equal(addr, "0xABC")
	assert.NoError(a.Restart(context.Background()))
}

func TestBuild_StrictSecret(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mock.NewMockRecordStore(ctrl)
	store.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("io error"))

	agent := newFakeAgent()
	_, err := Build(context.Background(), Config{Name: "strict"},
		agent, WithStore(store), WithStrictSecret(true))
	assert.Error(err)
	assert.Equal(agent.initialized, 1)
	assert.Equal(agent.shutdowns, 1)

	_, err = Build(context.Background(), Config{Name: "nil"}, nil)
	assert.Error(err)
}

func newInjected(t *testing.T, agent *fakeAgent, opts ...Option) *Alice {
	ctrl := gomock.NewController(t)
	store := mock.NewMockRecordStore(ctrl)
	store.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, api.ErrNotFound).AnyTimes()
	store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	opts = append([]Option{WithStore(store)}, opts...)
	a, err := Build(context.Background(), Config{Name: "injected"}, agent, opts...)
	assert.NoError(err)
	return a
}

func TestSendMessage(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	ctx := context.Background()
	agent := newFakeAgent()
	a := newInjected(t, agent)

	err := a.SendMessage(ctx, "hello")
	assert.That(errors.Is(err, pairwise.ErrMissingConnectionRecord))
	assert.That(errors.Is(a.Ping(ctx), pairwise.ErrMissingConnectionRecord))
	assert.Equal(len(agent.sent), 0)

	assert.NoError(a.AcceptConnection(ctx, "url1"))
	assert.Equal(agent.polls, 3)
	assert.That(a.Session().Connected())

	assert.NoError(a.SendMessage(ctx, "hello"))
	assert.DeepEqual(agent.sent, []string{"conn-url1:hello"})
	assert.NoError(a.Ping(ctx))
	assert.Equal(agent.pings, 1)

	agent.sendErr = errors.New("transport")
	assert.That(errors.Is(a.SendMessage(ctx, "again"), agent.sendErr))
}

func TestAcceptConnection_NoRecord(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	agent := newFakeAgent()
	agent.noConnection = true
	a := newInjected(t, agent)

	err := a.AcceptConnection(context.Background(), "https://x?oob=e30")
	assert.That(errors.Is(err, pairwise.ErrNoConnectionRecord))
	assert.Equal(a.Session().ConnectionID(), "")
}

func TestListen(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	out := &bytes.Buffer{}
	agent := newFakeAgent()
	onlyProofs := prot.PolicyFunc(func(_ context.Context, ex prot.Exchange) bool {
		return ex.Type == aries.EventProofRequest
	})
	a := newInjected(t, agent, WithOutput(out), WithPolicy(onlyProofs))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- a.Listen(ctx) }()

	agent.events <- aries.Event{ID: "1", Type: aries.EventProofRequest,
		Proof: &aries.ProofExchange{ID: "p1"}}
	agent.events <- aries.Event{ID: "2", Type: aries.EventCredentialOffer,
		Credential: &aries.CredentialExchange{ID: "c1"}}
	agent.events <- aries.Event{ID: "3", Type: aries.EventBasicMessage,
		Message: &aries.BasicMessage{Content: "hi there"}}

	assert.That(waitFor(func() bool {
		agent.Lock()
		defer agent.Unlock()
		return len(agent.acceptedProofs) == 1
	}))
	cancel()
	assert.NoError(<-done)

	agent.Lock()
	assert.Equal(len(agent.acceptedOffers), 0)
	assert.DeepEqual(agent.acceptedProofs["p1"], aries.ProofFormats{"indy": []byte(`{"auto":true}`)})
	agent.Unlock()
}

func TestExit(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	out := &bytes.Buffer{}
	code := -1
	agent := newFakeAgent()
	a := newInjected(t, agent, WithOutput(out), WithExit(func(c int) { code = c }))

	a.Exit(context.Background())
	assert.Equal(code, 0)
	assert.Equal(agent.shutdowns, 1)
	assert.Equal(out.String(), output.Exit+"\n")
}

func waitFor(cond func() bool) bool {
	for i := 0; i < 200; i++ {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

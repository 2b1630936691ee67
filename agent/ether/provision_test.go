package ether

import (
	"context"
	"errors"
	"flag"
	"os"
	"testing"

	"github.com/findy-network/findy-alice/agent/storage/api"
	"github.com/findy-network/findy-alice/agent/storage/mgddb"
	"github.com/findy-network/findy-alice/agent/storage/mock"
	"github.com/golang/mock/gomock"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

const testWallet = "ether_test_wallet"

func TestMain(m *testing.M) {
	try.To(flag.Set("logtostderr", "true"))
	try.To(flag.Set("stderrthreshold", "WARNING"))
	try.To(flag.Set("v", "3"))
	flag.Parse()

	code := m.Run()
	_ = os.RemoveAll(testWallet + ".bolt")
	os.Exit(code)
}

func TestProvision_Idempotent(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	s, err := mgddb.New(api.AgentStorageConfig{
		AgentKey: mgddb.MustGenerateKey(),
		AgentID:  testWallet,
		FilePath: ".",
	})
	assert.NoError(err)
	defer s.Close()

	ctx := context.Background()
	p := Provisioner{Store: s.RecordStorage()}

	res, err := p.Provision(ctx)
	assert.NoError(err)
	assert.That(res.Created)
	assert.That(!res.Failed)

	r, err := s.Get(ctx, api.RecordTypeCustom, RecordID)
	assert.NoError(err)
	assert.Equal(len(r.Metadata), 2)
	assert.Equal(len(r.Metadata[KeyPrivate]), 1)
	assert.Equal(len(r.Metadata[KeyAddress]), 1)
	assert.Equal(r.Metadata[KeyAddress][0], res.Keypair.Address)

	res2, err := p.Provision(ctx)
	assert.NoError(err)
	assert.That(!res2.Created)
	assert.Equal(res2.Keypair, res.Keypair)

	r2, err := s.Get(ctx, api.RecordTypeCustom, RecordID)
	assert.NoError(err)
	assert.DeepEqual(r2.Metadata, r.Metadata)
}

func TestProvision_ExistingRecord(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	existing := api.NewRecord(api.RecordTypeCustom, RecordID)
	existing.SetMetadata(KeyAddress, "0xABC")

	store := mock.NewMockRecordStore(ctrl)
	store.EXPECT().Get(gomock.Any(), api.RecordTypeCustom, RecordID).
		Return(existing, nil)
	store.EXPECT().Save(gomock.Any(), gomock.Any()).Times(0)

	res, err := Provisioner{Store: store}.Provision(context.Background())
	assert.NoError(err)
	assert.That(!res.Created)
	assert.That(!res.Failed)
	assert.Equal(res.Keypair.Address, "0xABC")
	assert.DeepEqual(existing.Metadata[KeyAddress], []string{"0xABC"})
}

func TestProvision_Failures(t *testing.T) {
	readErr := errors.New("disk on fire")
	tests := []struct {
		name      string
		getErr    error
		genErr    error
		saveErr   error
		strict    bool
		saves     int
		wantErr   bool
		wantCreat bool
	}{
		{"absent, created", api.ErrNotFound, nil, nil, false, 1, false, true},
		{"absent, generate fails", api.ErrNotFound, errors.New("rng"), nil, false, 0, false, false},
		{"absent, save fails", api.ErrNotFound, nil, errors.New("full"), false, 1, false, false},
		{"read fails, lenient", readErr, nil, nil, false, 1, false, true},
		{"read fails, strict", readErr, nil, nil, true, 0, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.PushTester(t)
			defer assert.PopTester()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			store := mock.NewMockRecordStore(ctrl)
			store.EXPECT().Get(gomock.Any(), api.RecordTypeCustom, RecordID).
				Return(nil, tt.getErr)
			store.EXPECT().Save(gomock.Any(), gomock.Any()).
				Return(tt.saveErr).Times(tt.saves)

			p := Provisioner{
				Store:  store,
				Strict: tt.strict,
				Generate: func() (Keypair, error) {
					if tt.genErr != nil {
						return Keypair{}, tt.genErr
					}
					return Keypair{PrivateKey: "01", Address: "02"}, nil
				},
			}
			res, err := p.Provision(context.Background())
			if tt.wantErr {
				assert.Error(err)
				assert.That(errors.Is(err, readErr))
			} else {
				assert.NoError(err)
			}
			assert.Equal(res.Created, tt.wantCreat)
			assert.Equal(res.Failed, !tt.wantCreat)
		})
	}
}

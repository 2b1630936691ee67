package mgddb

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/findy-network/findy-alice/agent/storage/api"
	"github.com/findy-network/findy-alice/agent/storage/wrapper"
	"github.com/findy-network/findy-common-go/dto"
	"github.com/golang/glog"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/lainio/err2"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

const (
	NameCustom     = api.RecordTypeCustom
	NameConnection = "connection"
)

var bucketIDs = []string{
	NameCustom,
	NameConnection,
}

type Storage struct {
	*wrapper.StorageProvider
	recordStores map[string]wrapper.Store
	connStore    wrapper.Store
}

func New(config api.AgentStorageConfig) (a *Storage, err error) {
	defer err2.Handle(&err, "mgddb storage new")

	me := &Storage{
		StorageProvider: wrapper.New(wrapper.Config{
			Key:       config.AgentKey,
			FileName:  config.AgentID,
			FilePath:  config.FilePath,
			BucketIDs: bucketIDs,
		}),
		recordStores: make(map[string]wrapper.Store),
	}

	try.To(me.Init())

	var ok bool
	for _, name := range []string{NameCustom} {
		s := try.To1(me.OpenStore(name))
		me.recordStores[name], ok = s.(wrapper.Store)
		assert.That(ok, "record store should always be wrapper store")
	}

	connStore := try.To1(me.OpenStore(NameConnection))
	me.connStore, ok = connStore.(wrapper.Store)
	assert.That(ok, "conn store should always be wrapper store")

	return me, nil
}

// agent storage
func (s *Storage) Open() error {
	return s.Init()
}

func (s *Storage) RecordStorage() api.RecordStore {
	return s
}

func (s *Storage) ConnectionStorage() api.ConnectionStorage {
	return s
}

// RecordStore

func (s *Storage) store(recordType string) (wrapper.Store, error) {
	st, ok := s.recordStores[recordType]
	if !ok {
		return nil, errors.New("unsupported record type: " + recordType)
	}
	return st, nil
}

func (s *Storage) Get(_ context.Context, recordType, id string) (r *api.Record, err error) {
	defer err2.Handle(&err, "record storage get %s/%s", recordType, id)

	st := try.To1(s.store(recordType))
	bytes, err := st.Get(id)
	if errors.Is(err, storage.ErrDataNotFound) {
		return nil, api.ErrNotFound
	}
	try.To(err)

	r = &api.Record{}
	dto.FromGOB(bytes, r)
	return r, nil
}

func (s *Storage) Save(_ context.Context, r *api.Record) (err error) {
	if r == nil {
		return errors.New("record storage save: nil record")
	}
	defer err2.Handle(&err, "record storage save %s/%s", r.Type, r.ID)

	st := try.To1(s.store(r.Type))
	tags := make([]storage.Tag, 0, len(r.Tags))
	for name, value := range r.Tags {
		tags = append(tags, storage.Tag{Name: name, Value: value})
	}
	try.To(st.Put(r.ID, dto.ToGOB(r), tags...))
	glog.V(3).Infoln("record saved:", r.Type, r.ID)
	return nil
}

func (s *Storage) Delete(_ context.Context, recordType, id string) (err error) {
	defer err2.Handle(&err, "record storage delete %s/%s", recordType, id)

	st := try.To1(s.store(recordType))
	try.To(st.Delete(id))
	glog.V(3).Infoln("record deleted:", recordType, id)
	return nil
}

// ConnectionStorage

func (s *Storage) AddConnection(conn api.Connection) error {
	return s.connStore.Put(conn.ID, dto.ToGOB(conn),
		storage.Tag{Name: "state", Value: conn.State})
}

func (s *Storage) GetConnection(id string) (conn *api.Connection, err error) {
	defer err2.Handle(&err, "conn storage get conn")

	bytes := try.To1(s.connStore.Get(id))

	conn = &api.Connection{}
	dto.FromGOB(bytes, conn)
	return conn, nil
}

func (s *Storage) ListConnections() (res []api.Connection, err error) {
	defer err2.Handle(&err, "conn storage list conn")

	res = make([]api.Connection, 0)
	try.To1(s.connStore.GetAll(func(bytes []byte) []byte {
		conn := api.Connection{}
		dto.FromGOB(bytes, &conn)
		res = append(res, conn)
		return bytes
	}))

	return res, nil
}

// GenerateKey returns a new random storage key in hex.
func GenerateKey() (key string, err error) {
	defer err2.Handle(&err, "generate storage key")

	k := make([]byte, 32)
	try.To1(rand.Read(k))
	return hex.EncodeToString(k), nil
}

// MustGenerateKey is GenerateKey which panics on error. It's for tests and
// package level variables.
func MustGenerateKey() string {
	return try.To1(GenerateKey())
}

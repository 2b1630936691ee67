// Package api defines the record storage contract of the agent. Records are
// opaque, tagged units of persistent state kept in the agent's encrypted
// key-value store.
package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang/glog"
	"github.com/hyperledger/aries-framework-go/spi/storage"
)

// RecordTypeCustom is the record type of the participant's own records.
const RecordTypeCustom = "CustomRecord"

// ErrNotFound is returned by RecordStore.Get when the record is absent. It
// wraps the aries storage ErrDataNotFound so both can be tested with
// errors.Is.
var ErrNotFound = fmt.Errorf("record not found: %w", storage.ErrDataNotFound)

type AgentStorageConfig struct {
	AgentKey string
	AgentID  string
	FilePath string
}

// Record is a persisted unit keyed by ID inside its Type namespace.
type Record struct {
	ID       string
	Type     string
	Metadata map[string][]string
	Tags     map[string]string
}

// NewRecord returns an empty record of the given type.
func NewRecord(recordType, id string) *Record {
	return &Record{
		ID:       id,
		Type:     recordType,
		Metadata: make(map[string][]string),
		Tags:     make(map[string]string),
	}
}

// SetMetadata replaces the values of the metadata key.
func (r *Record) SetMetadata(key string, values ...string) {
	if r.Metadata == nil {
		r.Metadata = make(map[string][]string)
	}
	r.Metadata[key] = values
}

// MetadataValue returns the first value of the metadata key.
func (r *Record) MetadataValue(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	v, ok := r.Metadata[key]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

//go:generate mockgen -destination=../mock/mock_storage.go -package=mock . RecordStore

// RecordStore is the minimal accessor over the external record store. Save
// does not check uniqueness, callers must look the record up first.
type RecordStore interface {
	Get(ctx context.Context, recordType, id string) (*Record, error)
	Save(ctx context.Context, r *Record) error
	Delete(ctx context.Context, recordType, id string) error
}

type AgentStorage interface {
	Open() error
	Close() error

	RecordStorage() RecordStore
	ConnectionStorage() ConnectionStorage

	OpenStore(name string) (storage.Store, error)
}

// Connection is the locally remembered part of a pairwise connection.
type Connection struct {
	ID         string
	TheirLabel string
	State      string
}

type ConnectionStorage interface {
	AddConnection(conn Connection) error
	GetConnection(id string) (*Connection, error)
	ListConnections() ([]Connection, error)
}

// LookupResult tells apart a missing record from a failed read.
type LookupResult int

const (
	Absent LookupResult = iota
	Found
	Failed
)

func (l LookupResult) String() string {
	return [...]string{"Absent", "Found", "Failed"}[l]
}

// Lookup reads a record and classifies the outcome. The error is non-nil
// only when the result is Failed.
func Lookup(
	ctx context.Context,
	s RecordStore,
	recordType, id string,
) (
	res LookupResult,
	r *Record,
	err error,
) {
	r, err = s.Get(ctx, recordType, id)
	switch {
	case err == nil && r != nil:
		return Found, r, nil
	case err == nil, errors.Is(err, storage.ErrDataNotFound):
		return Absent, nil, nil
	default:
		return Failed, nil, err
	}
}

// GetOrNil is a lookup which collapses every failure to "absent". Errors are
// only logged.
func GetOrNil(ctx context.Context, s RecordStore, recordType, id string) *Record {
	res, r, err := Lookup(ctx, s, recordType, id)
	if res == Failed {
		glog.V(1).Infof("record %s/%s read error treated as absent: %v",
			recordType, id, err)
	}
	return r
}

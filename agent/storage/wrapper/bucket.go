package wrapper

import (
	"errors"
	"fmt"
	"strings"

	"github.com/findy-network/findy-common-go/crypto/db"
	"github.com/findy-network/findy-common-go/dto"
	"github.com/golang/glog"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// entry is the value layout inside a bucket. The key is kept in the value
// because bucket keys are hashed.
type entry struct {
	Key   string
	Value []byte
	Tags  []storage.Tag
}

type bucket struct {
	name     string
	bucketID byte
	owner    *StorageProvider
}

func newBucket(owner *StorageProvider, name string, bucketID byte) *bucket {
	return &bucket{
		name:     name,
		owner:    owner,
		bucketID: bucketID,
	}
}

// Put stores the key + value pair along with the (optional) tags.
// If key is empty or value is nil, then an error will be returned.
func (b *bucket) Put(key string, value []byte, tags ...storage.Tag) (err error) {
	glog.V(level7).Infoln("bucket::Put", b.name, key, tags)

	if key == "" || value == nil {
		return errors.New("key and value are mandatory")
	}
	return b.owner.addData(b.bucketID, []byte(key), dto.ToGOB(entry{
		Key:   key,
		Value: value,
		Tags:  tags,
	}))
}

func (b *bucket) get(key string) (e *entry, err error) {
	if key == "" {
		return nil, errors.New("key is mandatory")
	}
	data, found, err := b.owner.getData(b.bucketID, []byte(key))
	if err != nil {
		return nil, err
	}
	if !found || len(data) == 0 {
		return nil, fmt.Errorf("%s/%s: %w", b.name, key, storage.ErrDataNotFound)
	}
	e = new(entry)
	dto.FromGOB(data, e)
	return e, nil
}

// Get fetches the value associated with the given key.
// If key cannot be found, then an error wrapping ErrDataNotFound will be returned.
func (b *bucket) Get(key string) (data []byte, err error) {
	defer err2.Handle(&err)

	glog.V(level7).Infoln("bucket::Get", b.name, key)

	e := try.To1(b.get(key))
	return e.Value, nil
}

func (b *bucket) GetTags(key string) (tags []storage.Tag, err error) {
	defer err2.Handle(&err)

	glog.V(level7).Infoln("bucket::GetTags", b.name, key)

	e := try.To1(b.get(key))
	return e.Tags, nil
}

func (b *bucket) GetBulk(keys ...string) (values [][]byte, err error) {
	glog.V(level7).Infoln("bucket::GetBulk", b.name, keys)

	values = make([][]byte, len(keys))
	for i, k := range keys {
		e, err := b.get(k)
		switch {
		case errors.Is(err, storage.ErrDataNotFound):
			continue
		case err != nil:
			return nil, err
		}
		values[i] = e.Value
	}
	return values, nil
}

// Delete deletes the key + value pair (and all tags) associated with key.
// If key is empty, then an error will be returned.
func (b *bucket) Delete(key string) error {
	glog.V(level7).Infoln("bucket::Delete", b.name, key)

	if key == "" {
		return errors.New("key is mandatory")
	}
	return b.owner.deleteData(b.bucketID, []byte(key))
}

// GetAll returns all of the raw values of the bucket. The transform is
// called for every value.
func (b *bucket) GetAll(transform db.Filter) ([][]byte, error) {
	glog.V(level7).Infoln("bucket::GetAll", b.name)

	return b.owner.getAll(b.bucketID, func(d []byte) []byte {
		e := entry{}
		dto.FromGOB(d, &e)
		if transform != nil {
			return transform(e.Value)
		}
		return e.Value
	})
}

// Query supports the tag name and tag name:value expressions. Query options
// are ignored.
func (b *bucket) Query(expression string, _ ...storage.QueryOption) (it storage.Iterator, err error) {
	defer err2.Handle(&err, "bucket query")

	glog.V(level7).Infoln("bucket::Query", b.name, expression)

	name, value, hasValue := strings.Cut(expression, ":")
	if name == "" {
		return nil, fmt.Errorf("invalid expression: %q", expression)
	}

	hits := make([]entry, 0)
	try.To1(b.owner.getAll(b.bucketID, func(d []byte) []byte {
		e := entry{}
		dto.FromGOB(d, &e)
		for _, t := range e.Tags {
			if t.Name == name && (!hasValue || t.Value == value) {
				hits = append(hits, e)
				break
			}
		}
		return d
	}))
	return &iterator{entries: hits, pos: -1}, nil
}

// Batch executes the operations in order. An operation with a nil value is a
// delete.
func (b *bucket) Batch(operations []storage.Operation) (err error) {
	defer err2.Handle(&err, "bucket batch")

	glog.V(level7).Infoln("bucket::Batch", b.name, len(operations))

	for _, op := range operations {
		if op.Value == nil {
			try.To(b.Delete(op.Key))
			continue
		}
		try.To(b.Put(op.Key, op.Value, op.Tags...))
	}
	return nil
}

// Flush is a no-op, every write is committed immediately.
func (b *bucket) Flush() error {
	return nil
}

// Close closes this store object, freeing resources. For persistent store implementations, this does not delete
// any data in the underlying databases.
func (b *bucket) Close() error {
	glog.V(level7).Infoln("bucket::Close", b.name)
	// StorageProvider owns the file handle
	return nil
}

type iterator struct {
	entries []entry
	pos     int
}

func (it *iterator) Next() (bool, error) {
	it.pos++
	return it.pos < len(it.entries), nil
}

func (it *iterator) current() (*entry, error) {
	if it.pos < 0 || it.pos >= len(it.entries) {
		return nil, errors.New("iterator out of range")
	}
	return &it.entries[it.pos], nil
}

func (it *iterator) Key() (string, error) {
	e, err := it.current()
	if err != nil {
		return "", err
	}
	return e.Key, nil
}

func (it *iterator) Value() ([]byte, error) {
	e, err := it.current()
	if err != nil {
		return nil, err
	}
	return e.Value, nil
}

func (it *iterator) Tags() ([]storage.Tag, error) {
	e, err := it.current()
	if err != nil {
		return nil, err
	}
	return e.Tags, nil
}

func (it *iterator) TotalItems() (int, error) {
	return len(it.entries), nil
}

func (it *iterator) Close() error {
	return nil
}

// Package wrapper implements an encrypted, bolt backed storage provider. It
// implements the aries storage Provider and Store interfaces so the same
// buckets can serve both the agent's own records and aries components.
package wrapper

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/findy-network/findy-common-go/crypto"
	"github.com/findy-network/findy-common-go/crypto/db"
	"github.com/golang/glog"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

const level7 = 7

// ErrClosed is returned when the provider is used before Init or after Close.
var ErrClosed = fmt.Errorf("storage provider is closed")

type Store interface {
	storage.Store
	GetAll(transform db.Filter) ([][]byte, error)
}

type Config struct {
	Key       string
	FileName  string
	FilePath  string
	BucketIDs []string
}

// Filename returns the full path of the bolt file.
func (c Config) Filename() string {
	path := "."
	if c.FilePath != "" {
		path = c.FilePath
	}
	return filepath.Join(path, c.FileName+".bolt")
}

type StorageProvider struct {
	l sync.RWMutex

	conf    Config
	db      db.Handle
	buckets map[string]*bucket
	configs map[string]storage.StoreConfiguration
	cipher  *crypto.Cipher
}

func New(config Config) *StorageProvider {
	s := &StorageProvider{
		conf:    config,
		buckets: make(map[string]*bucket),
		configs: make(map[string]storage.StoreConfiguration),
	}

	var bucketKey byte
	for _, name := range s.conf.BucketIDs {
		s.buckets[name] = newBucket(s, name, bucketKey)
		bucketKey++
	}

	return s
}

func (s *StorageProvider) Init() (err error) {
	defer err2.Handle(&err, "storage provider init")

	s.l.Lock()
	defer s.l.Unlock()

	if s.db != nil {
		glog.Warningf("skipping storage provider initialization for %s, already open", s.conf.FileName)
		return nil
	}
	if len(s.conf.BucketIDs) == 0 {
		return fmt.Errorf("no buckets specified")
	}

	k := try.To1(hex.DecodeString(s.conf.Key))
	s.cipher = crypto.NewCipher(k)

	mgdBuckets := make([][]byte, 0, len(s.conf.BucketIDs))
	for _, b := range s.buckets {
		mgdBuckets = append(mgdBuckets, []byte{b.bucketID})
	}

	filename := s.conf.Filename()

	// this will not open the file handle to db, just initializes it
	s.db = db.New(db.Cfg{
		Filename:   filename,
		Buckets:    mgdBuckets,
		BackupName: filename + "_backup",
	})
	glog.V(3).Infoln("storage provider ready:", filename)

	return nil
}

func (s *StorageProvider) ID() string {
	return s.conf.FileName
}

func (s *StorageProvider) Key() string {
	return s.conf.Key
}

// IsOpen tells if Init is called and Close is not.
func (s *StorageProvider) IsOpen() bool {
	s.l.RLock()
	defer s.l.RUnlock()
	return s.db != nil
}

// OpenStore returns the bucket by its name. Only buckets given in Config are
// available.
func (s *StorageProvider) OpenStore(name string) (storage.Store, error) {
	glog.V(level7).Infoln("StorageProvider::OpenStore", s.ID(), name)

	if b, ok := s.buckets[name]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("store %s: %w", name, storage.ErrStoreNotFound)
}

func (s *StorageProvider) SetStoreConfig(name string, config storage.StoreConfiguration) error {
	glog.V(level7).Infoln("StorageProvider::SetStoreConfig", name)

	if _, ok := s.buckets[name]; !ok {
		return fmt.Errorf("store %s: %w", name, storage.ErrStoreNotFound)
	}
	s.l.Lock()
	defer s.l.Unlock()
	s.configs[name] = config
	return nil
}

func (s *StorageProvider) GetStoreConfig(name string) (storage.StoreConfiguration, error) {
	glog.V(level7).Infoln("StorageProvider::GetStoreConfig", name)

	s.l.RLock()
	defer s.l.RUnlock()
	c, ok := s.configs[name]
	if !ok {
		return storage.StoreConfiguration{},
			fmt.Errorf("store %s: %w", name, storage.ErrStoreNotFound)
	}
	return c, nil
}

func (s *StorageProvider) GetOpenStores() []storage.Store {
	glog.V(level7).Infoln("StorageProvider::GetOpenStores")

	stores := make([]storage.Store, 0, len(s.buckets))
	if !s.IsOpen() {
		return stores
	}
	for _, b := range s.buckets {
		stores = append(stores, b)
	}
	return stores
}

func (s *StorageProvider) Close() (err error) {
	defer err2.Handle(&err, "storage provider close")

	s.l.Lock()
	defer s.l.Unlock()

	if s.db == nil {
		glog.Warningf("skipping storage provider close for %s, already closed", s.conf.FileName)
		return nil
	}

	try.To(s.db.Close())
	s.db = nil
	return nil
}

func (s *StorageProvider) addData(bucketID byte, key, value []byte) (err error) {
	s.l.RLock()
	defer s.l.RUnlock()

	if s.db == nil {
		return ErrClosed
	}
	return s.db.AddKeyValueToBucket([]byte{bucketID},
		&db.Data{
			Data: value,
			Read: s.encrypt,
		},
		&db.Data{
			Data: key,
			Read: s.hash,
		},
	)
}

func (s *StorageProvider) getData(
	bucketID byte,
	key []byte,
) (
	value []byte,
	found bool,
	err error,
) {
	s.l.RLock()
	defer s.l.RUnlock()

	if s.db == nil {
		return nil, false, ErrClosed
	}
	data := &db.Data{
		Write: s.decrypt,
		Use: func(d []byte) interface{} {
			value = append(d[:0:0], d...)
			return nil
		},
	}
	found, err = s.db.GetKeyValueFromBucket([]byte{bucketID},
		&db.Data{
			Data: key,
			Read: s.hash,
		},
		data)

	return value, found, err
}

func (s *StorageProvider) deleteData(bucketID byte, key []byte) (err error) {
	s.l.RLock()
	defer s.l.RUnlock()

	if s.db == nil {
		return ErrClosed
	}
	return s.db.RmKeyValueFromBucket([]byte{bucketID}, &db.Data{
		Data: key,
		Read: s.hash,
	})
}

func (s *StorageProvider) getAll(bucketID byte, transform db.Filter) (res [][]byte, err error) {
	s.l.RLock()
	defer s.l.RUnlock()

	if s.db == nil {
		return nil, ErrClosed
	}
	return s.db.GetAllValuesFromBucket([]byte{bucketID}, s.decrypt, transform)
}

// hash makes the cryptographic hash of the key so the plain key values are
// never written to the file.
func (s *StorageProvider) hash(key []byte) (k []byte) {
	// TODO: salt the key hash with a per-store value kept next to the key.
	if s.cipher != nil {
		h := md5.Sum(key)
		return h[:]
	}
	return append(key[:0:0], key...)
}

func (s *StorageProvider) encrypt(value []byte) (k []byte) {
	if s.cipher != nil {
		return s.cipher.TryEncrypt(value)
	}
	return append(value[:0:0], value...)
}

func (s *StorageProvider) decrypt(value []byte) (k []byte) {
	if s.cipher != nil {
		return s.cipher.TryDecrypt(value)
	}
	return append(value[:0:0], value...)
}

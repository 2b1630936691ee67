// Package cfg keeps track of the opened agent storages. Every storage file is
// opened only once per process, and the same instance is returned to all of
// the callers using the same configuration.
package cfg

import (
	"encoding/hex"
	"errors"
	"path/filepath"
	"sync"

	"github.com/findy-network/findy-alice/agent/storage/api"
	"github.com/findy-network/findy-alice/agent/storage/mgddb"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"golang.org/x/crypto/argon2"
)

const keyLen = 32

type AgentStorage struct {
	api.AgentStorageConfig
}

type StorageInfo struct {
	storage *mgddb.Storage
	isOpen  bool
}

type InfoMap map[string]StorageInfo

var storages = struct {
	InfoMap
	sync.Mutex
}{
	InfoMap: make(InfoMap),
}

// New returns a storage config for the named wallet. The storage key is
// derived from the password.
func New(name, password, path string) *AgentStorage {
	return &AgentStorage{AgentStorageConfig: api.AgentStorageConfig{
		AgentKey: KeyFromPassword(name, password),
		AgentID:  name,
		FilePath: path,
	}}
}

// KeyFromPassword derives a hex encoded storage key with argon2id. The wallet
// name is the salt.
func KeyFromPassword(name, password string) string {
	k := argon2.IDKey([]byte(password), []byte("findy-alice/"+name),
		1, 64*1024, 4, keyLen)
	return hex.EncodeToString(k)
}

func (c *AgentStorage) UniqueID() string {
	return filepath.Join(c.FilePath, c.AgentID)
}

func (c *AgentStorage) ID() string {
	return c.AgentID
}

func (c *AgentStorage) Key() string {
	return c.AgentKey
}

func (c *AgentStorage) validate() error {
	if c.AgentID == "" {
		return errors.New("wallet name cannot be empty")
	}
	k, err := hex.DecodeString(c.AgentKey)
	if err != nil || len(k) != keyLen {
		return errors.New("wallet key must be 32 bytes in hex")
	}
	return nil
}

// Open opens the storage or returns the already opened one.
func (c *AgentStorage) Open() (s *mgddb.Storage, err error) {
	defer err2.Handle(&err, "open agent storage from cfg")

	try.To(c.validate())

	storages.Lock()
	defer storages.Unlock()

	info, exist := storages.InfoMap[c.UniqueID()]
	if exist {
		if info.storage.Key() != c.AgentKey {
			return nil, errors.New("wallet key mismatch")
		}
		try.To(info.storage.Open())
		glog.V(5).Infoln("open existing agent storage:", c.AgentID)
		info.isOpen = true
		storages.InfoMap[c.UniqueID()] = info
		return info.storage, nil
	}

	aStorage := try.To1(mgddb.New(c.AgentStorageConfig))
	glog.V(5).Infoln("successful first time opening agent storage:", c.AgentID)

	storages.InfoMap[c.UniqueID()] = StorageInfo{
		storage: aStorage,
		isOpen:  true,
	}
	return aStorage, nil
}

// Close closes the storage if it's open. Closing a closed storage is not an
// error.
func (c *AgentStorage) Close() (err error) {
	defer err2.Handle(&err, "close agent storage from cfg")

	storages.Lock()
	defer storages.Unlock()

	info, exist := storages.InfoMap[c.UniqueID()]
	if !exist {
		return errors.New("agent storage not opened: " + c.AgentID)
	}

	if info.isOpen {
		try.To(info.storage.Close())
		glog.V(5).Infoln("successful closing agent storage:", c.AgentID)
		// closing flag is updated only if Close() success
		info.isOpen = false
		storages.InfoMap[c.UniqueID()] = info
	} else {
		glog.Warningf("Close called but storage (%s) not open!",
			c.UniqueID())
	}
	return nil
}

// IsOpen tells if the storage is opened by this process.
func (c *AgentStorage) IsOpen() bool {
	storages.Lock()
	defer storages.Unlock()
	info, exist := storages.InfoMap[c.UniqueID()]
	return exist && info.isOpen
}

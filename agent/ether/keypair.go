// Package ether provisions the participant's Ethereum keypair. The keypair is
// kept in a single record inside the agent's encrypted record storage and it
// is generated only once.
package ether

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/btcsuite/btcd/btcec"
	"github.com/findy-network/findy-alice/agent/storage/api"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"golang.org/x/crypto/sha3"
)

const (
	// RecordID is the ID of the keypair record.
	RecordID = "ether"

	KeyPrivate = "etherPrivate"
	KeyAddress = "etherAddress"

	addressLen = 20
)

// Keypair is a secp256k1 keypair with its Ethereum address. Both values are
// lower case hex without the 0x prefix.
type Keypair struct {
	PrivateKey string
	Address    string
}

// Generate creates a new random keypair.
func Generate() (kp Keypair, err error) {
	defer err2.Handle(&err, "generate ether keypair")

	priv := try.To1(btcec.NewPrivateKey(btcec.S256()))
	return Keypair{
		PrivateKey: hex.EncodeToString(priv.Serialize()),
		Address:    hex.EncodeToString(address(priv.PubKey())),
	}, nil
}

// FromPrivateKey rebuilds the keypair from the hex private key.
func FromPrivateKey(privHex string) (kp Keypair, err error) {
	defer err2.Handle(&err, "ether keypair from private key")

	d := try.To1(hex.DecodeString(privHex))
	if len(d) != btcec.PrivKeyBytesLen {
		return kp, errors.New("invalid private key length")
	}
	_, pub := btcec.PrivKeyFromBytes(btcec.S256(), d)
	return Keypair{
		PrivateKey: privHex,
		Address:    hex.EncodeToString(address(pub)),
	}, nil
}

// address is the last 20 bytes of keccak256 over the uncompressed public key
// without its 0x04 prefix.
func address(pub *btcec.PublicKey) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(pub.SerializeUncompressed()[1:])
	sum := h.Sum(nil)
	return sum[len(sum)-addressLen:]
}

// Record builds the storage record of the keypair.
func (kp Keypair) Record() *api.Record {
	r := api.NewRecord(api.RecordTypeCustom, RecordID)
	r.SetMetadata(KeyPrivate, kp.PrivateKey)
	r.SetMetadata(KeyAddress, kp.Address)
	return r
}

// FromRecord reads the keypair from the storage record. The fields found
// are returned even when the record is incomplete.
func FromRecord(r *api.Record) (kp Keypair, err error) {
	if r == nil {
		return kp, errors.New("nil record")
	}
	var hasPrivate, hasAddress bool
	kp.PrivateKey, hasPrivate = r.MetadataValue(KeyPrivate)
	kp.Address, hasAddress = r.MetadataValue(KeyAddress)
	switch {
	case !hasPrivate:
		return kp, errors.New("record has no " + KeyPrivate)
	case !hasAddress:
		return kp, errors.New("record has no " + KeyAddress)
	}
	return kp, nil
}

// HexAddress returns the address with the 0x prefix.
func HexAddress(addr string) string {
	if strings.HasPrefix(addr, "0x") {
		return addr
	}
	return "0x" + addr
}

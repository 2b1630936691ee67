package alice

import (
	"context"
	"errors"
	"io"

	"github.com/findy-network/findy-alice/agent/ether"
	"github.com/findy-network/findy-alice/agent/storage/api"
	"github.com/findy-network/findy-alice/agent/storage/cfg"
	"github.com/findy-network/findy-alice/agent/storage/mgddb"
	"github.com/findy-network/findy-alice/cmds"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// WalletCmd works on the wallet file only, the cloud agent isn't needed.
type WalletCmd struct {
	cmds.Cmd
	StoragePath string
}

func (c WalletCmd) storage() *cfg.AgentStorage {
	return &cfg.AgentStorage{AgentStorageConfig: api.AgentStorageConfig{
		AgentKey: c.WalletKey,
		AgentID:  c.WalletName,
		FilePath: c.StoragePath,
	}}
}

func (c WalletCmd) open() (*cfg.AgentStorage, *mgddb.Storage, error) {
	sc := c.storage()
	s, err := sc.Open()
	return sc, s, err
}

type ShowCmd struct {
	WalletCmd
}

type ShowResult struct {
	EtherAddress string           `json:"etherAddress,omitempty"`
	Connections  []api.Connection `json:"connections"`
}

func (r *ShowResult) JSON() ([]byte, error) {
	return jsonResult(r)
}

func (c ShowCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "wallet show")

	sc, s := try.To2(c.open())
	defer func() { _ = sc.Close() }()

	res := &ShowResult{}
	rec := api.GetOrNil(context.Background(), s.RecordStorage(),
		api.RecordTypeCustom, ether.RecordID)
	if addr, ok := rec.MetadataValue(ether.KeyAddress); ok {
		res.EtherAddress = ether.HexAddress(addr)
		cmds.Fprintln(w, "ether address:", res.EtherAddress)
	} else {
		cmds.Fprintln(w, "no ether wallet")
	}

	res.Connections = try.To1(s.ListConnections())
	for _, conn := range res.Connections {
		cmds.Fprintf(w, "connection: %s %s %s\n", conn.ID, conn.TheirLabel, conn.State)
	}
	return res, nil
}

type DeleteCmd struct {
	WalletCmd
	ID string
}

func (c DeleteCmd) Validate() error {
	if err := c.WalletCmd.Validate(); err != nil {
		return err
	}
	if c.ID == "" {
		return errors.New("record id cannot be empty")
	}
	return nil
}

func (c DeleteCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "wallet delete")

	sc, s := try.To2(c.open())
	defer func() { _ = sc.Close() }()

	try.To(s.Delete(context.Background(), api.RecordTypeCustom, c.ID))
	cmds.Fprintln(w, "record deleted:", c.ID)
	return nil, nil
}

// Package alice has the command implementations of the participant CLI.
package alice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/findy-network/findy-alice/agent/alice"
	"github.com/findy-network/findy-alice/agent/cloud"
	"github.com/findy-network/findy-alice/cmds"
)

// Cmd is the base of the commands which run the participant against the
// cloud agent.
type Cmd struct {
	cmds.Cmd
	cmds.GrpcCmd

	Label        string
	StoragePath  string
	StrictSecret bool
	PollInterval time.Duration
}

func (c Cmd) Validate() error {
	if err := c.Cmd.Validate(); err != nil {
		return err
	}
	if err := c.GrpcCmd.Validate(); err != nil {
		return err
	}
	return nil
}

// Build builds the participant over a new cloud agent runtime.
func (c Cmd) Build(ctx context.Context, w io.Writer, opts ...alice.Option) (*alice.Alice, error) {
	agent := cloud.New(cloud.Config{
		User:         c.User,
		TLSPath:      c.TLSPath,
		Addr:         c.Addr,
		Port:         c.Port,
		Label:        c.Label,
		PollInterval: c.PollInterval,
	})
	opts = append([]alice.Option{
		alice.WithOutput(w),
		alice.WithStrictSecret(c.StrictSecret),
	}, opts...)
	return alice.Build(ctx, alice.Config{
		Name:        c.WalletName,
		Key:         c.WalletKey,
		StoragePath: c.StoragePath,
	}, agent, opts...)
}

type Result struct {
	ConnectionID string `json:"connectionId,omitempty"`
	EtherAddress string `json:"etherAddress,omitempty"`
}

func (r *Result) JSON() ([]byte, error) {
	if r == nil {
		return nil, errors.New("nil result")
	}
	return json.Marshal(r)
}

func jsonResult(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

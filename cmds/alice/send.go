package alice

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/findy-network/findy-alice/agent/storage/api"
	"github.com/findy-network/findy-alice/cmds"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// SendCmd sends a basic message over a connection accepted earlier.
type SendCmd struct {
	Cmd
	ConnectionID string
	Msg          string
}

func (c SendCmd) Validate() error {
	if err := c.Cmd.Validate(); err != nil {
		return err
	}
	if c.Msg == "" {
		return errors.New("message cannot be empty")
	}
	return nil
}

func (c SendCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "send")

	ctx := context.Background()
	a := try.To1(c.Build(ctx, w))
	defer func() {
		if rerr := a.Restart(ctx); rerr != nil && err == nil {
			err = rerr
		}
	}()

	connID := c.ConnectionID
	if connID == "" {
		connID = try.To1(pickConnection(try.To1(a.Connections())))
	}
	try.To(a.UseConnection(connID))
	try.To(a.SendMessage(ctx, c.Msg))
	cmds.Fprintln(w, "message sent to", connID)

	return &Result{ConnectionID: connID}, nil
}

// pickConnection returns the only saved connection.
func pickConnection(conns []api.Connection) (string, error) {
	switch len(conns) {
	case 0:
		return "", errors.New("no saved connections, run connect first")
	case 1:
		return conns[0].ID, nil
	default:
		return "", fmt.Errorf("%d saved connections, select one with --connection-id", len(conns))
	}
}

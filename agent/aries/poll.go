package aries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang/glog"
)

// DefaultPollInterval is the connection state polling interval.
const DefaultPollInterval = 500 * time.Millisecond

// ErrAbandoned is returned when the awaited connection was abandoned.
var ErrAbandoned = errors.New("connection abandoned")

type ConnectionGetter interface {
	GetByID(ctx context.Context, id string) (*Connection, error)
}

// PollUntilConnected implements ReturnWhenIsConnected over GetByID. It polls
// with a constant interval until the state is connected. There is no timeout,
// only the context ends the wait, and then ctx.Err() is returned. It's noticed
// within one interval. Read errors are retried.
func PollUntilConnected(
	ctx context.Context,
	g ConnectionGetter,
	id string,
	interval time.Duration,
) (
	c *Connection,
	err error,
) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	polls := 0
	op := func() error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return backoff.Permanent(ctxErr)
		}
		polls++
		conn, err := g.GetByID(ctx, id)
		if err != nil {
			glog.V(3).Infof("poll %d: connection %s read: %v", polls, id, err)
			return err
		}
		glog.V(3).Infof("poll %d: connection %s state: %s", polls, id, conn.State)
		switch {
		case conn.State.IsConnected():
			c = conn
			return nil
		case conn.State == ConnectionStateAbandoned:
			return backoff.Permanent(fmt.Errorf("%s: %w", id, ErrAbandoned))
		}
		return fmt.Errorf("connection %s not ready: %s", id, conn.State)
	}
	// no backoff.WithContext: it stops before the deadline when the deadline
	// is closer than one interval, and the caller must see ctx.Err()
	if err = backoff.Retry(op, backoff.NewConstantBackOff(interval)); err != nil {
		return nil, err
	}
	return c, nil
}

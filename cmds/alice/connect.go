package alice

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/findy-network/findy-alice/agent/alice"
	"github.com/findy-network/findy-alice/agent/ether"
	"github.com/findy-network/findy-alice/cmds"
	"github.com/findy-network/findy-alice/std/invitation"
	"github.com/go-co-op/gocron"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

const (
	chatExit    = "/exit"
	chatRestart = "/restart"
)

// ConnectCmd accepts the invitation and stays connected. Lines read from In
// are sent as basic messages until /exit or /restart.
type ConnectCmd struct {
	Cmd
	Invitation string
	Timeout    time.Duration
	PingEvery  int // minutes, 0 is off

	In io.Reader
}

func (c ConnectCmd) Validate() (err error) {
	defer err2.Handle(&err)

	try.To(c.Cmd.Validate())
	if c.Invitation == "" {
		return errors.New("invitation url cannot be empty")
	}
	try.To2(invitation.FromURL(c.Invitation))
	if c.PingEvery < 0 {
		return errors.New("ping interval cannot be negative")
	}
	return nil
}

func (c ConnectCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "connect")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := try.To1(c.Build(ctx, w))
	res := try.To1(c.run(ctx, w, a))
	return res, nil
}

// run drives the built participant. The participant is restarted if run
// fails.
func (c ConnectCmd) run(ctx context.Context, w io.Writer, a *alice.Alice) (r *Result, err error) {
	defer err2.Handle(&err, func(err error) error {
		if rerr := a.Restart(context.Background()); rerr != nil {
			glog.Warningln("restart after failure:", rerr)
		}
		return err
	})

	addr := etherAddress(ctx, w, a)

	try.To(c.accept(ctx, w, a))
	connID := a.Session().ConnectionID()
	cmds.Fprintln(w, "connection id:", connID)

	if c.PingEvery > 0 {
		cron := gocron.NewScheduler(time.Now().Location())
		try.To1(cron.Every(c.PingEvery).Minute().Do(func() {
			if err := a.Ping(ctx); err != nil {
				glog.Warningln("scheduled ping:", err)
			}
		}))
		cron.StartAsync()
		defer cron.Stop()
	}

	go func() {
		_ = a.Listen(ctx)
	}()

	in := c.In
	if in == nil {
		in = os.Stdin
	}
	if !Chat(ctx, a, in, w) {
		// input ended, keep answering until interrupted
		<-ctx.Done()
		try.To(a.Restart(context.Background()))
	}

	return &Result{ConnectionID: connID, EtherAddress: addr}, nil
}

type addresser interface {
	Secrets() ether.Result
	EtherAddress(ctx context.Context) (string, error)
}

// etherAddress prints the participant's address. A keypair which couldn't be
// provisioned isn't fatal, the participant runs without it.
func etherAddress(ctx context.Context, w io.Writer, a addresser) string {
	if a.Secrets().Failed {
		glog.Warningln("ether keypair isn't provisioned")
		cmds.Fprintln(w, "no ether wallet")
		return ""
	}
	addr, err := a.EtherAddress(ctx)
	if err != nil {
		glog.Warningln("ether address:", err)
		cmds.Fprintln(w, "no ether wallet")
		return ""
	}
	cmds.Fprintln(w, "ether address:", addr)
	return addr
}

type acceptor interface {
	AcceptConnection(ctx context.Context, invitationURL string) error
}

func (c ConnectCmd) accept(ctx context.Context, w io.Writer, a acceptor) error {
	stop := cmds.Progress(w)
	defer func() {
		stop()
		cmds.Fprintln(w)
	}()

	actx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	return a.AcceptConnection(actx, c.Invitation)
}

// Chatter is the part of the participant the chat loop uses.
type Chatter interface {
	SendMessage(ctx context.Context, text string) error
	Restart(ctx context.Context) error
	Exit(ctx context.Context)
}

// Chat reads lines from in and sends them as basic messages. It returns true
// when the participant was shut down by a chat command and false when the
// input ended or ctx was done.
func Chat(ctx context.Context, a Chatter, in io.Reader, w io.Writer) bool {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return false
		case line, ok := <-lines:
			if !ok {
				return false
			}
			line = strings.TrimSpace(line)
			switch line {
			case "":
				continue
			case chatExit:
				a.Exit(ctx)
				return true
			case chatRestart:
				if err := a.Restart(ctx); err != nil {
					cmds.Fprintln(w, err)
				}
				return true
			}
			if err := a.SendMessage(ctx, line); err != nil {
				cmds.Fprintln(w, err)
			}
		}
	}
}

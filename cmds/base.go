package cmds

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lainio/err2/try"
)

const walletKeyLength = 32

var ErrInvalid = errors.New("invalid command, check arguments")

type Cmd struct {
	WalletName string `cmd_usage:"wallet name is required"`
	WalletKey  string `cmd_usage:"wallet key is required"`
}

func (c Cmd) Validate() error {
	if c.WalletName == "" {
		return errors.New("wallet name cannot be empty")
	}
	if err := c.ValidateWalletKey(); err != nil {
		return err
	}
	return nil
}

func (c Cmd) ValidateWalletKey() error {
	return ValidateKey(c.WalletKey)
}

// ValidateKey checks that the key is 32 bytes in hex.
func ValidateKey(k string) error {
	if k == "" {
		return errors.New("wallet key cannot be empty")
	}
	d, err := hex.DecodeString(k)
	if err != nil || len(d) != walletKeyLength {
		return errors.New("wallet key is not valid")
	}
	return nil
}

type GrpcCmd struct {
	TLSPath string
	Addr    string
	Port    int
	User    string
}

func (c GrpcCmd) Validate() error {
	if c.Addr == "" {
		return errors.New("server address cannot be empty")
	}
	if c.Port == 0 {
		return errors.New("server port cannot be zero")
	}
	if c.User == "" {
		return errors.New("cloud agent user cannot be empty")
	}
	return nil
}

type Result interface {
	JSON() ([]byte, error)
}

type Command interface {
	Validate() error
	Exec(w io.Writer) (r Result, err error)
}

// Fprintln is fmt.Fprintln but it allows writer to be nil. Note! it throws an
// error.
func Fprintln(w io.Writer, a ...interface{}) {
	if w != nil {
		try.To1(fmt.Fprintln(w, a...))
	}
}

// Fprintf is fmt.Fprintf but it allows writer to be nil. Note! it throws an
// error.
func Fprintf(w io.Writer, format string, a ...interface{}) {
	if w != nil {
		try.To1(fmt.Fprintf(w, format, a...))
	}
}

// Fprint is fmt.Fprint but it allows writer to be nil. Note! it throws an
// error.
func Fprint(w io.Writer, a ...interface{}) {
	if w != nil {
		try.To1(fmt.Fprint(w, a...))
	}
}

// Progress prints dots to w until the returned stop function is called. The
// writing has ended when stop returns.
func Progress(w io.Writer) (stop func()) {
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		for {
			select {
			case <-done:
				return
			case <-time.After(300 * time.Millisecond):
				Fprint(w, ".")
			}
		}
	}()
	return func() {
		close(done)
		<-exited
	}
}

// Package output has the console texts of the participant and the colored
// error type for the errors users see.
package output

import (
	"github.com/fatih/color"
)

const (
	MissingConnectionRecord = "No connectionRecord ID has been set yet"
	NoConnectionRecord      = "No connectionRecord has been found from OutOfBand invitation"
	ConnectionEstablished   = "Connection established!"
	ProofAccepted           = "Proof request accepted!"
	CredentialAccepted      = "Credential offer accepted!"
	Exit                    = "Shutting down agent...\nExiting..."
	WalletCreated           = "Ether wallet created"
	WalletNotCreated        = "Ether wallet was not created:"
)

var (
	red   = color.New(color.FgRed).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
)

func RedText(a ...interface{}) string {
	return red(a...)
}

func GreenText(a ...interface{}) string {
	return green(a...)
}

// Error is an error kind with a fixed message which is printed red.
type Error struct {
	msg string
}

func NewError(msg string) *Error {
	return &Error{msg: msg}
}

func (e *Error) Error() string {
	return RedText(e.msg)
}

// Text returns the message without colors.
func (e *Error) Text() string {
	return e.msg
}

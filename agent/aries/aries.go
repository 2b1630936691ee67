// Package aries defines the boundary to the external agent runtime. The
// runtime owns DIDComm transport, wallet cryptography and the protocol state
// machines. The participant only drives them through these interfaces.
package aries

import (
	"context"
	"encoding/json"
)

// ConnectionState is the externally owned state of a connection.
type ConnectionState string

const (
	ConnectionStateInvited   ConnectionState = "invited"
	ConnectionStateRequested ConnectionState = "requested"
	ConnectionStateResponded ConnectionState = "responded"
	ConnectionStateCompleted ConnectionState = "completed"
	ConnectionStateAbandoned ConnectionState = "abandoned"
)

// IsConnected tells if the connection can be used for messaging.
func (s ConnectionState) IsConnected() bool {
	return s == ConnectionStateCompleted
}

// Connection is a secured channel to a peer.
type Connection struct {
	ID         string
	State      ConnectionState
	TheirLabel string
}

// CredentialExchange is a handle to a credential protocol instance.
type CredentialExchange struct {
	ID           string
	ConnectionID string
	CredDefID    string
	Attributes   map[string]string
}

// ProofExchange is a handle to a proof protocol instance.
type ProofExchange struct {
	ID           string
	ConnectionID string
	Attributes   []string
}

// ProofFormats maps a proof format name, e.g. "indy", to the credentials
// selected for it. The content is owned by the runtime.
type ProofFormats map[string]json.RawMessage

type Invitations interface {
	// ReceiveInvitationFromURL resolves an out-of-band invitation. The
	// returned connection is nil when the invitation didn't start a
	// connection.
	ReceiveInvitationFromURL(ctx context.Context, url string) (*Connection, error)
}

type Connections interface {
	GetByID(ctx context.Context, id string) (*Connection, error)
	// ReturnWhenIsConnected blocks until the connection is connected or the
	// context is done.
	ReturnWhenIsConnected(ctx context.Context, id string) (*Connection, error)
}

type Credentials interface {
	AcceptOffer(ctx context.Context, credentialRecordID string) error
}

type Proofs interface {
	SelectCredentialsForRequest(ctx context.Context, proofRecordID string) (ProofFormats, error)
	AcceptRequest(ctx context.Context, proofRecordID string, formats ProofFormats) error
}

type Messages interface {
	SendMessage(ctx context.Context, connectionID, text string) error
}

type Pinger interface {
	Ping(ctx context.Context, connectionID string) error
}

// Agent is the whole runtime as the participant sees it.
type Agent interface {
	Invitations
	Connections
	Credentials
	Proofs
	Messages
	Pinger

	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error

	// Events returns the inbound protocol events. The channel is closed on
	// Shutdown.
	Events() <-chan Event
}

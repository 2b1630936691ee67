package aries

import "fmt"

// EventType is the type of an inbound protocol event.
type EventType int

const (
	EventNone EventType = iota
	EventConnectionState
	EventCredentialOffer
	EventProofRequest
	EventBasicMessage
)

func (t EventType) String() string {
	return [...]string{
		"None",
		"ConnectionState",
		"CredentialOffer",
		"ProofRequest",
		"BasicMessage",
	}[t]
}

// Event is an inbound notification from the runtime. Only the field matching
// the Type is set.
type Event struct {
	ID   string
	Type EventType

	Connection *Connection
	Credential *CredentialExchange
	Proof      *ProofExchange
	Message    *BasicMessage
}

func (e Event) String() string {
	return fmt.Sprintf("%s|%s", e.Type, e.ID)
}

// BasicMessage is a received text message.
type BasicMessage struct {
	ConnectionID string
	Content      string
	SentByMe     bool
}

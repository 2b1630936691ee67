// Package invitation is for invitation data model. It includes the JSON
// struct of both the connection and the out-of-band invitation, and the
// decoding of invitation URLs.
package invitation

import "encoding/json"

const (
	TypeConnection = "https://didcomm.org/connections/1.0/invitation"
	TypeOutOfBand  = "https://didcomm.org/out-of-band/1.0/invitation"
)

// Invitation defines DID exchange invitation message
// https://github.com/hyperledger/aries-rfcs/tree/master/features/0160-connection-protocol#0-invitation-to-connect
// and the out-of-band invitation
// https://github.com/hyperledger/aries-rfcs/tree/main/features/0434-outofband
type Invitation struct {
	// the Image URL of the connection invitation
	ImageURL string `json:"imageUrl,omitempty"`

	// the Service endpoint of the connection invitation
	ServiceEndpoint string `json:"serviceEndpoint,omitempty"`

	// the RecipientKeys for the connection invitation
	RecipientKeys []string `json:"recipientKeys,omitempty"`

	// the ID of the connection invitation
	ID string `json:"@id,omitempty"`

	// the Label of the connection invitation
	Label string `json:"label,omitempty"`

	// the DID of the connection invitation
	DID string `json:"did,omitempty"`

	// the RoutingKeys of the connection invitation
	RoutingKeys []string `json:"routingKeys,omitempty"`

	// the Type of the connection invitation
	Type string `json:"@type,omitempty"`

	// out-of-band only
	HandshakeProtocols []string          `json:"handshake_protocols,omitempty"`
	Services           []json.RawMessage `json:"services,omitempty"`
}

// IsOutOfBand tells if the invitation is an out-of-band invitation.
func (i Invitation) IsOutOfBand() bool {
	return i.Type == TypeOutOfBand || len(i.Services) > 0
}

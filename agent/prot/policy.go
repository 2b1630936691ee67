// Package prot has the trust policy which decides whether the participant
// answers an inbound protocol request.
package prot

import (
	"context"
	"errors"

	"github.com/findy-network/findy-alice/agent/aries"
)

// ErrDeclined is returned by the protocol handlers when the policy rejects the
// exchange.
var ErrDeclined = errors.New("declined by policy")

// Exchange is the part of an inbound protocol request the policy sees.
type Exchange struct {
	Type         aries.EventType
	ID           string
	ConnectionID string
	CredDefID    string
}

// Policy decides whether an exchange is accepted.
type Policy interface {
	ShouldAccept(ctx context.Context, ex Exchange) bool
}

// PolicyFunc is a function adapter for Policy.
type PolicyFunc func(ctx context.Context, ex Exchange) bool

func (f PolicyFunc) ShouldAccept(ctx context.Context, ex Exchange) bool {
	return f(ctx, ex)
}

// AcceptAll accepts every offer and request.
var AcceptAll Policy = PolicyFunc(func(context.Context, Exchange) bool { return true })

// OnlyConnection accepts exchanges which come over the given connection. The
// function is called on every decision so the connection can change.
func OnlyConnection(connID func() string) Policy {
	return PolicyFunc(func(_ context.Context, ex Exchange) bool {
		return ex.ConnectionID != "" && ex.ConnectionID == connID()
	})
}

// OrDefault returns AcceptAll when p is nil.
func OrDefault(p Policy) Policy {
	if p == nil {
		return AcceptAll
	}
	return p
}

func FromCredential(ex *aries.CredentialExchange) Exchange {
	return Exchange{
		Type:         aries.EventCredentialOffer,
		ID:           ex.ID,
		ConnectionID: ex.ConnectionID,
		CredDefID:    ex.CredDefID,
	}
}

func FromProof(ex *aries.ProofExchange) Exchange {
	return Exchange{
		Type:         aries.EventProofRequest,
		ID:           ex.ID,
		ConnectionID: ex.ConnectionID,
	}
}

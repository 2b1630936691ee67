// Package holder includes the credential offer handler for a holder.
package holder

import (
	"context"
	"errors"

	"github.com/findy-network/findy-alice/agent/aries"
	"github.com/findy-network/findy-alice/agent/output"
	"github.com/findy-network/findy-alice/agent/prot"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// Handler answers credential offers received from issuers.
type Handler struct {
	Credentials aries.Credentials
	Policy      prot.Policy
}

// HandleCredentialOffer accepts the offer unless the policy declines it. The
// runtime completes the rest of the exchange.
func (h Handler) HandleCredentialOffer(
	ctx context.Context,
	offer *aries.CredentialExchange,
) (err error) {
	if offer == nil {
		return errors.New("credential offer is nil")
	}
	defer err2.Handle(&err, "handle credential offer %s", offer.ID)

	if !prot.OrDefault(h.Policy).ShouldAccept(ctx, prot.FromCredential(offer)) {
		glog.V(1).Infoln("credential offer declined:", offer.ID)
		return prot.ErrDeclined
	}

	try.To(h.Credentials.AcceptOffer(ctx, offer.ID))
	glog.Infoln(output.CredentialAccepted)
	return nil
}

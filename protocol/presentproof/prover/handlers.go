// Package prover includes the proof request handler for a prover.
package prover

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

// Handler answers proof requests received from verifiers.
type Handler struct {
	Proofs aries.Proofs
	Policy prot.Policy
}

// HandleRequestPresentation lets the runtime select the credentials and sends
// the selection back as is.
func (h Handler) HandleRequestPresentation(
	ctx context.Context,
	req *aries.ProofExchange,
) (err error) {
	if req == nil {
		return errors.New("proof request is nil")
	}
	defer err2.Handle(&err, "handle proof request %s", req.ID)

	if !prot.OrDefault(h.Policy).ShouldAccept(ctx, prot.FromProof(req)) {
		glog.V(1).Infoln("proof request declined:", req.ID)
		return prot.ErrDeclined
	}

	formats := try.To1(h.Proofs.SelectCredentialsForRequest(ctx, req.ID))
	glog.V(3).Infoln("selected proof formats:", len(formats))
	try.To(h.Proofs.AcceptRequest(ctx, req.ID, formats))
	glog.Infoln(output.ProofAccepted)
	return nil
}

package cloud

import (
	"context"

	"github.com/findy-network/findy-alice/agent/aries"
	agency "github.com/findy-network/findy-common-go/grpc/agency/v1"
	"github.com/golang/glog"
	"github.com/lainio/err2"
)

func (a *Agent) listen(ctx context.Context, ch <-chan *agency.AgentStatus) {
	defer err2.Catch(err2.Err(func(err error) {
		glog.Warningln("listen cloud agent:", err)
	}))

	for {
		select {
		case <-ctx.Done():
			return
		case status, ok := <-ch:
			if !ok {
				glog.V(1).Infoln("status stream closed")
				return
			}
			ev, ok := toEvent(status)
			if !ok {
				continue
			}
			if ev.Type == aries.EventBasicMessage {
				a.fillMessage(ctx, status.Notification, &ev)
			}
			if ev.Type == aries.EventConnectionState {
				a.setConnectionState(ev.Connection.ID, ev.Connection.State)
			}
			select {
			case a.events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// toEvent translates the agent status notification. The basic message
// content isn't part of the notification, see fillMessage.
func toEvent(status *agency.AgentStatus) (ev aries.Event, ok bool) {
	n := status.GetNotification()
	if n == nil {
		return ev, false
	}
	ev.ID = n.ID

	switch n.TypeID {
	case agency.Notification_PROTOCOL_PAUSED:
		switch n.ProtocolType {
		case agency.Protocol_ISSUE_CREDENTIAL:
			ev.Type = aries.EventCredentialOffer
			ev.Credential = &aries.CredentialExchange{
				ID:           n.ProtocolID,
				ConnectionID: n.ConnectionID,
			}
			return ev, true
		case agency.Protocol_PRESENT_PROOF:
			ev.Type = aries.EventProofRequest
			ev.Proof = &aries.ProofExchange{
				ID:           n.ProtocolID,
				ConnectionID: n.ConnectionID,
			}
			return ev, true
		}
	case agency.Notification_STATUS_UPDATE:
		switch n.ProtocolType {
		case agency.Protocol_BASIC_MESSAGE:
			ev.Type = aries.EventBasicMessage
			ev.Message = &aries.BasicMessage{ConnectionID: n.ConnectionID}
			return ev, true
		case agency.Protocol_DIDEXCHANGE:
			ev.Type = aries.EventConnectionState
			ev.Connection = &aries.Connection{
				ID:    n.ConnectionID,
				State: aries.ConnectionStateCompleted,
			}
			return ev, true
		}
	}
	glog.V(3).Infoln("skipping notification:", n.TypeID, n.ProtocolType)
	return ev, false
}

func (a *Agent) fillMessage(ctx context.Context, n *agency.Notification, ev *aries.Event) {
	didComm := agency.NewProtocolServiceClient(a.conn)
	status, err := didComm.Status(ctx, &agency.ProtocolID{
		TypeID:           n.ProtocolType,
		Role:             agency.Protocol_ADDRESSEE,
		ID:               n.ProtocolID,
		NotificationTime: n.Timestamp,
	})
	if err != nil {
		glog.Warningln("basic message status:", err)
		return
	}
	bm := status.GetBasicMessage()
	ev.Message.Content = bm.GetContent()
	ev.Message.SentByMe = bm.GetSentByMe()
}

package ws

// CallRelay forwards signaling frames between call peers. It keeps no
// call state and never inspects SDP or candidate payloads; all routing
// is by target user id.
type CallRelay struct {
	hub *Hub
}

func NewCallRelay(hub *Hub) *CallRelay {
	return &CallRelay{hub: hub}
}

func (r *CallRelay) Offer(p CallOfferPayload) error {
	return r.hub.SendToUser(p.To, EventCallIncoming, CallIncomingPayload{
		From:         p.From,
		Offer:        p.Offer,
		FromUserData: p.FromUserData,
	})
}

func (r *CallRelay) Answer(p CallAnswerPayload) error {
	return r.hub.SendToUser(p.To, EventCallAnswered, CallAnsweredPayload{Answer: p.Answer})
}

func (r *CallRelay) Candidate(p CallCandidatePayload) error {
	return r.hub.SendToUser(p.To, EventCallCandidate, CallCandidateEvent{Candidate: p.Candidate})
}

func (r *CallRelay) Decline(p CallDeclinePayload) error {
	return r.hub.SendToUser(p.To, EventCallDeclined, UserTargetedPayload{From: p.From})
}

func (r *CallRelay) End(p CallEndPayload) error {
	return r.hub.SendToUser(p.To, EventCallEnded, struct{}{})
}

package domain

// DeliveryResult is the outcome of one successful send.
type DeliveryResult struct {
	// MessageID is the network-assigned id of the delivered message.
	MessageID string
	// ResolvedJID is the identifier the message was actually sent to.
	ResolvedJID string
	// VerifiedNumber is the digit string extracted from ResolvedJID.
	VerifiedNumber string
	// MatchedCandidate is the variant confirmed by an existence lookup,
	// empty when the send fell back to the canonical identifier.
	MatchedCandidate string
}

// PairingResult is what StartPairing resolves with. It never carries a Go
// error: pairing failures surface here and in the status document.
type PairingResult struct {
	State ConnState
	Err   string
}

package producer

// Snapshot reports the producer's current view of its transfer without
// sending anything, for a host that wants a status read without
// forcing a retransmission (spec §4.4's OtaGetStatus).
func (p *Producer) Snapshot() Outcome {
	return Outcome{
		Kind:       OutcomeStatus,
		NotAcked:   p.notAcked.Values(),
		LastAcked:  p.lastAckedIndex,
		InProgress: p.state == StateDownload,
	}
}

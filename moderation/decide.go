package moderation

import "time"

// DefaultEscalationTimeout is how long a report may stay undecided before escalation
const DefaultEscalationTimeout = 7 * 24 * time.Hour

// Decision is the verdict on one report
type Decision struct {
	Action    Action
	Decided   bool
	Escalated bool // decided only because the report outlived the timeout
}

// Decide runs BestAction over the report's tally. A report older than timeout
// that is still undecided has MaxMinRep added to every tallied action and is
// decided again. Responses must already be validated.
func Decide(r Report, now time.Time, timeout time.Duration) Decision {
	votes := Tally(r.Responses)
	if action, ok := BestAction(votes); ok {
		return Decision{Action: action, Decided: true}
	}

	if len(votes) == 0 || now.Sub(r.CreatedAt) <= timeout {
		return Decision{}
	}

	boost := MaxMinRep()
	boosted := make([]Vote, len(votes))
	for i, v := range votes {
		boosted[i] = Vote{Action: v.Action, Reputation: v.Reputation + boost}
	}
	if action, ok := BestAction(boosted); ok {
		return Decision{Action: action, Decided: true, Escalated: true}
	}
	return Decision{}
}

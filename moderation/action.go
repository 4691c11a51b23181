// Package moderation resolves open content reports by weighted community vote.
package moderation

import (
	"sort"

	"github.com/vrooli/jobs/errors"
)

// Action is a moderation outcome a responder can suggest
type Action string

const (
	ActionNonIssue       Action = "NonIssue"
	ActionHideUntilFixed Action = "HideUntilFixed"
	ActionFalseReport    Action = "FalseReport"
	ActionDelete         Action = "Delete"
	ActionSuspendUser    Action = "SuspendUser"
)

// Actions lists every action from least to most severe
var Actions = []Action{
	ActionNonIssue,
	ActionHideUntilFixed,
	ActionFalseReport,
	ActionDelete,
	ActionSuspendUser,
}

// MinRep is the summed reputation an action needs before it can be accepted
var MinRep = map[Action]int{
	ActionDelete:         500,
	ActionFalseReport:    100,
	ActionHideUntilFixed: 100,
	ActionNonIssue:       100,
	ActionSuspendUser:    2500,
}

// MaxMinRep is the highest threshold. Escalation adds it to every tally so
// any suggested action qualifies.
func MaxMinRep() int {
	max := 0
	for _, rep := range MinRep {
		if rep > max {
			max = rep
		}
	}
	return max
}

// Severity orders actions; lower is milder
func (a Action) Severity() int {
	for i, candidate := range Actions {
		if candidate == a {
			return i
		}
	}
	return -1
}

// Valid reports whether a is a known action
func (a Action) Valid() bool {
	return a.Severity() >= 0
}

// ParseAction validates a stored action string
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.Valid() {
		return "", errors.NewInvalidRequestError("unknown moderation action %q", s)
	}
	return a, nil
}

// Vote is the summed reputation behind one action
type Vote struct {
	Action     Action
	Reputation int
}

// BestAction picks the accepted action, if any.
// Votes below their action's threshold are ignored. Among the rest the highest
// reputation wins, and a tie at the top goes to the least severe action.
func BestAction(votes []Vote) (Action, bool) {
	var qualified []Vote
	for _, v := range votes {
		min, known := MinRep[v.Action]
		if known && v.Reputation >= min {
			qualified = append(qualified, v)
		}
	}

	switch len(qualified) {
	case 0:
		return "", false
	case 1:
		return qualified[0].Action, true
	}

	best := qualified[0]
	for _, v := range qualified[1:] {
		if v.Reputation > best.Reputation ||
			(v.Reputation == best.Reputation && v.Action.Severity() < best.Action.Severity()) {
			best = v
		}
	}
	return best.Action, true
}

// Tally sums responder reputation per suggested action, ordered by severity
func Tally(responses []Response) []Vote {
	sums := make(map[Action]int)
	for _, r := range responses {
		sums[r.Action] += r.Reputation
	}

	votes := make([]Vote, 0, len(sums))
	for action, sum := range sums {
		votes = append(votes, Vote{Action: action, Reputation: sum})
	}
	sort.Slice(votes, func(i, j int) bool {
		return votes[i].Action.Severity() < votes[j].Action.Severity()
	})
	return votes
}

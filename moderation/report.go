package moderation

import (
	"sort"
	"time"

	"github.com/vrooli/jobs/errors"
)

// Status is the lifecycle state of a report
type Status string

const (
	StatusOpen              Status = "Open"
	StatusClosedNonIssue    Status = "ClosedNonIssue"
	StatusClosedHidden      Status = "ClosedHidden"
	StatusClosedFalseReport Status = "ClosedFalseReport"
	StatusClosedDeleted     Status = "ClosedDeleted"
	StatusClosedSuspended   Status = "ClosedSuspended"
)

// StatusFor maps an accepted action to the report's terminal status
func StatusFor(a Action) (Status, error) {
	switch a {
	case ActionNonIssue:
		return StatusClosedNonIssue, nil
	case ActionHideUntilFixed:
		return StatusClosedHidden, nil
	case ActionFalseReport:
		return StatusClosedFalseReport, nil
	case ActionDelete:
		return StatusClosedDeleted, nil
	case ActionSuspendUser:
		return StatusClosedSuspended, nil
	default:
		return "", errors.NewInvalidRequestError("no report status for action %q", a)
	}
}

// Response is one responder's suggestion on a report
type Response struct {
	ID          string
	ResponderID string
	Action      Action
	Reputation  int
}

// Report is an open report with its reported object resolved.
// Object is nil when no relation column is populated.
type Report struct {
	ID        string
	Status    Status
	CreatedAt time.Time
	Object    Object
	Responses []Response
}

// Contributors returns the distinct responders who suggested a, sorted
func (r Report) Contributors(a Action) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, resp := range r.Responses {
		if resp.Action != a || resp.ResponderID == "" || seen[resp.ResponderID] {
			continue
		}
		seen[resp.ResponderID] = true
		ids = append(ids, resp.ResponderID)
	}
	sort.Strings(ids)
	return ids
}

// relations is the joined row behind a report's reported object.
// Empty strings are NULL columns.
type relations struct {
	chatMessageID, chatMessageUserID                  string
	commentID, commentOwnerUserID, commentOwnerTeamID string
	issueID, issueCreatorID                           string
	resourceVersionID, resourceRootID                 string
	resourceOwnerUserID, resourceOwnerTeamID          string
	tagID, tagCreatorID                               string
	teamID                                            string
	userID                                            string
}

// object picks the first populated relation in the fixed probe order
func (rel relations) object() Object {
	switch {
	case rel.chatMessageID != "":
		return ChatMessage{ID: rel.chatMessageID, CreatorID: rel.chatMessageUserID}
	case rel.commentID != "":
		return Comment{ID: rel.commentID, OwnerUserID: rel.commentOwnerUserID, OwnerTeamID: rel.commentOwnerTeamID}
	case rel.issueID != "":
		return Issue{ID: rel.issueID, CreatorID: rel.issueCreatorID}
	case rel.resourceVersionID != "":
		return ResourceVersion{
			ID:              rel.resourceVersionID,
			RootID:          rel.resourceRootID,
			RootOwnerUserID: rel.resourceOwnerUserID,
			RootOwnerTeamID: rel.resourceOwnerTeamID,
		}
	case rel.tagID != "":
		return Tag{ID: rel.tagID, CreatorID: rel.tagCreatorID}
	case rel.teamID != "":
		return Team{ID: rel.teamID}
	case rel.userID != "":
		return User{ID: rel.userID}
	default:
		return nil
	}
}

package moderation

// ObjectType names the kind of content a report points at
type ObjectType string

const (
	TypeChatMessage     ObjectType = "ChatMessage"
	TypeComment         ObjectType = "Comment"
	TypeIssue           ObjectType = "Issue"
	TypeResourceVersion ObjectType = "ResourceVersion"
	TypeTag             ObjectType = "Tag"
	TypeTeam            ObjectType = "Team"
	TypeUser            ObjectType = "User"
)

// OwnerKind says whether an owner is a user or a team
type OwnerKind string

const (
	OwnerUser OwnerKind = "User"
	OwnerTeam OwnerKind = "Team"
)

// Owner is who is notified about a decision on their content
type Owner struct {
	Kind OwnerKind
	ID   string
}

// Object is the reported content. It is one of ChatMessage, Comment, Issue,
// ResourceVersion, Tag, Team or User, resolved when the report is fetched.
type Object interface {
	ObjectID() string
	Type() ObjectType

	// Owner applies the type's ownership rule. False means the owner
	// reference is missing.
	Owner() (Owner, bool)

	object()
}

type capabilities struct {
	table         string
	softDeletable bool
	hideable      bool
}

var objectCapabilities = map[ObjectType]capabilities{
	TypeChatMessage:     {table: "chat_messages"},
	TypeComment:         {table: "comments"},
	TypeIssue:           {table: "issues"},
	TypeResourceVersion: {table: "resource_versions", softDeletable: true, hideable: true},
	TypeTag:             {table: "tags"},
	TypeTeam:            {table: "teams", softDeletable: true, hideable: true},
	TypeUser:            {table: "users", softDeletable: true, hideable: true},
}

// SoftDeletable reports whether deleting this type only flags it
func (t ObjectType) SoftDeletable() bool { return objectCapabilities[t].softDeletable }

// Hideable reports whether this type can be made private
func (t ObjectType) Hideable() bool { return objectCapabilities[t].hideable }

func (t ObjectType) table() string { return objectCapabilities[t].table }

func userOwner(id string) (Owner, bool) {
	if id == "" {
		return Owner{}, false
	}
	return Owner{Kind: OwnerUser, ID: id}, true
}

// directOwner prefers the owning user over the owning team
func directOwner(userID, teamID string) (Owner, bool) {
	if userID != "" {
		return Owner{Kind: OwnerUser, ID: userID}, true
	}
	if teamID != "" {
		return Owner{Kind: OwnerTeam, ID: teamID}, true
	}
	return Owner{}, false
}

// ChatMessage is owned by the user who wrote it
type ChatMessage struct {
	ID        string
	CreatorID string
}

func (o ChatMessage) ObjectID() string     { return o.ID }
func (o ChatMessage) Type() ObjectType     { return TypeChatMessage }
func (o ChatMessage) Owner() (Owner, bool) { return userOwner(o.CreatorID) }
func (ChatMessage) object()                {}

// Comment is owned by its owning user or team
type Comment struct {
	ID          string
	OwnerUserID string
	OwnerTeamID string
}

func (o Comment) ObjectID() string     { return o.ID }
func (o Comment) Type() ObjectType     { return TypeComment }
func (o Comment) Owner() (Owner, bool) { return directOwner(o.OwnerUserID, o.OwnerTeamID) }
func (Comment) object()                {}

// Issue is owned by its creator only
type Issue struct {
	ID        string
	CreatorID string
}

func (o Issue) ObjectID() string     { return o.ID }
func (o Issue) Type() ObjectType     { return TypeIssue }
func (o Issue) Owner() (Owner, bool) { return userOwner(o.CreatorID) }
func (Issue) object()                {}

// ResourceVersion inherits the owner of its root resource
type ResourceVersion struct {
	ID              string
	RootID          string
	RootOwnerUserID string
	RootOwnerTeamID string
}

func (o ResourceVersion) ObjectID() string { return o.ID }
func (o ResourceVersion) Type() ObjectType { return TypeResourceVersion }
func (o ResourceVersion) Owner() (Owner, bool) {
	if o.RootID == "" {
		return Owner{}, false
	}
	return directOwner(o.RootOwnerUserID, o.RootOwnerTeamID)
}
func (ResourceVersion) object() {}

// Tag is owned by its creator only
type Tag struct {
	ID        string
	CreatorID string
}

func (o Tag) ObjectID() string     { return o.ID }
func (o Tag) Type() ObjectType     { return TypeTag }
func (o Tag) Owner() (Owner, bool) { return userOwner(o.CreatorID) }
func (Tag) object()                {}

// Team owns itself
type Team struct {
	ID string
}

func (o Team) ObjectID() string     { return o.ID }
func (o Team) Type() ObjectType     { return TypeTeam }
func (o Team) Owner() (Owner, bool) { return Owner{Kind: OwnerTeam, ID: o.ID}, true }
func (Team) object()                {}

// User owns itself
type User struct {
	ID string
}

func (o User) ObjectID() string     { return o.ID }
func (o User) Type() ObjectType     { return TypeUser }
func (o User) Owner() (Owner, bool) { return Owner{Kind: OwnerUser, ID: o.ID}, true }
func (User) object()                {}

// Package trigger defines the canonical, provider-independent representation
// of a VCS webhook event.
package trigger

// GitSource identifies the external provider that emitted a webhook.
type GitSource string

const (
	SourceGitHub GitSource = "github"
	SourceGerrit GitSource = "gerrit"
)

// GitEvent is the canonical event kind carried by a trigger.
type GitEvent string

const (
	EventPing           GitEvent = "PING"
	EventPush           GitEvent = "PUSH"
	EventTag            GitEvent = "TAG"
	EventPrOpened       GitEvent = "PR_OPENED"
	EventPrMerged       GitEvent = "PR_MERGED"
	EventPatchSetUpdate GitEvent = "PATCHSET_UPDATE"
)

// GitUser is a normalized VCS user reference.
type GitUser struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Username   string `json:"username,omitempty"`
	AvatarLink string `json:"avatar_link,omitempty"`
}

// GitCommit is a normalized commit reference carried by push triggers.
type GitCommit struct {
	ID      string  `json:"id"`
	Message string  `json:"message"`
	Time    string  `json:"time"`
	URL     string  `json:"url"`
	Author  GitUser `json:"author"`
}

// Trigger is the canonical form of one inbound VCS webhook event. Each
// variant carries exactly one source and one event kind.
type Trigger interface {
	// GitSource reports the provider that emitted the event.
	GitSource() GitSource

	// GitEvent reports the canonical event kind.
	GitEvent() GitEvent
}

// TriggerBase carries the fields every trigger variant shares.
type TriggerBase struct {
	Source GitSource `json:"source"`
	Event  GitEvent  `json:"event"`
}

func (b TriggerBase) GitSource() GitSource { return b.Source }
func (b TriggerBase) GitEvent() GitEvent   { return b.Event }

// PingTrigger is produced by a provider's hook-installed handshake event.
type PingTrigger struct {
	TriggerBase
	Active    bool     `json:"active"`
	Events    []string `json:"events"`
	CreatedAt string   `json:"created_at"`
}

// PushTrigger represents one or more commits pushed to a ref.
type PushTrigger struct {
	TriggerBase
	Ref         string      `json:"ref"`
	Message     string      `json:"message"`
	Commits     []GitCommit `json:"commits,omitempty"`
	NumOfCommit int         `json:"num_of_commit"`
	Sender      GitUser     `json:"sender"`
}

// TagTrigger represents a tag creation.
type TagTrigger struct {
	TriggerBase
	Ref     string  `json:"ref"`
	Message string  `json:"message"`
	Sender  GitUser `json:"sender"`
}

// PrSource identifies one side (head or base) of a pull request.
type PrSource struct {
	Commit   string `json:"commit"`
	Ref      string `json:"ref"`
	RepoName string `json:"repo_name"`
	RepoURL  string `json:"repo_url"`
}

// PrTrigger represents a pull request being opened or merged.
type PrTrigger struct {
	TriggerBase
	Number           string   `json:"number"`
	Title            string   `json:"title"`
	Body             string   `json:"body"`
	URL              string   `json:"url"`
	Time             string   `json:"time"`
	NumOfCommits     string   `json:"num_of_commits"`
	NumOfFileChanges string   `json:"num_of_file_changes"`
	Merged           bool     `json:"merged"`
	Head             PrSource `json:"head"`
	Base             PrSource `json:"base"`
	Sender           GitUser  `json:"sender"`
}

// PatchSetTrigger represents a new patch set on a code review change.
type PatchSetTrigger struct {
	TriggerBase
	Subject        string  `json:"subject"`
	Message        string  `json:"message"`
	Project        string  `json:"project"`
	Branch         string  `json:"branch"`
	ChangeID       string  `json:"change_id"`
	ChangeNumber   int     `json:"change_number"`
	ChangeURL      string  `json:"change_url"`
	PatchNumber    int     `json:"patch_number"`
	PatchURL       string  `json:"patch_url"`
	Revision       string  `json:"revision"`
	Ref            string  `json:"ref"`
	CreatedOn      string  `json:"created_on"`
	SizeInsertions int     `json:"size_insertions"`
	SizeDeletions  int     `json:"size_deletions"`
	Author         GitUser `json:"author"`
}

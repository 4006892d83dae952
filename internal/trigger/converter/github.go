package converter

import (
	"encoding/json"

	"github.com/hookline/hookline/internal/common/errors"
	"github.com/hookline/hookline/internal/trigger"
)

// GitHub webhook event names, as sent in the X-GitHub-Event header.
const (
	GitHubEventPing = "ping"
	GitHubEventPush = "push"
	GitHubEventTag  = "create"
	GitHubEventPR   = "pull_request"
)

func newGitHubTable() map[string]parseFunc {
	return map[string]parseFunc{
		GitHubEventPing: parseGitHubPing,
		GitHubEventPush: parseGitHubPush,
		GitHubEventTag:  parseGitHubTag,
		GitHubEventPR:   parseGitHubPR,
	}
}

// ======================================================
//      Payload shapes for GitHub
// ======================================================

type githubPingEvent struct {
	HookID json.Number    `json:"hook_id"`
	Hook   githubPingHook `json:"hook"`
}

type githubPingHook struct {
	Active    bool     `json:"active"`
	Events    []string `json:"events"`
	CreatedAt string   `json:"created_at"`
}

type githubPushEvent struct {
	Ref        string         `json:"ref"`
	Commits    []githubCommit `json:"commits"`
	HeadCommit *githubCommit  `json:"head_commit"`
	Pusher     githubAuthor   `json:"pusher"`
}

type githubTagEvent struct {
	Ref     string       `json:"ref"`
	RefType string       `json:"ref_type"`
	Branch  string       `json:"master_branch"`
	Desc    string       `json:"description"`
	Sender  githubAuthor `json:"sender"`
}

type githubPrEvent struct {
	Action      string         `json:"action"`
	Number      json.Number    `json:"number"`
	PullRequest githubPrBody   `json:"pull_request"`
	Sender      githubPrSender `json:"sender"`
}

type githubPrBody struct {
	URL              string         `json:"html_url"`
	Title            string         `json:"title"`
	Body             string         `json:"body"`
	Time             string         `json:"created_at"`
	Head             githubPrSource `json:"head"`
	Base             githubPrSource `json:"base"`
	NumOfCommits     json.Number    `json:"commits"`
	NumOfFileChanges json.Number    `json:"changed_files"`
	Merged           bool           `json:"merged"`
}

type githubPrSource struct {
	Ref  string       `json:"ref"`
	SHA  string       `json:"sha"`
	Repo githubPrRepo `json:"repo"`
}

type githubPrRepo struct {
	ID       json.Number `json:"id"`
	FullName string      `json:"full_name"`
	URL      string      `json:"html_url"`
}

type githubPrSender struct {
	ID       json.Number `json:"id"`
	Username string      `json:"login"`
}

type githubCommit struct {
	ID        string       `json:"id"`
	Message   string       `json:"message"`
	Timestamp string       `json:"timestamp"`
	URL       string       `json:"url"`
	Author    githubAuthor `json:"author"`
}

type githubAuthor struct {
	Name      string `json:"name"`
	Login     string `json:"login"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

func (a githubAuthor) toGitUser() trigger.GitUser {
	name := a.Name
	if name == "" {
		// Some GitHub payloads (e.g. tag sender) carry only the login.
		name = a.Login
	}
	return trigger.GitUser{
		Name:       name,
		Email:      a.Email,
		Username:   a.Username,
		AvatarLink: a.AvatarURL,
	}
}

func (c githubCommit) toGitCommit() trigger.GitCommit {
	return trigger.GitCommit{
		ID:      c.ID,
		Message: c.Message,
		Time:    c.Timestamp,
		URL:     c.URL,
		Author:  c.Author.toGitUser(),
	}
}

// ======================================================
//      Parse functions
// ======================================================

func parseGitHubPing(payload []byte) Outcome {
	var event githubPingEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return skipped("unable to parse github ping payload")
	}

	return converted(&trigger.PingTrigger{
		TriggerBase: trigger.TriggerBase{Source: trigger.SourceGitHub, Event: trigger.EventPing},
		Active:      event.Hook.Active,
		Events:      event.Hook.Events,
		CreatedAt:   event.Hook.CreatedAt,
	})
}

func parseGitHubPush(payload []byte) Outcome {
	var event githubPushEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return skipped("unable to parse github push payload")
	}

	if event.HeadCommit == nil {
		return rejected(errors.Validation("no commit data on github push event"))
	}

	t := &trigger.PushTrigger{
		TriggerBase: trigger.TriggerBase{Source: trigger.SourceGitHub, Event: trigger.EventPush},
		Ref:         event.Ref,
		Message:     event.HeadCommit.Message,
		Sender:      event.Pusher.toGitUser(),
	}

	if len(event.Commits) > 0 {
		t.NumOfCommit = len(event.Commits)
		t.Commits = make([]trigger.GitCommit, 0, len(event.Commits))
		for _, c := range event.Commits {
			t.Commits = append(t.Commits, c.toGitCommit())
		}
	}

	return converted(t)
}

func parseGitHubTag(payload []byte) Outcome {
	var event githubTagEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return skipped("unable to parse github create payload")
	}

	// "create" covers both branch and tag creation; only tags map to a trigger.
	if event.RefType != "tag" {
		return rejected(errors.Validationf("unsupported ref type %q from github create event", event.RefType))
	}

	return converted(&trigger.TagTrigger{
		TriggerBase: trigger.TriggerBase{Source: trigger.SourceGitHub, Event: trigger.EventTag},
		Ref:         event.Ref,
		Message:     event.Desc,
		Sender:      event.Sender.toGitUser(),
	})
}

func parseGitHubPR(payload []byte) Outcome {
	var event githubPrEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return skipped("unable to parse github pull_request payload")
	}

	gitEvent, err := githubPrGitEvent(event)
	if err != nil {
		return rejected(err)
	}

	body := event.PullRequest
	return converted(&trigger.PrTrigger{
		TriggerBase:      trigger.TriggerBase{Source: trigger.SourceGitHub, Event: gitEvent},
		Number:           event.Number.String(),
		Title:            body.Title,
		Body:             body.Body,
		URL:              body.URL,
		Time:             body.Time,
		NumOfCommits:     body.NumOfCommits.String(),
		NumOfFileChanges: body.NumOfFileChanges.String(),
		Merged:           body.Merged,
		Head: trigger.PrSource{
			Commit:   body.Head.SHA,
			Ref:      body.Head.Ref,
			RepoName: body.Head.Repo.FullName,
			RepoURL:  body.Head.Repo.URL,
		},
		Base: trigger.PrSource{
			Commit:   body.Base.SHA,
			Ref:      body.Base.Ref,
			RepoName: body.Base.Repo.FullName,
			RepoURL:  body.Base.Repo.URL,
		},
		Sender: trigger.GitUser{
			ID:       event.Sender.ID.String(),
			Username: event.Sender.Username,
		},
	})
}

// githubPrGitEvent implements the action decision table:
// opened => PR_OPENED, closed+merged => PR_MERGED, anything else is rejected.
func githubPrGitEvent(event githubPrEvent) (trigger.GitEvent, error) {
	switch {
	case event.Action == "opened":
		return trigger.EventPrOpened, nil
	case event.Action == "closed" && event.PullRequest.Merged:
		return trigger.EventPrMerged, nil
	default:
		return "", errors.Validationf("unsupported pull request action %q", event.Action)
	}
}

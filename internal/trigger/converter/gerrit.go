package converter

import (
	"encoding/json"
	"fmt"

	"github.com/hookline/hookline/internal/trigger"
)

// Gerrit encodes the real event inside a generic envelope, so the dispatch
// table has a single entry and the envelope's type field selects further.
const gerritEventPatchSetCreated = "patchset-created"

func newGerritTable() map[string]parseFunc {
	return map[string]parseFunc{
		GerritAllEvents: parseGerritEnvelope,
	}
}

// ======================================================
//      Payload shapes for Gerrit
// ======================================================

type gerritEnvelope struct {
	Type string `json:"type"`
}

type gerritPatchSetCreatedEvent struct {
	PatchSet gerritPatchSet `json:"patchSet"`
	Change   gerritChange   `json:"change"`
}

type gerritPatchSet struct {
	Number         int          `json:"number"`
	Revision       string       `json:"revision"`
	Ref            string       `json:"ref"`
	Uploader       gerritAuthor `json:"uploader"`
	Author         gerritAuthor `json:"author"`
	CreatedOn      json.Number  `json:"createdOn"`
	SizeInsertions int          `json:"sizeInsertions"`
	SizeDeletions  int          `json:"sizeDeletions"`
}

type gerritChange struct {
	Project       string `json:"project"`
	Branch        string `json:"branch"`
	ID            string `json:"id"`
	Number        int    `json:"number"`
	Subject       string `json:"subject"`
	URL           string `json:"url"`
	CommitMessage string `json:"commitMessage"`
}

type gerritAuthor struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (a gerritAuthor) toGitUser() trigger.GitUser {
	return trigger.GitUser{
		Name:     a.Name,
		Email:    a.Email,
		Username: a.Username,
	}
}

// parseGerritEnvelope inspects the envelope type and converts only the
// whitelisted event kinds. Anything else, including malformed payloads, is
// skipped: the delivery still has to be acknowledged.
func parseGerritEnvelope(payload []byte) Outcome {
	var envelope gerritEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return skipped("unable to parse gerrit payload")
	}

	switch envelope.Type {
	case gerritEventPatchSetCreated:
		return parseGerritPatchSetCreated(payload)
	default:
		return skipped(fmt.Sprintf("unsupported gerrit event %q", envelope.Type))
	}
}

func parseGerritPatchSetCreated(payload []byte) Outcome {
	var event gerritPatchSetCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return skipped("unable to parse gerrit patchset-created payload")
	}

	change, patchSet := event.Change, event.PatchSet
	return converted(&trigger.PatchSetTrigger{
		TriggerBase:    trigger.TriggerBase{Source: trigger.SourceGerrit, Event: trigger.EventPatchSetUpdate},
		Subject:        change.Subject,
		Message:        change.CommitMessage,
		Project:        change.Project,
		Branch:         change.Branch,
		ChangeID:       change.ID,
		ChangeNumber:   change.Number,
		ChangeURL:      change.URL,
		PatchNumber:    patchSet.Number,
		PatchURL:       fmt.Sprintf("%s/%d", change.URL, patchSet.Number),
		Revision:       patchSet.Revision,
		Ref:            patchSet.Ref,
		CreatedOn:      patchSet.CreatedOn.String(),
		SizeInsertions: patchSet.SizeInsertions,
		SizeDeletions:  patchSet.SizeDeletions,
		Author:         patchSet.Author.toGitUser(),
	})
}

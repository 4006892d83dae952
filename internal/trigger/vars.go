package trigger

import "strconv"

// Variable keys exported to downstream consumers when a trigger is published.
const (
	VarGitSource = "GIT_SOURCE"
	VarGitEvent  = "GIT_EVENT"
	VarGitRef    = "GIT_REF"
	VarGitBranch = "GIT_BRANCH"

	VarGitCommitID      = "GIT_COMMIT_ID"
	VarGitCommitMessage = "GIT_COMMIT_MESSAGE"
	VarGitCommitURL     = "GIT_COMMIT_URL"

	VarGitAuthor      = "GIT_AUTHOR"
	VarGitAuthorEmail = "GIT_AUTHOR_EMAIL"

	VarGitPrNumber = "GIT_PR_NUMBER"
	VarGitPrTitle  = "GIT_PR_TITLE"
	VarGitPrURL    = "GIT_PR_URL"

	VarGitChangeNumber = "GIT_CHANGE_NUMBER"
	VarGitChangeURL    = "GIT_CHANGE_URL"
	VarGitPatchNumber  = "GIT_PATCH_NUMBER"
)

// Variables flattens a trigger into the string context published on the bus.
// Only fields meaningful for the variant are set.
func Variables(t Trigger) map[string]string {
	vars := map[string]string{
		VarGitSource: string(t.GitSource()),
		VarGitEvent:  string(t.GitEvent()),
	}

	switch v := t.(type) {
	case *PushTrigger:
		vars[VarGitRef] = v.Ref
		vars[VarGitCommitMessage] = v.Message
		vars[VarGitAuthor] = v.Sender.Name
		vars[VarGitAuthorEmail] = v.Sender.Email
		if len(v.Commits) > 0 {
			head := v.Commits[0]
			vars[VarGitCommitID] = head.ID
			vars[VarGitCommitURL] = head.URL
		}
	case *TagTrigger:
		vars[VarGitRef] = v.Ref
		vars[VarGitCommitMessage] = v.Message
		vars[VarGitAuthor] = v.Sender.Name
		vars[VarGitAuthorEmail] = v.Sender.Email
	case *PrTrigger:
		vars[VarGitRef] = v.Head.Ref
		vars[VarGitBranch] = v.Base.Ref
		vars[VarGitCommitID] = v.Head.Commit
		vars[VarGitPrNumber] = v.Number
		vars[VarGitPrTitle] = v.Title
		vars[VarGitPrURL] = v.URL
		vars[VarGitAuthor] = v.Sender.Username
	case *PatchSetTrigger:
		vars[VarGitRef] = v.Ref
		vars[VarGitBranch] = v.Branch
		vars[VarGitCommitID] = v.Revision
		vars[VarGitCommitMessage] = v.Subject
		vars[VarGitChangeNumber] = strconv.Itoa(v.ChangeNumber)
		vars[VarGitChangeURL] = v.ChangeURL
		vars[VarGitPatchNumber] = strconv.Itoa(v.PatchNumber)
		vars[VarGitAuthor] = v.Author.Name
		vars[VarGitAuthorEmail] = v.Author.Email
	}
	return vars
}

// Package gitinfo captures a lightweight snapshot of the workspace git state
// so checkpoint and rollback requests can be correlated with VCS revisions.
package gitinfo

import (
	git "github.com/go-git/go-git/v6"
)

// Revision identifies the workspace commit a checkpoint was taken against.
type Revision struct {
	Commit string `json:"commit"`
	Branch string `json:"branch,omitempty"`
	Dirty  bool   `json:"dirty"`
}

// Head returns the current revision of the repository containing dir.
// A nil revision with nil error means dir is not inside a git repository.
func Head(dir string) (*Revision, error) {
	repository, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if err == git.ErrRepositoryNotExists {
			return nil, nil
		}
		return nil, err
	}
	head, err := repository.Head()
	if err != nil {
		return nil, err
	}
	ret := &Revision{Commit: head.Hash().String()}
	if head.Name().IsBranch() {
		ret.Branch = head.Name().Short()
	}
	worktree, err := repository.Worktree()
	if err != nil {
		return ret, nil
	}
	status, err := worktree.Status()
	if err != nil {
		return ret, nil
	}
	ret.Dirty = !status.IsClean()
	return ret, nil
}

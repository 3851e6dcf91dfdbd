// Package gitinfo stamps builds with version-control metadata when the source
// tree lives inside a git repository.
package gitinfo

import (
	"git.home.luguber.info/inful/sitegen/internal/errors"

	"github.com/go-git/go-git/v5"
)

// SourceRevision describes the checked-out state of the source tree.
type SourceRevision struct {
	Commit string `json:"commit"`
	Branch string `json:"branch,omitempty"`
}

// Head returns the HEAD commit of the repository containing dir. A source
// tree outside any repository is not an error; ok is false.
func Head(dir string) (SourceRevision, bool, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if err == git.ErrRepositoryNotExists {
			return SourceRevision{}, false, nil
		}
		return SourceRevision{}, false, errors.Wrap(err, errors.KindInternal, errors.SeverityWarning, "open git repository")
	}

	head, err := repo.Head()
	if err != nil {
		// Repository with no commits yet.
		return SourceRevision{}, false, nil
	}

	rev := SourceRevision{Commit: head.Hash().String()}
	if head.Name().IsBranch() {
		rev.Branch = head.Name().Short()
	}
	return rev, true, nil
}

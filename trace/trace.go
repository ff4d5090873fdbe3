// Package trace records scheduling history as a sequence of git commits:
// each call to Recorder.Record serializes a process-table snapshot and
// commits it to a small on-disk git repository under the user's XDG cache
// directory, and Recorder.History walks that repository's log the way
// `git log` would, giving a durable, diffable record of how the scheduler
// behaved during a run. The kernel and the CLI do not call Record
// themselves; recording happens only where a caller invokes it.
package trace

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/arctir/ksched/kernel"
)

const (
	CacheDirName  = "ksched"
	TraceDirName  = "traces"
	SnapshotFile  = "ptable.json"
	CommitAuthor  = "ksched"
	CommitAuthorE = "ksched@localhost"
)

// Hash is a git object hash.
type Hash [20]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Entry is one recorded scheduling event.
type Entry struct {
	Hash    Hash
	Message string
	Date    time.Time
}

// Recorder commits process-table snapshots to an on-disk git repository
// dedicated to one run (spec.md's out-of-scope "tracing" collaborator,
// given a concrete home here per SPEC_FULL.md's domain-stack expansion).
type Recorder struct {
	dir  string
	repo *git.Repository
}

// NewRecorder opens (or creates) the git repository for sessionID under
// $XDG_CACHE_HOME/ksched/traces/<sessionID>, mirroring the teacher's
// xdg-backed cache location for cloned repos.
func NewRecorder(sessionID string) (*Recorder, error) {
	dir := filepath.Join(xdg.CacheHome, CacheDirName, TraceDirName, sessionID)
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return nil, fmt.Errorf("trace: failed creating cache dir %s: %w", dir, err)
	}

	repo, err := git.PlainOpen(dir)
	if err != nil {
		repo, err = git.PlainInit(dir, false)
		if err != nil {
			return nil, fmt.Errorf("trace: failed initializing repo at %s: %w", dir, err)
		}
	}

	return &Recorder{dir: dir, repo: repo}, nil
}

// Dir returns the on-disk location of this recorder's repository.
func (r *Recorder) Dir() string { return r.dir }

// Record serializes snapshot to JSON, writes it over the repo's single
// tracked file, and commits it with message tag. It returns the new
// commit's hash.
func (r *Recorder) Record(tag string, snapshot []kernel.IndexedPCB) (Hash, error) {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return Hash{}, fmt.Errorf("trace: failed marshaling snapshot: %w", err)
	}

	fp := filepath.Join(r.dir, SnapshotFile)
	if err := os.WriteFile(fp, data, 0o644); err != nil {
		return Hash{}, fmt.Errorf("trace: failed writing snapshot: %w", err)
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return Hash{}, fmt.Errorf("trace: failed getting worktree: %w", err)
	}
	if _, err := wt.Add(SnapshotFile); err != nil {
		return Hash{}, fmt.Errorf("trace: failed staging snapshot: %w", err)
	}

	sig := &object.Signature{Name: CommitAuthor, Email: CommitAuthorE, When: time.Now()}
	commitHash, err := wt.Commit(tag, &git.CommitOptions{Author: sig, AllowEmptyCommits: true})
	if err != nil {
		return Hash{}, fmt.Errorf("trace: failed committing snapshot: %w", err)
	}

	return Hash(commitHash), nil
}

// History walks the repository's commit log, newest first, the same way
// the teacher's GetCommits walked a cloned source repository.
func (r *Recorder) History() ([]Entry, error) {
	commitIter, err := r.repo.Log(&git.LogOptions{Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("trace: failed reading log: %w", err)
	}

	var entries []Entry
	err = commitIter.ForEach(func(c *object.Commit) error {
		entries = append(entries, Entry{
			Hash:    Hash(c.Hash),
			Message: c.Message,
			Date:    c.Committer.When,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("trace: failed walking log: %w", err)
	}
	return entries, nil
}

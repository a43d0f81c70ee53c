// Package history keeps an audit trail of the sign-up sheet: every mutation
// commits a JSON roster snapshot to a local git repository, so "who changed
// what, when" can be answered after the fact without any extra schema.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const rosterFile = "roster.json"

// Claim is one assignment as recorded in a snapshot.
type Claim struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	ItemName  string    `json:"item_name"`
	UserName  string    `json:"user_name"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Roster is the full sheet state at one point in time.
type Roster struct {
	GeneratedAt time.Time `json:"generated_at"`
	Claims      []Claim   `json:"claims"`
}

// CommitInfo describes one recorded change.
type CommitInfo struct {
	Hash    string    `json:"hash"`
	Author  string    `json:"author"`
	Message string    `json:"message"`
	When    time.Time `json:"when"`
}

// Service owns the roster repository. A single mutex serializes commits; the
// roster has one line of history, no branches.
type Service struct {
	dir string
	mu  sync.Mutex
}

func New(dir string) *Service {
	return &Service{dir: dir}
}

// Ensure initializes the repository with an empty roster if it does not
// exist yet.
func (s *Service) Ensure() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(filepath.Join(s.dir, ".git")); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat history repo: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	repo, err := git.PlainInit(s.dir, false)
	if err != nil {
		return fmt.Errorf("init history repo: %w", err)
	}

	hash, err := s.writeAndCommit(repo, Roster{GeneratedAt: time.Now()}, "system", "Initialize roster")
	if err != nil {
		return err
	}

	if err := repo.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName("main"), hash)); err != nil {
		return fmt.Errorf("set main branch ref: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return fmt.Errorf("set HEAD to main: %w", err)
	}
	return nil
}

// Record commits a new roster snapshot attributed to actor.
func (s *Service) Record(roster Roster, actor, message string) (CommitInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("open history repo: %w", err)
	}

	hash, err := s.writeAndCommit(repo, roster, actor, message)
	if err != nil {
		return CommitInfo{}, err
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("read commit object: %w", err)
	}
	return toCommitInfo(commitObj), nil
}

// List returns the most recent commits, newest first.
func (s *Service) List(limit int) ([]CommitInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}

	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return nil, fmt.Errorf("open history repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("log history: %w", err)
	}
	defer iter.Close()

	commits := make([]CommitInfo, 0, limit)
	err = iter.ForEach(func(c *object.Commit) error {
		if len(commits) >= limit {
			return errStopIteration
		}
		commits = append(commits, toCommitInfo(c))
		return nil
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return commits, nil
}

var errStopIteration = errors.New("stop iteration")

func (s *Service) writeAndCommit(repo *git.Repository, roster Roster, actor, message string) (plumbing.Hash, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("open worktree: %w", err)
	}

	payload, err := json.MarshalIndent(roster, "", "  ")
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("marshal roster: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, rosterFile), append(payload, '\n'), 0o644); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("write roster: %w", err)
	}
	if _, err := worktree.Add(rosterFile); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("git add roster: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  actor,
			Email: fmt.Sprintf("%s@gear.local", sanitizeEmail(actor)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("commit roster: %w", err)
	}
	return hash, nil
}

func toCommitInfo(c *object.Commit) CommitInfo {
	return CommitInfo{
		Hash:    c.Hash.String(),
		Author:  c.Author.Name,
		Message: strings.TrimSpace(c.Message),
		When:    c.Author.When,
	}
}

func sanitizeEmail(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, name)
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		return "someone"
	}
	return cleaned
}

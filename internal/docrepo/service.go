// Package docrepo keeps the saved versions of each job's analysis document
// in a per-job git repository.
package docrepo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"crucible/api/internal/analysis"
)

const (
	documentFile = "document.json"
	mainBranch   = "main"
)

var (
	ErrNoHistory      = errors.New("job has no saved versions")
	ErrUnknownVersion = errors.New("unknown version")
)

// Version is one commit in a job's history.
type Version struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// EnsureRepo creates the job's repository with baseline as its first
// commit. It does nothing if the repository already exists.
func (s *Service) EnsureRepo(jobID string, baseline *analysis.Document, author string) error {
	lock := s.jobLock(jobID)
	lock.Lock()
	defer lock.Unlock()

	path := s.repoPath(jobID)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat repo path: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create repo dir: %w", err)
	}
	repo, err := git.PlainInit(path, false)
	if err != nil {
		return fmt.Errorf("init repo: %w", err)
	}
	hash, err := s.commit(repo, baseline, author, "Import analysis baseline")
	if err != nil {
		return err
	}
	if err := repo.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName(mainBranch), hash)); err != nil {
		return fmt.Errorf("set main branch ref: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(mainBranch))); err != nil {
		return fmt.Errorf("set HEAD to main: %w", err)
	}
	return nil
}

// Commit records doc as a new version. When doc matches the head version
// nothing is written and changed is false.
func (s *Service) Commit(jobID string, doc *analysis.Document, author, message string) (Version, bool, error) {
	lock := s.jobLock(jobID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.open(jobID)
	if err != nil {
		return Version{}, false, err
	}

	head, err := headCommit(repo)
	if err != nil {
		return Version{}, false, err
	}
	previous, err := readDocumentFromCommit(head)
	if err != nil {
		return Version{}, false, err
	}
	if !HasChanges(previous, doc) {
		return toVersion(head), false, nil
	}

	hash, err := s.commit(repo, doc, author, message)
	if err != nil {
		return Version{}, false, err
	}
	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Version{}, false, fmt.Errorf("read commit object: %w", err)
	}
	return toVersion(commitObj), true, nil
}

func (s *Service) GetDocumentByHash(jobID, hash string) (*analysis.Document, Version, error) {
	lock := s.jobLock(jobID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.open(jobID)
	if err != nil {
		return nil, Version{}, err
	}
	resolvedHash, err := resolveHash(repo, hash)
	if err != nil {
		return nil, Version{}, err
	}
	commitObj, err := repo.CommitObject(resolvedHash)
	if err != nil {
		return nil, Version{}, fmt.Errorf("%w: %s", ErrUnknownVersion, hash)
	}
	doc, err := readDocumentFromCommit(commitObj)
	if err != nil {
		return nil, Version{}, err
	}
	return doc, toVersion(commitObj), nil
}

// History lists versions newest first. limit <= 0 means all.
func (s *Service) History(jobID string, limit int) ([]Version, error) {
	lock := s.jobLock(jobID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.open(jobID)
	if errors.Is(err, ErrNoHistory) {
		return []Version{}, nil
	}
	if err != nil {
		return nil, err
	}
	head, err := headCommit(repo)
	if err != nil {
		return nil, err
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]Version, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toVersion(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// HasChanges compares the stored form of two documents. The version
// counter is ignored.
func HasChanges(from, to *analysis.Document) bool {
	a, errA := documentPayload(from)
	b, errB := documentPayload(to)
	if errA != nil || errB != nil {
		return true
	}
	return !bytes.Equal(a, b)
}

func (s *Service) repoPath(jobID string) string {
	return filepath.Join(s.baseDir, filepath.Base(jobID))
}

func (s *Service) open(jobID string) (*git.Repository, error) {
	repo, err := git.PlainOpen(s.repoPath(jobID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, ErrNoHistory
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	return repo, nil
}

func (s *Service) jobLock(jobID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[jobID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[jobID] = lock
	return lock
}

func (s *Service) commit(repo *git.Repository, doc *analysis.Document, author, message string) (plumbing.Hash, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("open worktree: %w", err)
	}

	payload, err := documentPayload(doc)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("marshal document: %w", err)
	}

	repoRoot := worktree.Filesystem.Root()
	if err := os.WriteFile(filepath.Join(repoRoot, documentFile), payload, 0o644); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("write %s: %w", documentFile, err)
	}
	if _, err := worktree.Add(documentFile); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("git add document: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@users.crucible.local", sanitizeEmail(author)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("commit document: %w", err)
	}
	return hash, nil
}

func headCommit(repo *git.Repository) (*object.Commit, error) {
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(mainBranch), true)
	if err != nil {
		return nil, fmt.Errorf("resolve branch %s: %w", mainBranch, err)
	}
	commitObj, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("load commit object: %w", err)
	}
	return commitObj, nil
}

func documentPayload(doc *analysis.Document) ([]byte, error) {
	if doc == nil {
		doc = &analysis.Document{}
	}
	stored := *doc
	stored.Version = 0
	payload, err := json.MarshalIndent(&stored, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(payload, '\n'), nil
}

func readDocumentFromCommit(commitObj *object.Commit) (*analysis.Document, error) {
	file, err := commitObj.File(documentFile)
	if err != nil {
		return nil, fmt.Errorf("load %s from commit: %w", documentFile, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("open document reader: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read document bytes: %w", err)
	}

	var doc analysis.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode commit document: %w", err)
	}
	return &doc, nil
}

func toVersion(commitObj *object.Commit) Version {
	return Version{
		Hash:      commitObj.Hash.String()[:7],
		Message:   commitObj.Message,
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' || r == '@' || r == '.' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s", ErrUnknownVersion, hash)
	}
	return *resolved, nil
}

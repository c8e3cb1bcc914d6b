// Package history keeps a git repository per saved form so every save and
// delete can be listed and restored.
package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"beliefpad/api/internal/document"
	"beliefpad/api/internal/logging"
)

const contentFile = "form.json"

var ErrNoHistory = errors.New("no history for form")

// CommitInfo describes one recorded revision.
type CommitInfo struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	Deleted   bool      `json:"deleted"`
}

type Service struct {
	baseDir string
	author  string
	logger  logging.Logger
	now     func() time.Time
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir, author string, logger logging.Logger) *Service {
	if author == "" {
		author = "beliefpad"
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		baseDir: baseDir,
		author:  author,
		logger:  logger,
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Record commits doc as the new revision of key.
func (s *Service) Record(key string, doc document.Document, message string) (CommitInfo, error) {
	lock := s.formLock(key)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.openOrInit(key)
	if err != nil {
		return CommitInfo{}, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return CommitInfo{}, fmt.Errorf("open worktree: %w", err)
	}

	payload, err := document.Encode(doc, s.now())
	if err != nil {
		return CommitInfo{}, err
	}
	root := worktree.Filesystem.Root()
	if err := os.WriteFile(filepath.Join(root, contentFile), append(payload, '\n'), 0o644); err != nil {
		return CommitInfo{}, fmt.Errorf("write %s: %w", contentFile, err)
	}
	if _, err := worktree.Add(contentFile); err != nil {
		return CommitInfo{}, fmt.Errorf("git add content: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author:            s.signature(),
	})
	if err != nil {
		return CommitInfo{}, fmt.Errorf("commit content: %w", err)
	}
	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("read commit object: %w", err)
	}
	return toCommitInfo(commitObj), nil
}

// Remove records the deletion of key. Forms that were never recorded are ignored.
func (s *Service) Remove(key, message string) error {
	lock := s.formLock(key)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(key))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open repo: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if _, err := os.Stat(filepath.Join(worktree.Filesystem.Root(), contentFile)); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if _, err := worktree.Remove(contentFile); err != nil {
		return fmt.Errorf("git rm content: %w", err)
	}
	if _, err := worktree.Commit(message, &git.CommitOptions{Author: s.signature()}); err != nil {
		return fmt.Errorf("commit removal: %w", err)
	}
	return nil
}

// Log lists the revisions of key, newest first.
func (s *Service) Log(key string, limit int) ([]CommitInfo, error) {
	lock := s.formLock(key)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(key))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, ErrNoHistory
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	iter, err := repo.Log(&git.LogOptions{})
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, ErrNoHistory
	}
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]CommitInfo, 0, limit)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toCommitInfo(commitObj))
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

// Revision returns the document recorded at hash (full or abbreviated).
func (s *Service) Revision(key, hash string) (document.Document, error) {
	lock := s.formLock(key)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(key))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return document.Document{}, ErrNoHistory
	}
	if err != nil {
		return document.Document{}, fmt.Errorf("open repo: %w", err)
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return document.Document{}, fmt.Errorf("resolve revision %s: %w", hash, err)
	}
	commitObj, err := repo.CommitObject(*resolved)
	if err != nil {
		return document.Document{}, fmt.Errorf("read commit object: %w", err)
	}
	file, err := commitObj.File(contentFile)
	if err != nil {
		return document.Document{}, fmt.Errorf("revision %s has no content: %w", hash, err)
	}
	contents, err := file.Contents()
	if err != nil {
		return document.Document{}, fmt.Errorf("read content: %w", err)
	}
	record, err := document.Decode([]byte(contents))
	if err != nil {
		return document.Document{}, err
	}
	return record.Document(), nil
}

// FormSaved records a catalogue save. Failures are logged, the save stands.
func (s *Service) FormSaved(_ context.Context, key string, doc document.Document) {
	if _, err := s.Record(key, doc, "Save "+doc.TrimmedTitle()); err != nil {
		s.logger.Warn("history", "record save failed", map[string]any{"key": key, "error": err.Error()})
	}
}

// FormRemoved records a catalogue delete.
func (s *Service) FormRemoved(_ context.Context, key string) {
	if err := s.Remove(key, "Delete form"); err != nil {
		s.logger.Warn("history", "record delete failed", map[string]any{"key": key, "error": err.Error()})
	}
}

func (s *Service) openOrInit(key string) (*git.Repository, error) {
	path := s.repoPath(key)
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return nil, fmt.Errorf("set HEAD to main: %w", err)
	}
	return repo, nil
}

func (s *Service) signature() *object.Signature {
	return &object.Signature{
		Name:  s.author,
		Email: fmt.Sprintf("%s@local.beliefpad", sanitizeEmail(s.author)),
		When:  s.now(),
	}
}

// repoPath maps a catalogue key to a directory name valid on every platform.
func (s *Service) repoPath(key string) string {
	return filepath.Join(s.baseDir, strings.NewReplacer(":", "_", "/", "_", "\\", "_").Replace(key))
}

func (s *Service) formLock(key string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[key]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[key] = lock
	return lock
}

func toCommitInfo(commitObj *object.Commit) CommitInfo {
	info := CommitInfo{
		Hash:      commitObj.Hash.String()[:7],
		Message:   strings.TrimSpace(commitObj.Message),
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
	if _, err := commitObj.File(contentFile); errors.Is(err, object.ErrFileNotFound) {
		info.Deleted = true
	}
	return info
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}

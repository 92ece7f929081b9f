// Package publish commits generated artifacts to the git repository that
// contains them. It never pushes.
package publish

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/activitymap/internal/config"
	"github.com/fyrsmithlabs/activitymap/internal/logging"
)

var (
	// ErrNotRepository is returned when no git repository encloses the path.
	ErrNotRepository = errors.New("not a git repository")

	// ErrOutsideRepository is returned for artifacts outside the work tree.
	ErrOutsideRepository = errors.New("path outside repository")
)

// Config holds commit settings.
type Config struct {
	Repo        string // any path inside the work tree
	Message     string
	AuthorName  string
	AuthorEmail string
}

// ConfigFrom maps the application configuration onto a publish Config.
func ConfigFrom(c config.PublishConfig) Config {
	return Config{
		Repo:        c.Repo,
		Message:     c.Message,
		AuthorName:  c.AuthorName,
		AuthorEmail: c.AuthorEmail,
	}
}

// Publisher stages and commits artifacts. Commits are serialized, so one
// Publisher can be shared by concurrent pipelines.
type Publisher struct {
	cfg    Config
	repo   *git.Repository
	root   string
	logger *logging.Logger
	now    func() time.Time

	mu sync.Mutex
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock sets the clock used for commit signatures.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

// Open finds the repository enclosing cfg.Repo.
func Open(cfg Config, opts ...Option) (*Publisher, error) {
	if cfg.Repo == "" {
		cfg.Repo = "."
	}
	if cfg.Message == "" {
		return nil, errors.New("commit message is required")
	}
	repo, err := git.PlainOpenWithOptions(cfg.Repo, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, cfg.Repo)
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open work tree: %w", err)
	}
	root, err := realPath(wt.Filesystem.Root())
	if err != nil {
		return nil, err
	}

	p := &Publisher{
		cfg:    cfg,
		repo:   repo,
		root:   root,
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Root returns the work tree root.
func (p *Publisher) Root() string { return p.root }

// Branch returns the checked-out branch, or "" for a detached or unborn HEAD.
func (p *Publisher) Branch() string {
	head, err := p.repo.Head()
	if err != nil || !head.Name().IsBranch() {
		return ""
	}
	return head.Name().Short()
}

// Publish implements pipeline.Publisher.
func (p *Publisher) Publish(ctx context.Context, paths []string) error {
	_, err := p.Commit(ctx, paths)
	return err
}

// Commit stages paths and commits them. It returns the zero hash and no
// error when none of the paths changed since the last commit.
func (p *Publisher) Commit(ctx context.Context, paths []string) (plumbing.Hash, error) {
	if err := ctx.Err(); err != nil {
		return plumbing.ZeroHash, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	wt, err := p.repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("open work tree: %w", err)
	}

	rels := make([]string, 0, len(paths))
	for _, path := range paths {
		rel, err := p.relative(path)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		if _, err := wt.Add(rel); err != nil {
			return plumbing.ZeroHash, fmt.Errorf("stage %s: %w", rel, err)
		}
		rels = append(rels, rel)
	}

	status, err := wt.Status()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("work tree status: %w", err)
	}
	changed := 0
	for _, rel := range rels {
		if status.File(rel).Staging != git.Unmodified {
			changed++
		}
	}
	if changed == 0 {
		p.logger.Info(ctx, "artifacts unchanged, nothing to commit", zap.Int("files", len(rels)))
		return plumbing.ZeroHash, nil
	}

	hash, err := wt.Commit(p.cfg.Message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  p.cfg.AuthorName,
			Email: p.cfg.AuthorEmail,
			When:  p.now(),
		},
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("commit artifacts: %w", err)
	}
	p.logger.Info(ctx, "artifacts committed",
		zap.String("commit", hash.String()),
		zap.String("branch", p.Branch()),
		zap.Int("changed", changed))
	return hash, nil
}

// relative converts path to a slash-separated path inside the work tree.
func (p *Publisher) relative(path string) (string, error) {
	abs, err := realPath(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(p.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRepository, path)
	}
	return filepath.ToSlash(rel), nil
}

// realPath returns the absolute path with symlinks resolved, so temp
// directories behind symlinks compare equal.
func realPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return resolved, nil
}

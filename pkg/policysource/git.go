package policysource

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"veritas-hq/bastion/pkg/config"
)

// GitSource loads policy overrides from a file in a Git repository,
// keeping a local clone and polling the remote for changes.
type GitSource struct {
	cfg    config.GitSourceConfig
	logger *slog.Logger

	lastHash [32]byte
}

// NewGitSource creates a Git-backed source.
func NewGitSource(cfg config.GitSourceConfig) *GitSource {
	return &GitSource{
		cfg:    cfg,
		logger: slog.Default().With("component", "policysource.git"),
	}
}

func (s *GitSource) auth() *http.BasicAuth {
	if s.cfg.Token == "" {
		return nil
	}
	// Any non-empty username works for token auth over HTTPS.
	return &http.BasicAuth{Username: "bastion", Password: s.cfg.Token}
}

// ensureClone opens the local clone, creating it on first use.
func (s *GitSource) ensureClone(ctx context.Context) (*git.Repository, error) {
	repo, err := git.PlainOpen(s.cfg.CloneDir)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("failed to open policy clone: %w", err)
	}

	repo, err = git.PlainCloneContext(ctx, s.cfg.CloneDir, false, &git.CloneOptions{
		URL:           s.cfg.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(s.cfg.Branch),
		SingleBranch:  true,
		Depth:         1,
		Auth:          s.auth(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clone policy repository: %w", err)
	}
	s.logger.Info("cloned policy repository",
		"repository", s.cfg.Repository,
		"branch", s.cfg.Branch,
	)
	return repo, nil
}

// pull fast-forwards the clone. Already-up-to-date is not an error.
func (s *GitSource) pull(ctx context.Context, repo *git.Repository) error {
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get policy worktree: %w", err)
	}
	err = wt.PullContext(ctx, &git.PullOptions{
		ReferenceName: plumbing.NewBranchReferenceName(s.cfg.Branch),
		SingleBranch:  true,
		Auth:          s.auth(),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to pull policy repository: %w", err)
	}
	return nil
}

// Load clones or updates the repository and parses the override file.
func (s *GitSource) Load(ctx context.Context) (*PolicySet, error) {
	repo, err := s.ensureClone(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.pull(ctx, repo); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.cfg.CloneDir, s.cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file from clone: %w", err)
	}
	s.lastHash = sha256.Sum256(data)
	return parseOverrides(data)
}

// Start polls the remote at the configured interval, invoking onReload
// whenever the override file's content changes. It returns after the
// initial load; polling continues until ctx is cancelled.
func (s *GitSource) Start(ctx context.Context, onReload func(*PolicySet)) error {
	set, err := s.Load(ctx)
	if err != nil {
		return err
	}
	onReload(set)

	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.poll(ctx, onReload)
			}
		}
	}()
	return nil
}

func (s *GitSource) poll(ctx context.Context, onReload func(*PolicySet)) {
	prev := s.lastHash
	set, err := s.Load(ctx)
	if err != nil {
		s.logger.Error("policy repository poll failed", "error", err)
		return
	}
	if s.lastHash == prev {
		return
	}
	s.logger.Info("policy overrides updated from repository",
		"repository", s.cfg.Repository,
	)
	onReload(set)
}

package handlers

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/grigorimaxim422/atom/config"
	"github.com/grigorimaxim422/atom/logger"
)

var _ ContentStore = (*GithubHandler)(nil)

// GithubHandler stores records as files in a git repository, one commit per
// Put. It shells out to the git CLI against a private working clone; the
// returned revisions are commit hashes.
type GithubHandler struct {
	Config config.Config `inject:""`
	Logger logger.Logger `inject:""`

	repoURL string
	workDir string
	cloned  bool

	// runner executes a git subcommand in dir and returns its combined
	// output. Tests swap this out.
	runner func(ctx context.Context, dir string, args ...string) (string, error)
}

func (g *GithubHandler) Start() error {
	repoURL, err := g.Config.GetContentRepoURL()
	if err != nil {
		return err
	}
	if repoURL == "" {
		return errors.New("a content repo URL is required")
	}
	g.repoURL = repoURL

	if g.runner == nil {
		g.runner = runGit
	}
	if g.workDir == "" {
		dir, err := os.MkdirTemp("", "atom-content-*")
		if err != nil {
			return errors.Wrap(err, "failed to create content store workdir")
		}
		g.workDir = dir
	}
	return nil
}

func (g *GithubHandler) Stop() error {
	if g.workDir != "" {
		os.RemoveAll(g.workDir)
	}
	return nil
}

func (g *GithubHandler) ensureClone(ctx context.Context) error {
	if g.cloned {
		return nil
	}
	if _, err := g.runner(ctx, g.workDir, "clone", g.repoURL, "."); err != nil {
		return errors.Wrap(err, "failed to clone content repo")
	}
	g.cloned = true
	return nil
}

func (g *GithubHandler) Get(ctx context.Context, revision, path string) ([]byte, error) {
	if err := g.ensureClone(ctx); err != nil {
		return nil, err
	}
	if _, err := g.runner(ctx, g.workDir, "fetch", "origin"); err != nil {
		return nil, errors.Wrap(err, "failed to fetch content repo")
	}

	if revision == "" {
		revision = "origin/HEAD"
	}
	out, err := g.runner(ctx, g.workDir, "show", revision+":"+path)
	if err != nil {
		if strings.Contains(out, "does not exist") || strings.Contains(out, "exists on disk, but not in") {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "failed to read %s at %s", path, revision)
	}
	return []byte(out), nil
}

func (g *GithubHandler) Put(ctx context.Context, content []byte, folder, ext, key, branch string) (string, error) {
	if err := g.ensureClone(ctx); err != nil {
		return "", err
	}

	if _, err := g.runner(ctx, g.workDir, "checkout", "-B", branch); err != nil {
		return "", errors.Wrapf(err, "failed to check out branch %s", branch)
	}

	relPath := RecordPath(folder, ext, key)
	absPath := filepath.Join(g.workDir, relPath)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create record folder")
	}
	if err := os.WriteFile(absPath, content, 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write record")
	}

	if _, err := g.runner(ctx, g.workDir, "add", relPath); err != nil {
		return "", errors.Wrap(err, "failed to stage record")
	}
	msg := fmt.Sprintf("update %s", relPath)
	if out, err := g.runner(ctx, g.workDir, "commit", "-m", msg); err != nil {
		// an unchanged record is not an error; reuse the current revision
		if !strings.Contains(out, "nothing to commit") {
			return "", errors.Wrap(err, "failed to commit record")
		}
	}
	if _, err := g.runner(ctx, g.workDir, "push", "origin", branch); err != nil {
		return "", errors.Wrapf(err, "failed to push branch %s", branch)
	}

	hash, err := g.runner(ctx, g.workDir, "rev-parse", "HEAD")
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve commit hash")
	}
	g.Logger.Infof("stored record %s at %s", relPath, strings.TrimSpace(hash))
	return strings.TrimSpace(hash), nil
}

// RecordPath builds the in-repo location for a record.
func RecordPath(folder, ext, key string) string {
	name := key + "." + strings.TrimPrefix(ext, ".")
	if folder == "" {
		return name
	}
	return filepath.Join(folder, name)
}

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}

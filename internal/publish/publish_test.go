package publish

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/activitymap/internal/logging"
)

var stamp = time.Date(2024, time.March, 31, 12, 0, 0, 0, time.UTC)

func testConfig(repo string) Config {
	return Config{
		Repo:        repo,
		Message:     "Update activity artifacts",
		AuthorName:  "activitymap",
		AuthorEmail: "activitymap@localhost",
	}
}

func initRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return dir, repo
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOpen(t *testing.T) {
	dir, _ := initRepo(t)
	sub := filepath.Join(dir, "public")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	p, err := Open(testConfig(sub))
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, want, p.Root(), "repository is found from a subdirectory")
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(testConfig(t.TempDir()))
	assert.ErrorIs(t, err, ErrNotRepository)

	dir, _ := initRepo(t)
	cfg := testConfig(dir)
	cfg.Message = ""
	_, err = Open(cfg)
	assert.Error(t, err)
}

func TestCommit(t *testing.T) {
	dir, repo := initRepo(t)
	logger := logging.NewTestLogger()
	p, err := Open(testConfig(dir), WithLogger(logger.Logger), WithClock(func() time.Time { return stamp }))
	require.NoError(t, err)
	ctx := context.Background()

	png := writeFile(t, filepath.Join(dir, "public", "heatmap.png"), "png-1")
	js := writeFile(t, filepath.Join(dir, "public", "heatmap.json"), "{}")

	hash, err := p.Commit(ctx, []string{png, js})
	require.NoError(t, err)
	require.NotEqual(t, plumbing.ZeroHash, hash)

	commit, err := repo.CommitObject(hash)
	require.NoError(t, err)
	assert.Equal(t, "Update activity artifacts", commit.Message)
	assert.Equal(t, "activitymap", commit.Author.Name)
	assert.True(t, stamp.Equal(commit.Author.When))
	_, err = commit.File("public/heatmap.png")
	assert.NoError(t, err)
	_, err = commit.File("public/heatmap.json")
	assert.NoError(t, err)
	assert.Equal(t, "master", p.Branch())
	logger.AssertLogged(t, zapcore.InfoLevel, "artifacts committed")

	t.Run("unchanged artifacts produce no commit", func(t *testing.T) {
		again, err := p.Commit(ctx, []string{png, js})
		require.NoError(t, err)
		assert.Equal(t, plumbing.ZeroHash, again)

		head, err := repo.Head()
		require.NoError(t, err)
		assert.Equal(t, hash, head.Hash())
		logger.AssertLogged(t, zapcore.InfoLevel, "nothing to commit")
	})

	t.Run("changed artifact produces a commit", func(t *testing.T) {
		writeFile(t, png, "png-2")
		next, err := p.Commit(ctx, []string{png, js})
		require.NoError(t, err)
		require.NotEqual(t, plumbing.ZeroHash, next)

		commit, err := repo.CommitObject(next)
		require.NoError(t, err)
		require.Equal(t, 1, commit.NumParents())
		parent, err := commit.Parent(0)
		require.NoError(t, err)
		assert.Equal(t, hash, parent.Hash)
	})
}

func TestCommit_SharedByConcurrentPipelines(t *testing.T) {
	dir, repo := initRepo(t)
	p, err := Open(testConfig(dir))
	require.NoError(t, err)
	ctx := context.Background()

	sets := [][]string{
		{"heatmap.png", "heatmap.html", "heatmap.json"},
		{"word_cloud.svg", "word_cloud.html", "word_cloud.json"},
	}
	var wg sync.WaitGroup
	errs := make([]error, len(sets))
	for i, names := range sets {
		paths := make([]string, len(names))
		for j, name := range names {
			paths[j] = writeFile(t, filepath.Join(dir, "public", name), name)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = p.Commit(ctx, paths)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	for _, names := range sets {
		for _, name := range names {
			_, err := commit.File("public/" + name)
			assert.NoError(t, err, name)
		}
	}

	wt, err := repo.Worktree()
	require.NoError(t, err)
	status, err := wt.Status()
	require.NoError(t, err)
	assert.True(t, status.IsClean(), status.String())
}

func TestCommit_RelativePaths(t *testing.T) {
	dir, _ := initRepo(t)
	p, err := Open(testConfig(dir))
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "public", "word_cloud.svg"), "<svg/>")
	t.Chdir(dir)

	hash, err := p.Commit(context.Background(), []string{filepath.Join("public", "word_cloud.svg")})
	require.NoError(t, err)
	assert.NotEqual(t, plumbing.ZeroHash, hash)
}

func TestCommit_OutsideRepository(t *testing.T) {
	dir, _ := initRepo(t)
	p, err := Open(testConfig(dir))
	require.NoError(t, err)

	outside := writeFile(t, filepath.Join(t.TempDir(), "heatmap.png"), "png")
	_, err = p.Commit(context.Background(), []string{outside})
	assert.ErrorIs(t, err, ErrOutsideRepository)
}

func TestCommit_CanceledContext(t *testing.T) {
	dir, _ := initRepo(t)
	p, err := Open(testConfig(dir))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, nil), context.Canceled)
}

package handlers

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grigorimaxim422/atom/config"
	"github.com/grigorimaxim422/atom/logger"
)

// fakeGit records every git invocation and answers from a canned script.
type fakeGit struct {
	calls   [][]string
	outputs map[string]string
	errs    map[string]error
}

func (f *fakeGit) run(ctx context.Context, dir string, args ...string) (string, error) {
	f.calls = append(f.calls, args)
	key := args[0]
	return f.outputs[key], f.errs[key]
}

func (f *fakeGit) called(sub string) bool {
	for _, call := range f.calls {
		if call[0] == sub {
			return true
		}
	}
	return false
}

func newTestHandler(t *testing.T, git *fakeGit) *GithubHandler {
	t.Helper()
	h := &GithubHandler{
		Config:  &config.MockConfig{GetContentRepoURLVal: "git@example.com:org/content.git"},
		Logger:  &logger.MockLogger{},
		workDir: t.TempDir(),
		runner:  git.run,
	}
	require.NoError(t, h.Start())
	return h
}

func TestGithubPutCommitsAndPushes(t *testing.T) {
	git := &fakeGit{
		outputs: map[string]string{"rev-parse": "abc123def\n"},
	}
	h := newTestHandler(t, git)

	hash, err := h.Put(context.Background(), []byte(`{"score":0.7}`), "records", "json", "miner-7", "main")
	require.NoError(t, err)
	assert.Equal(t, "abc123def", hash)

	for _, sub := range []string{"clone", "checkout", "add", "commit", "push"} {
		assert.True(t, git.called(sub), "expected a git %s", sub)
	}
}

func TestGithubPutClonesOnlyOnce(t *testing.T) {
	git := &fakeGit{outputs: map[string]string{"rev-parse": "abc\n"}}
	h := newTestHandler(t, git)

	_, err := h.Put(context.Background(), []byte("a"), "records", "json", "k1", "main")
	require.NoError(t, err)
	_, err = h.Put(context.Background(), []byte("b"), "records", "json", "k2", "main")
	require.NoError(t, err)

	clones := 0
	for _, call := range git.calls {
		if call[0] == "clone" {
			clones++
		}
	}
	assert.Equal(t, 1, clones)
}

func TestGithubGetMissingPathIsNotFound(t *testing.T) {
	git := &fakeGit{
		outputs: map[string]string{"show": "fatal: path 'x.json' does not exist in 'abc123'"},
		errs:    map[string]error{"show": assert.AnError},
	}
	h := newTestHandler(t, git)

	_, err := h.Get(context.Background(), "abc123", "x.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGithubGetDefaultsToOriginHead(t *testing.T) {
	git := &fakeGit{outputs: map[string]string{"show": "content"}}
	h := newTestHandler(t, git)

	data, err := h.Get(context.Background(), "", "records/miner-7.json")
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	var showArg string
	for _, call := range git.calls {
		if call[0] == "show" {
			showArg = call[1]
		}
	}
	assert.True(t, strings.HasPrefix(showArg, "origin/HEAD:"))
}

func TestGithubStartRequiresRepoURL(t *testing.T) {
	h := &GithubHandler{
		Config: &config.MockConfig{},
		Logger: &logger.MockLogger{},
	}
	assert.Error(t, h.Start())
}

func TestRecordPath(t *testing.T) {
	assert.Equal(t, "records/miner-7.json", RecordPath("records", "json", "miner-7"))
	assert.Equal(t, "records/miner-7.json", RecordPath("records", ".json", "miner-7"))
	assert.Equal(t, "miner-7.json", RecordPath("", "json", "miner-7"))
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/octet-stream", ContentTypeFor("models/weights.pt"))
	assert.Equal(t, "application/json", ContentTypeFor("records/miner-7.json"))
	assert.Equal(t, "audio/midi", ContentTypeFor("outputs/song.mid"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("blob.unknownext"))
}

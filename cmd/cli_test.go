package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tomlrepo "github.com/bnema/quotaguard/internal/adapters/repo/toml"
	"github.com/bnema/quotaguard/internal/application"
	"github.com/bnema/quotaguard/internal/domain"
)

func TestVersionNeedsNoConfig(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "version", "--config", filepath.Join(home, "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestMissingConfigFileFails(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "status", "--account", "acct-1", "--config", filepath.Join(home, "missing.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestBlockRequiresAccountFlag(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))

	_, _, err := executeCLI(t, home, "block")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s) \"account\" not set")
}

func TestBlockThenStatusJSON(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))

	stdout, _, err := executeCLI(t, home, "block", "--account", "acct-1", "--reason", "abuse", "--by", "ops", "--duration", "indefinite")
	require.NoError(t, err)
	assert.Contains(t, stdout, "acct-1: blocked (MANUAL)")
	assert.Contains(t, stdout, "block applied")

	policy, err := os.ReadFile(filepath.Join(home, "data", "policies", "acct-1.json"))
	require.NoError(t, err)
	assert.Contains(t, string(policy), domain.DenySID)

	stdout, _, err = executeCLI(t, home, "status", "--account", "acct-1", "--json")
	require.NoError(t, err)

	var views []application.CommandResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &views))
	require.Len(t, views, 1)
	assert.True(t, views[0].IsBlocked)
	assert.Equal(t, domain.BlockTypeManual, views[0].BlockType)
	assert.Equal(t, "ops", views[0].PerformedBy)
	assert.Nil(t, views[0].ExpiresAt)
	assert.Equal(t, "abuse", views[0].Message)
}

func TestBlockJSONResponse(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))

	stdout, _, err := executeCLI(t, home, "block", "--account", "acct-1", "--duration", "30days", "--json")
	require.NoError(t, err)

	var resp application.CommandResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, application.ResponseSuccess, resp.Status)
	assert.Equal(t, "admin", resp.PerformedBy)
	require.NotNil(t, resp.ExpiresAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), *resp.ExpiresAt, time.Minute)
}

func TestBlockRejectsUnknownDuration(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))

	stdout, _, err := executeCLI(t, home, "block", "--account", "acct-1", "--duration", "2days")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duration must be one of")
	assert.Contains(t, stdout, "acct-1: active (NONE)")
}

func TestBlockRejectsMalformedExpiry(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))

	_, _, err := executeCLI(t, home, "block", "--account", "acct-1", "--expires-at", "tomorrow")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse --expires-at")
}

func TestUnblockAfterBlock(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))

	_, _, err := executeCLI(t, home, "block", "--account", "acct-1")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "unblock", "--account", "acct-1", "--by", "ops")
	require.NoError(t, err)
	assert.Contains(t, stdout, "acct-1: active (NONE)")
	assert.Contains(t, stdout, "unblock applied")

	policy, err := os.ReadFile(filepath.Join(home, "data", "policies", "acct-1.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(policy), domain.DenySID)
	assert.Contains(t, string(policy), domain.DefaultAllowSID)
}

func TestStatusRendersText(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))

	stdout, _, err := executeCLI(t, home, "status", "--account", "acct-1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Usage Quota Status")
	assert.Contains(t, stdout, "acct-1")
	assert.Contains(t, stdout, "ACTIVE")
}

func TestStatusPlainUsesBarWidth(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))

	stdout, _, err := executeCLI(t, home, "status", "--account", "acct-1", "--plain", "--bar-width", "8")
	require.NoError(t, err)
	assert.Contains(t, stdout, "accounts: 1  blocked: 0")
	assert.Contains(t, stdout, "[--------]")
	assert.NotContains(t, stdout, "\x1b[")
}

func TestEvaluateBlocksOverLimit(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))
	recordUsage(t, home, "acct-1", 3)

	stdout, _, err := executeCLI(t, home, "evaluate", "--account", "acct-1", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, stdout, "over limit: Daily limit exceeded")
	assert.NotContains(t, stdout, "block:")

	stdout, _, err = executeCLI(t, home, "evaluate", "--account", "acct-1", "--json")
	require.NoError(t, err)

	var view evaluationView
	require.NoError(t, json.Unmarshal([]byte(stdout), &view))
	assert.True(t, view.ShouldBlock)
	assert.Equal(t, int64(3), view.RequestsToday)
	assert.Equal(t, "applied", view.Outcome)
}

func TestEvaluateWithinLimits(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))
	recordUsage(t, home, "acct-1", 1)

	stdout, _, err := executeCLI(t, home, "evaluate", "--account", "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "acct-1: within limits (today 1, month 1)\n", stdout)
}

func TestSweepJSON(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))

	_, _, err := executeCLI(t, home, "unblock", "--account", "acct-1")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "sweep", "--json")
	require.NoError(t, err)

	var view sweepReportView
	require.NoError(t, json.Unmarshal([]byte(stdout), &view))
	assert.Equal(t, 1, view.ProtectionCleared)
	assert.Zero(t, view.Unblocked)
}

func TestSweepText(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))

	stdout, _, err := executeCLI(t, home, "sweep", "--quiet")
	require.NoError(t, err)
	assert.Contains(t, stdout, "unblocked: 0 (failed 0)")
	assert.Contains(t, stdout, "protection cleared: 0 (failed 0)")
}

func TestServeStopsOnCancel(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))
	t.Setenv("HOME", home)

	a := &app{}
	require.NoError(t, a.wire(context.Background(), "", io.Discard))
	t.Cleanup(func() { _ = a.close(context.Background()) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, a, "127.0.0.1:0", true) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	a := &app{}
	t.Cleanup(func() { _ = a.close(context.Background()) })

	root := newRootCmd(a)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeConfigFixture(home string) error {
	configDir := filepath.Join(home, ".config", "quotaguard")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}

	dataDir := filepath.Join(home, "data")
	cfg := fmt.Sprintf(`timezone = "UTC"

[limits]
daily = 3
monthly = 100

[store]
path = %q

[policy]
path = %q

[log]
level = "error"
`, filepath.Join(dataDir, "state.toml"), filepath.Join(dataDir, "policies"))

	return os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(cfg), 0o644)
}

func recordUsage(t *testing.T, home, id string, n int) {
	t.Helper()

	store, err := tomlrepo.NewStore(filepath.Join(home, "data", "state.toml"))
	require.NoError(t, err)
	for range n {
		require.NoError(t, store.RecordRequest(context.Background(), domain.AccountID(id), time.Now()))
	}
}

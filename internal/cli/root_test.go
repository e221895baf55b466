package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutorialcms/internal/config"
	"github.com/tutorialcms/internal/db"
	"github.com/tutorialcms/internal/lifecycle"
	"github.com/tutorialcms/internal/service"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand(config.AppConfig{})
	require.NotNil(t, cmd)
	assert.Equal(t, "lifecyclectl", cmd.Use)
	assert.Contains(t, cmd.Long, "execute-due")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand(config.AppConfig{})
	commands := []string{"execute-due", "pending", "versions", "restore", "schedule", "cancel", "init-user", "seed"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlagsDefaultToConfig(t *testing.T) {
	cmd := NewRootCommand(config.AppConfig{DatabaseDriver: "sqlite", DatabasePath: "/var/lib/cms.db"})

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "/var/lib/cms.db", dbFlag.DefValue)

	driverFlag := cmd.PersistentFlags().Lookup("driver")
	require.NotNil(t, driverFlag)
	assert.Equal(t, "sqlite", driverFlag.DefValue)
}

func TestPendingCommandFlags(t *testing.T) {
	cmd := NewRootCommand(config.AppConfig{})
	pendingCmd, _, err := cmd.Find([]string{"pending"})
	require.NoError(t, err)

	for _, name := range []string{"type", "content-id", "all"} {
		assert.NotNil(t, pendingCmd.Flags().Lookup(name), "flag %s", name)
	}
	assert.Equal(t, "false", pendingCmd.Flags().Lookup("all").DefValue)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))

	wrapped := engineError("schedule", lifecycle.ErrValidation)
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.ErrorIs(t, wrapped, lifecycle.ErrValidation)

	assert.Equal(t, ExitFailure, GetExitCode(engineError("cancel", lifecycle.ErrConflict)))
}

func TestInvalidFormatRejected(t *testing.T) {
	_, err := runCLI(t, filepath.Join(t.TempDir(), "cms.db"), "--format", "yaml", "pending")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestScheduleExecuteFlow(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cms.db")
	tutorialID := seedTutorial(t, dbPath)
	id := uintArg(tutorialID)

	out, err := runCLI(t, dbPath, "schedule", "tutorial", id, "publish", "2026-01-01T09:00:00Z", "--author", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "scheduled #1: publish tutorial/"+id)

	out, err = runCLI(t, dbPath, "--format", "json", "pending")
	require.NoError(t, err)
	var listed struct {
		Status string               `json:"status"`
		Data   []db.ScheduledAction `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	assert.Equal(t, "ok", listed.Status)
	require.Len(t, listed.Data, 1)
	assert.Equal(t, db.ActionPublish, listed.Data[0].Action)
	assert.Equal(t, uint(7), listed.Data[0].CreatedBy)

	// before the scheduled time nothing is due
	out, err = runCLI(t, dbPath, "execute-due", "--at", "2025-12-31T23:59:59Z")
	require.NoError(t, err)
	assert.Contains(t, out, "due: 0  executed: 0")

	out, err = runCLI(t, dbPath, "execute-due", "--at", "2026-01-01T09:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "due: 1  executed: 1")

	out, err = runCLI(t, dbPath, "pending")
	require.NoError(t, err)
	assert.NotContains(t, out, "publish")

	out, err = runCLI(t, dbPath, "pending", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "executed")

	gdb, err := db.Init(db.Options{Path: dbPath, Silent: true})
	require.NoError(t, err)
	defer db.Close(gdb)
	var tutorial db.Tutorial
	require.NoError(t, gdb.First(&tutorial, tutorialID).Error)
	assert.True(t, tutorial.Published)
	assert.NotNil(t, tutorial.PublishedAt)
}

func TestExecuteDueReportsFailures(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cms.db")
	seedTutorial(t, dbPath)

	_, err := runCLI(t, dbPath, "schedule", "page", "42", "publish", "2026-01-01T00:00:00Z")
	require.NoError(t, err)

	out, err := runCLI(t, dbPath, "execute-due", "--at", "2026-02-01T00:00:00Z")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "failed: 1")
	assert.Contains(t, out, "page/42")

	out, err = runCLI(t, dbPath, "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "retrying")
}

func TestCancelCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cms.db")
	id := uintArg(seedTutorial(t, dbPath))

	_, err := runCLI(t, dbPath, "schedule", "tutorial", id, "unpublish", "2030-01-01T00:00:00Z")
	require.NoError(t, err)

	out, err := runCLI(t, dbPath, "cancel", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "canceled #1")

	_, err = runCLI(t, dbPath, "cancel", "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = runCLI(t, dbPath, "cancel", "zero")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestVersionsAndRestore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cms.db")
	id := uintArg(seedTutorial(t, dbPath))

	out, err := runCLI(t, dbPath, "versions", "tutorial", id)
	require.NoError(t, err)
	assert.Contains(t, out, "create")
	assert.Contains(t, out, "update")

	out, err = runCLI(t, dbPath, "restore", "tutorials", id, "1", "--author", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "restored from v1 as v3")

	out, err = runCLI(t, dbPath, "--format", "json", "versions", "tutorial", id)
	require.NoError(t, err)
	var listed struct {
		Data []db.ContentVersion `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed.Data, 3)
	latest := listed.Data[0]
	assert.Equal(t, db.ChangeRestore, latest.ChangeType)
	assert.Equal(t, 1, latest.RestoredFrom)
	assert.Equal(t, "Draft title", latest.Title)
	assert.Equal(t, uint(3), latest.CreatedBy)

	_, err = runCLI(t, dbPath, "restore", "tutorial", id, "9")
	require.Error(t, err)
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)

	_, err = runCLI(t, dbPath, "restore", "tutorial", id, "first")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestScheduleRejectsBadArguments(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cms.db")

	cases := map[string][]string{
		"unknown type":   {"schedule", "video", "1", "publish", "2026-01-01T00:00:00Z"},
		"unknown action": {"schedule", "page", "1", "archive", "2026-01-01T00:00:00Z"},
		"bad time":       {"schedule", "page", "1", "publish", "tomorrow"},
		"zero id":        {"schedule", "page", "0", "publish", "2026-01-01T00:00:00Z"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := runCLI(t, dbPath, args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestInitUserCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cms.db")

	out, err := runCLI(t, dbPath, "init-user", "editor", "s3cret")
	require.NoError(t, err)
	assert.Contains(t, out, "user editor is ready")

	gdb, err := db.Init(db.Options{Path: dbPath, Silent: true})
	require.NoError(t, err)
	defer db.Close(gdb)
	user, err := db.Authenticate(gdb, "editor", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "editor", user.Username)
}

func runCLI(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand(config.AppConfig{})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"--db", dbPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// seedTutorial creates a tutorial with two versions: the draft and one edit.
func seedTutorial(t *testing.T, dbPath string) uint {
	t.Helper()
	gdb, err := db.Init(db.Options{Path: dbPath, Silent: true})
	require.NoError(t, err)
	defer db.Close(gdb)

	versions := lifecycle.NewVersionStore(gdb)
	svc := service.NewTutorialService(gdb, versions)
	ctx := context.Background()

	tutorial, err := svc.Create(ctx, service.ContentInput{Title: "Draft title", Body: "first", UserID: 1})
	require.NoError(t, err)
	_, err = svc.Update(ctx, tutorial.ID, service.ContentInput{Title: "Edited title", Body: "second", UserID: 1})
	require.NoError(t, err)
	return tutorial.ID
}

func uintArg(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestSeedCommandIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cms.db")

	out, err := runCLI(t, dbPath, "--format", "json", "seed")
	require.NoError(t, err)
	var seeded struct {
		Data seedSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &seeded))
	assert.Equal(t, seedSummary{Tutorials: 3, Pages: 1, Scheduled: 3}, seeded.Data)

	out, err = runCLI(t, dbPath, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "skipping")

	// only the first publish is due immediately
	out, err = runCLI(t, dbPath, "execute-due")
	require.NoError(t, err)
	assert.Contains(t, out, "executed: 1")

	out, err = runCLI(t, dbPath, "versions", "tutorial", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "update")
}

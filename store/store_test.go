package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"edcopilot_chatter_updater/chatter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	s, err := New(Options{
		CustomDir: filepath.Join(root, "custom"),
		BackupDir: filepath.Join(root, "backups"),
		OutputDir: filepath.Join(root, "output"),
		Now:       func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) },
	})
	require.NoError(t, err)
	return s
}

func entry(texts ...string) chatter.Entry {
	var e chatter.Entry
	for _, txt := range texts {
		e.Lines = append(e.Lines, chatter.Line{Speaker: "Helm", Text: txt})
	}
	return e
}

func TestLoadMissingFileIsEmptyState(t *testing.T) {
	s := newTestStore(t)
	st, err := s.Load(chatter.CrewChatter)
	require.NoError(t, err)
	assert.False(t, st.Exists)
	assert.Empty(t, st.Entries)
	assert.NotEmpty(t, st.Path)
}

func TestUpdateCreatesFileWithoutBackup(t *testing.T) {
	s := newTestStore(t)
	st, err := s.Load(chatter.CrewChatter)
	require.NoError(t, err)

	res, err := s.Update(chatter.CrewChatter, st, []chatter.Entry{entry("All stations report ready.")}, ModeReplace)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Nil(t, res.Backup, "no backup when the target did not exist")

	raw, err := os.ReadFile(st.Path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[example]")
	assert.Contains(t, string(raw), "All stations report ready.")
}

func TestUpdateBacksUpExistingFile(t *testing.T) {
	s := newTestStore(t)
	st0, err := s.Load(chatter.CrewChatter)
	require.NoError(t, err)
	_, err = s.Update(chatter.CrewChatter, st0, []chatter.Entry{entry("First generation.")}, ModeReplace)
	require.NoError(t, err)

	st1, err := s.Load(chatter.CrewChatter)
	require.NoError(t, err)
	require.True(t, st1.Exists)

	res, err := s.Update(chatter.CrewChatter, st1, []chatter.Entry{entry("Second generation.")}, ModeReplace)
	require.NoError(t, err)
	require.NotNil(t, res.Backup)
	assert.Equal(t, "EDCoPilot.CrewChatter.Custom_20260314_092653.txt", filepath.Base(res.Backup.Path))

	backup, err := os.ReadFile(res.Backup.Path)
	require.NoError(t, err)
	assert.Equal(t, st1.Raw, backup, "backup holds the exact pre-update bytes")

	raw, err := os.ReadFile(st1.Path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Second generation.")
	assert.NotContains(t, string(raw), "First generation.")
}

func TestUpdateKeepExistingAppends(t *testing.T) {
	s := newTestStore(t)
	st0, err := s.Load(chatter.CrewChatter)
	require.NoError(t, err)
	_, err = s.Update(chatter.CrewChatter, st0, []chatter.Entry{entry("Existing line stays.")}, ModeReplace)
	require.NoError(t, err)

	st1, err := s.Load(chatter.CrewChatter)
	require.NoError(t, err)
	res, err := s.Update(chatter.CrewChatter, st1, []chatter.Entry{entry("Fresh line lands after.")}, ModeKeepExisting)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	require.Len(t, res.Final, 2)
	assert.Equal(t, "Existing line stays.", res.Final[0].Lines[0].Text)
	assert.Equal(t, "Fresh line lands after.", res.Final[1].Lines[0].Text)
}

func TestUpdateDeduplicatesAgainstExistingInReplaceMode(t *testing.T) {
	s := newTestStore(t)
	st0, err := s.Load(chatter.CrewChatter)
	require.NoError(t, err)
	_, err = s.Update(chatter.CrewChatter, st0, []chatter.Entry{entry("Shield status nominal.")}, ModeReplace)
	require.NoError(t, err)

	st1, err := s.Load(chatter.CrewChatter)
	require.NoError(t, err)
	res, err := s.Update(chatter.CrewChatter, st1,
		[]chatter.Entry{entry("Shield status nominal."), entry("Cargo manifest verified.")}, ModeReplace)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Final, 1)
	assert.Equal(t, "Cargo manifest verified.", res.Final[0].Lines[0].Text)
}

func TestUpdateIsIdempotentInKeepMode(t *testing.T) {
	s := newTestStore(t)
	batch := []chatter.Entry{entry("Fuel scooping complete.")}

	st, err := s.Load(chatter.CrewChatter)
	require.NoError(t, err)
	_, err = s.Update(chatter.CrewChatter, st, batch, ModeKeepExisting)
	require.NoError(t, err)

	st, err = s.Load(chatter.CrewChatter)
	require.NoError(t, err)
	res, err := s.Update(chatter.CrewChatter, st, batch, ModeKeepExisting)
	require.NoError(t, err)
	assert.Zero(t, res.Added)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, res.Final, 1)
}

func TestLoadRoundTripsChitChatPhrases(t *testing.T) {
	s := newTestStore(t)
	st0, err := s.Load(chatter.ChitChat)
	require.NoError(t, err)
	phrases := []chatter.Entry{
		{Lines: []chatter.Line{{Text: "Anyone else miss the smell of rain, <cmdrname>?"}}},
		{Lines: []chatter.Line{{Text: "Void's quiet today."}}},
	}
	_, err = s.Update(chatter.ChitChat, st0, phrases, ModeReplace)
	require.NoError(t, err)

	st1, err := s.Load(chatter.ChitChat)
	require.NoError(t, err)
	require.Len(t, st1.Entries, 2)
	assert.Equal(t, "Anyone else miss the smell of rain, <cmdrname>?", st1.Entries[0].Lines[0].Text)
}

func TestDebugModeWritesToOutputDir(t *testing.T) {
	root := t.TempDir()
	s, err := New(Options{
		CustomDir: filepath.Join(root, "custom"),
		BackupDir: filepath.Join(root, "backups"),
		OutputDir: filepath.Join(root, "output"),
		Debug:     true,
	})
	require.NoError(t, err)

	st, err := s.Load(chatter.SpaceChatter)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "output"), filepath.Dir(st.Path))

	_, err = s.Update(chatter.SpaceChatter, st, []chatter.Entry{entry("Contact on scopes.")}, ModeReplace)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "custom", "EDCoPilot.SpaceChatter.Custom.txt"))
	assert.True(t, os.IsNotExist(err), "debug runs must not touch the custom dir")
}

func TestRollbackRestoresLatestBackup(t *testing.T) {
	s := newTestStore(t)
	st0, err := s.Load(chatter.CrewChatter)
	require.NoError(t, err)
	_, err = s.Update(chatter.CrewChatter, st0, []chatter.Entry{entry("Original content.")}, ModeReplace)
	require.NoError(t, err)

	st1, err := s.Load(chatter.CrewChatter)
	require.NoError(t, err)
	_, err = s.Update(chatter.CrewChatter, st1, []chatter.Entry{entry("Replacement content.")}, ModeReplace)
	require.NoError(t, err)

	require.NoError(t, s.Rollback(chatter.CrewChatter))
	raw, err := os.ReadFile(st1.Path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Original content.")
	assert.NotContains(t, string(raw), "Replacement content.")
}

func TestRollbackWithoutBackupFails(t *testing.T) {
	s := newTestStore(t)
	err := s.Rollback(chatter.DeepSpaceChatter)
	assert.Error(t, err)
}

func TestUpdateBackupFailureLeavesTargetUntouched(t *testing.T) {
	root := t.TempDir()
	backupDir := filepath.Join(root, "backups")
	s, err := New(Options{
		CustomDir: filepath.Join(root, "custom"),
		BackupDir: backupDir,
		OutputDir: filepath.Join(root, "output"),
	})
	require.NoError(t, err)

	st0, err := s.Load(chatter.CrewChatter)
	require.NoError(t, err)
	_, err = s.Update(chatter.CrewChatter, st0, []chatter.Entry{entry("Untouchable.")}, ModeReplace)
	require.NoError(t, err)

	st1, err := s.Load(chatter.CrewChatter)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(backupDir))

	_, err = s.Update(chatter.CrewChatter, st1, []chatter.Entry{entry("Should not land.")}, ModeReplace)
	var bf *BackupFailedError
	require.ErrorAs(t, err, &bf)

	raw, err := os.ReadFile(st1.Path)
	require.NoError(t, err)
	assert.Equal(t, st1.Raw, raw, "target must be byte-identical after a backup failure")
}

func TestUpdateWriteFailureLeavesBackupRecoverable(t *testing.T) {
	s := newTestStore(t)

	// A non-empty directory at the target path makes the final rename
	// fail deterministically after the backup step succeeded.
	target := filepath.Join(t.TempDir(), "EDCoPilot.CrewChatter.Custom.txt")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "blocker"), 0o755))
	st := State{Path: target, Raw: []byte("previous content\n"), Exists: true}

	_, err := s.Update(chatter.CrewChatter, st, []chatter.Entry{entry("New content.")}, ModeReplace)
	var wf *WriteFailedError
	require.ErrorAs(t, err, &wf)
	require.NotNil(t, wf.Backup, "error must carry the backup for recovery")

	raw, err := os.ReadFile(wf.Backup.Path)
	require.NoError(t, err)
	assert.Equal(t, st.Raw, raw)
}

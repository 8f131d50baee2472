// Package store owns the chatter target files: reading the current
// state, snapshotting it to a backup, and replacing it atomically.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"edcopilot_chatter_updater/chatter"

	"go.uber.org/zap"
)

// Mode selects how new entries combine with the existing file.
type Mode string

const (
	// ModeReplace discards existing entries from the file. They still
	// serve as the dedup reference set and survive in the backup.
	ModeReplace Mode = "replace"
	// ModeKeepExisting appends deduplicated new entries after the
	// existing ones.
	ModeKeepExisting Mode = "keep_existing"
)

// State is the authoritative pre-update snapshot of one target file,
// read once per run.
type State struct {
	Path    string
	Entries []chatter.Entry
	Raw     []byte
	Exists  bool
}

// BackupRecord points at a durable snapshot of the pre-update bytes.
// Never mutated after creation.
type BackupRecord struct {
	Path      string
	Timestamp time.Time
}

// MergeResult reports what an update did.
type MergeResult struct {
	Final   []chatter.Entry
	Added   int
	Skipped int
	Backup  *BackupRecord
}

// BackupFailedError aborts an update before the target was touched.
type BackupFailedError struct {
	Target string
	Err    error
}

func (e *BackupFailedError) Error() string {
	return fmt.Sprintf("backup failed for %s, target untouched: %v", e.Target, e.Err)
}

func (e *BackupFailedError) Unwrap() error { return e.Err }

// WriteFailedError reports a failed write after a successful backup;
// the previous content remains recoverable from Backup.
type WriteFailedError struct {
	Target string
	Backup *BackupRecord
	Err    error
}

func (e *WriteFailedError) Error() string {
	backup := "none"
	if e.Backup != nil {
		backup = e.Backup.Path
	}
	return fmt.Sprintf("write failed for %s (recoverable, backup: %s): %v", e.Target, backup, e.Err)
}

func (e *WriteFailedError) Unwrap() error { return e.Err }

// Store manages the custom chatter directory plus its backup and
// debug-output siblings.
type Store struct {
	customDir string
	backupDir string
	outputDir string
	debug     bool
	logger    *zap.Logger
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Options configures a Store.
type Options struct {
	CustomDir string
	BackupDir string
	OutputDir string
	// Debug redirects writes to OutputDir so a live EDCoPilot install
	// is never touched while experimenting.
	Debug  bool
	Logger *zap.Logger
	Now    func() time.Time
}

// New creates the store and ensures its directories exist.
func New(opts Options) (*Store, error) {
	if opts.CustomDir == "" && !opts.Debug {
		return nil, fmt.Errorf("custom dir is required")
	}
	if opts.BackupDir == "" {
		opts.BackupDir = "backups"
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "output"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	for _, dir := range []string{opts.BackupDir, opts.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure dir %s: %w", dir, err)
		}
	}
	if !opts.Debug {
		if err := os.MkdirAll(opts.CustomDir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure custom dir: %w", err)
		}
	}
	return &Store{
		customDir: opts.CustomDir,
		backupDir: opts.BackupDir,
		outputDir: opts.OutputDir,
		debug:     opts.Debug,
		logger:    opts.Logger,
		now:       opts.Now,
		locks:     map[string]*sync.Mutex{},
	}, nil
}

// TargetPath returns where cat's file lives under the current mode.
func (s *Store) TargetPath(cat chatter.Category) string {
	def, _ := chatter.Lookup(cat)
	if s.debug {
		return filepath.Join(s.outputDir, def.FileName)
	}
	return filepath.Join(s.customDir, def.FileName)
}

// OutputPath returns a path in the debug/prompt output directory.
func (s *Store) OutputPath(name string) string {
	return filepath.Join(s.outputDir, name)
}

// pathLock returns the exclusive lock for one target path. No two
// update sequences for the same path may interleave.
func (s *Store) pathLock(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[path]
	if !ok {
		l = &sync.Mutex{}
		s.locks[path] = l
	}
	return l
}

// Load reads the current target state for cat. A missing file is an
// empty state, not an error.
func (s *Store) Load(cat chatter.Category) (State, error) {
	path := s.TargetPath(cat)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return State{Path: path}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read target %s: %w", path, err)
	}
	st := State{Path: path, Raw: raw, Exists: true}
	if len(raw) > 0 {
		res, perr := chatter.Parse(string(raw), cat)
		if perr != nil && perr != chatter.ErrNoValidEntries {
			return State{}, fmt.Errorf("parse target %s: %w", path, perr)
		}
		st.Entries = res.Entries
	}
	return st, nil
}

// Update merges new entries into the target file for cat. The backup
// is durably written before the target is touched; the content swap
// is atomic (temp file + rename). Deduplication runs against the
// existing entries in both modes.
func (s *Store) Update(cat chatter.Category, st State, newEntries []chatter.Entry, mode Mode) (MergeResult, error) {
	lock := s.pathLock(st.Path)
	lock.Lock()
	defer lock.Unlock()

	kept, skipped := chatter.Dedupe(newEntries, st.Entries)

	var final []chatter.Entry
	switch mode {
	case ModeKeepExisting:
		final = append(append(final, st.Entries...), kept...)
	default:
		final = kept
	}

	var backup *BackupRecord
	if st.Exists {
		rec, err := s.createBackup(st)
		if err != nil {
			return MergeResult{}, &BackupFailedError{Target: st.Path, Err: err}
		}
		backup = rec
	}

	content := chatter.RenderAll(final, cat)
	if err := s.writeAtomic(st.Path, []byte(content)); err != nil {
		return MergeResult{}, &WriteFailedError{Target: st.Path, Backup: backup, Err: err}
	}

	s.logger.Info("target updated",
		zap.String("path", st.Path),
		zap.String("mode", string(mode)),
		zap.Int("existing", len(st.Entries)),
		zap.Int("added", len(kept)),
		zap.Int("skipped_duplicates", skipped))

	return MergeResult{Final: final, Added: len(kept), Skipped: skipped, Backup: backup}, nil
}

// createBackup snapshots the pre-update bytes as
// <stem>_<YYYYMMDD_HHMMSS><ext> in the backup dir and fsyncs it.
func (s *Store) createBackup(st State) (*BackupRecord, error) {
	ts := s.now().UTC()
	base := filepath.Base(st.Path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	name := fmt.Sprintf("%s_%s%s", stem, ts.Format("20060102_150405"), ext)
	path := filepath.Join(s.backupDir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(st.Raw); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	s.logger.Info("backup created", zap.String("source", st.Path), zap.String("backup", path))
	return &BackupRecord{Path: path, Timestamp: ts}, nil
}

// writeAtomic writes via a temp file in the target directory and
// renames it into place, so readers observe either the old or the new
// content, never a torn write.
func (s *Store) writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Rollback restores cat's target file from its most recent backup.
func (s *Store) Rollback(cat chatter.Category) error {
	def, _ := chatter.Lookup(cat)
	target := s.TargetPath(cat)

	lock := s.pathLock(target)
	lock.Lock()
	defer lock.Unlock()

	ext := filepath.Ext(def.FileName)
	stem := strings.TrimSuffix(def.FileName, ext)
	matches, err := filepath.Glob(filepath.Join(s.backupDir, stem+"_*"+ext))
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("no backups found for %s", cat)
	}
	// Timestamped names sort chronologically.
	sort.Strings(matches)
	latest := matches[len(matches)-1]

	raw, err := os.ReadFile(latest)
	if err != nil {
		return fmt.Errorf("read backup %s: %w", latest, err)
	}
	if err := s.writeAtomic(target, raw); err != nil {
		return fmt.Errorf("restore %s from %s: %w", target, latest, err)
	}
	s.logger.Info("rolled back", zap.String("target", target), zap.String("backup", latest))
	return nil
}

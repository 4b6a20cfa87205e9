package journal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cleared-dev/balancebook/internal/id"
	"github.com/cleared-dev/balancebook/internal/model"
)

// Store persists drafts and posted entries.
type Store interface {
	// SaveDraft writes a draft, assigning e.DraftID if it is empty.
	SaveDraft(ctx context.Context, e *model.JournalEntry) error
	Draft(ctx context.Context, draftID string) (*model.JournalEntry, error)
	// Drafts lists pending drafts ordered by date.
	Drafts(ctx context.Context) ([]*model.JournalEntry, error)
	DeleteDraft(ctx context.Context, draftID string) error

	// Commit atomically appends e as a posted entry, removes its draft if it
	// had one, and returns the assigned entry ID. e itself is not modified.
	Commit(ctx context.Context, e *model.JournalEntry) (string, error)

	// Entries returns posted entries dated inside r, ordered by date then ID.
	Entries(ctx context.Context, r model.DateRange) ([]*model.JournalEntry, error)
	// PostedLines returns the posted lines of one account dated inside r,
	// ordered by date, entry ID, then line number.
	PostedLines(ctx context.Context, accountCode string, r model.DateRange) ([]model.PostedLine, error)
}

// CSVStore keeps posted entries in YYYY/MM/journal.csv files under the repo
// root and drafts in drafts/<id>.yaml.
type CSVStore struct {
	root string
	mu   sync.RWMutex
}

var _ Store = (*CSVStore)(nil)

// NewCSVStore creates a CSVStore rooted at repoRoot.
func NewCSVStore(repoRoot string) *CSVStore {
	return &CSVStore{root: repoRoot}
}

// SaveDraft implements Store.
func (s *CSVStore) SaveDraft(ctx context.Context, e *model.JournalEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.IsPosted() {
		return fmt.Errorf("saving draft %s: %w", e.ID, model.ErrEntryPosted)
	}
	if e.DraftID == "" {
		e.DraftID = uuid.NewString()
	}

	data, err := MarshalDraft(e)
	if err != nil {
		return err
	}

	path, err := s.draftPath(e.DraftID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating drafts dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing draft: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("writing draft: %w", err)
	}
	return nil
}

// Draft implements Store.
func (s *CSVStore) Draft(ctx context.Context, draftID string) (*model.JournalEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.draftPath(draftID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", model.ErrDraftNotFound, draftID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading draft %s: %w", draftID, err)
	}
	e, err := UnmarshalDraft(data)
	if err != nil {
		return nil, fmt.Errorf("draft %s: %w", draftID, err)
	}
	e.DraftID = draftID
	return e, nil
}

// Drafts implements Store.
func (s *CSVStore) Drafts(ctx context.Context) ([]*model.JournalEntry, error) {
	paths, err := filepath.Glob(filepath.Join(s.root, "drafts", "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("listing drafts: %w", err)
	}

	drafts := make([]*model.JournalEntry, 0, len(paths))
	for _, p := range paths {
		draftID := strings.TrimSuffix(filepath.Base(p), ".yaml")
		e, err := s.Draft(ctx, draftID)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, e)
	}

	sort.SliceStable(drafts, func(i, j int) bool {
		if !drafts[i].Date.Equal(drafts[j].Date) {
			return drafts[i].Date.Before(drafts[j].Date)
		}
		return drafts[i].DraftID < drafts[j].DraftID
	})
	return drafts, nil
}

// DeleteDraft implements Store.
func (s *CSVStore) DeleteDraft(ctx context.Context, draftID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.draftPath(draftID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", model.ErrDraftNotFound, draftID)
		}
		return fmt.Errorf("deleting draft %s: %w", draftID, err)
	}
	return nil
}

// Commit implements Store. The month file is validated as a whole with the
// new rows added, then rewritten in one rename, so a corrupt month refuses
// further postings and a failed write leaves the month untouched.
func (s *CSVStore) Commit(ctx context.Context, e *model.JournalEntry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if e.IsPosted() {
		return "", fmt.Errorf("committing %s: %w", e.ID, model.ErrEntryPosted)
	}
	if !e.HasBothSides() {
		return "", model.ErrEmptyEntry
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var draftPath string
	if e.DraftID != "" {
		p, err := s.draftPath(e.DraftID)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", model.ErrDraftNotFound, e.DraftID)
		}
		draftPath = p
	}

	year, month := e.Date.Year(), int(e.Date.Month())
	existing, err := s.readMonth(year, month)
	if err != nil {
		return "", err
	}

	entryID := id.FormatEntryID(year, month, nextSeq(existing))
	posted := *e
	posted.ID = entryID
	newRows := RowsFromEntry(&posted)

	all := append(existing, newRows...)
	if verrs := ValidateRows(all, nil, year, month); len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, ve := range verrs {
			msgs[i] = ve.Error()
		}
		return "", fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
	}

	if err := s.writeMonth(year, month, all); err != nil {
		return "", err
	}

	if draftPath != "" {
		if err := os.Remove(draftPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return entryID, fmt.Errorf("posted %s but removing draft %s: %w", entryID, e.DraftID, err)
		}
	}
	return entryID, nil
}

// Entries implements Store.
func (s *CSVStore) Entries(ctx context.Context, r model.DateRange) ([]*model.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	months, err := s.months(r)
	if err != nil {
		return nil, err
	}

	var out []*model.JournalEntry
	for _, ym := range months {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := s.readMonth(ym[0], ym[1])
		if err != nil {
			return nil, err
		}
		entries, err := EntriesFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", s.monthPath(ym[0], ym[1]), err)
		}
		for _, e := range entries {
			if r.Contains(e.Date) {
				out = append(out, e)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return id.Compare(out[i].ID, out[j].ID) < 0
	})
	return out, nil
}

// PostedLines implements Store.
func (s *CSVStore) PostedLines(ctx context.Context, accountCode string, r model.DateRange) ([]model.PostedLine, error) {
	entries, err := s.Entries(ctx, r)
	if err != nil {
		return nil, err
	}
	var lines []model.PostedLine
	for _, e := range entries {
		for _, l := range e.PostedLines() {
			if l.AccountCode == accountCode {
				lines = append(lines, l)
			}
		}
	}
	return lines, nil
}

func (s *CSVStore) readMonth(year, month int) ([]Row, error) {
	path := s.monthPath(year, month)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}
	defer f.Close()

	rows, err := ReadRows(f)
	if err != nil {
		return nil, fmt.Errorf("reading journal %s: %w", path, err)
	}
	return rows, nil
}

// writeMonth replaces the month's journal.csv with rows. The file is written
// to a temporary sibling, synced, and renamed over the original, so readers
// see either the old month or the new one and never a partial entry.
func (s *CSVStore) writeMonth(year, month int, rows []Row) (err error) {
	journalPath := s.monthPath(year, month)
	if err := os.MkdirAll(filepath.Dir(journalPath), 0o755); err != nil {
		return fmt.Errorf("creating journal dir: %w", err)
	}

	tmp := journalPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating journal: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if err := WriteRows(f, rows); err != nil {
		return fmt.Errorf("writing journal: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing journal: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing journal: %w", err)
	}
	if err := os.Rename(tmp, journalPath); err != nil {
		return fmt.Errorf("replacing journal: %w", err)
	}
	return nil
}

// months lists the [year, month] pairs with a journal file that can overlap r,
// in chronological order.
func (s *CSVStore) months(r model.DateRange) ([][2]int, error) {
	paths, err := filepath.Glob(filepath.Join(s.root, "[0-9][0-9][0-9][0-9]", "[0-9][0-9]", "journal.csv"))
	if err != nil {
		return nil, fmt.Errorf("listing journal files: %w", err)
	}

	var out [][2]int
	for _, p := range paths {
		monthDir := filepath.Dir(p)
		year, err1 := strconv.Atoi(filepath.Base(filepath.Dir(monthDir)))
		month, err2 := strconv.Atoi(filepath.Base(monthDir))
		if err1 != nil || err2 != nil || month < 1 || month > 12 {
			continue
		}
		first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		last := first.AddDate(0, 1, -1)
		if r.To != nil && first.After(model.Day(*r.To)) {
			continue
		}
		if r.From != nil && last.Before(model.Day(*r.From)) {
			continue
		}
		out = append(out, [2]int{year, month})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out, nil
}

func (s *CSVStore) monthPath(year, month int) string {
	return filepath.Join(s.root, fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month), "journal.csv")
}

// draftPath resolves a draft file. Draft IDs are UUIDs; anything else is
// treated as unknown so IDs can never escape the drafts directory.
func (s *CSVStore) draftPath(draftID string) (string, error) {
	if _, err := uuid.Parse(draftID); err != nil {
		return "", fmt.Errorf("%w: %s", model.ErrDraftNotFound, draftID)
	}
	return filepath.Join(s.root, "drafts", draftID+".yaml"), nil
}

// nextSeq returns the next available sequence number after the highest in rows.
func nextSeq(rows []Row) int {
	maxSeq := 0
	for _, row := range rows {
		_, _, seq, err := id.ParseEntryID(row.LineID)
		if err != nil {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq + 1
}

/*
Package sqlite provides a SQLite-backed ledger entry store and account table.

TABLES:

	accounts: chart of accounts, one row per code
	entries:  drafts (id = draft UUID) and posted entries (id = YYYY-MM-NNN)
	lines:    journal lines, owned by their entry (ON DELETE CASCADE)

Posted entries are append-only: nothing updates or deletes a row whose state
is 'posted'. Posting a draft deletes the draft row and inserts the posted entry
in the same SQL transaction, so an entry and all of its lines commit together
or not at all.

Amounts are stored as decimal TEXT and dates as YYYY-MM-DD TEXT, which sorts
chronologically.

USAGE:

	store, err := sqlite.New("./ledger.db")
	if err != nil {
	    return err
	}
	defer store.Close()

Use ":memory:" for a throwaway database in tests.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/balancebook/internal/id"
	"github.com/cleared-dev/balancebook/internal/journal"
	"github.com/cleared-dev/balancebook/internal/model"
)

const (
	stateDraft  = "draft"
	statePosted = "posted"
)

// Store implements journal.Store and account persistence on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ journal.Store = (*Store)(nil)

// New opens (creating if needed) the database at dbPath and migrates it.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		account_type TEXT NOT NULL,
		opening_balance TEXT NOT NULL DEFAULT '0',
		opening_balance_date TEXT,
		parent_code TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		state TEXT NOT NULL CHECK (state IN ('draft', 'posted')),
		year INTEGER,
		month INTEGER,
		seq INTEGER,
		entry_date TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		reference TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- One sequence per month for posted entries
	CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_posted_seq
		ON entries(year, month, seq) WHERE state = 'posted';

	-- Range queries (hot path for balances)
	CREATE INDEX IF NOT EXISTS idx_entries_state_date
		ON entries(state, entry_date);

	CREATE TABLE IF NOT EXISTS lines (
		entry_id TEXT NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
		line_no INTEGER NOT NULL,
		side TEXT NOT NULL CHECK (side IN ('debit', 'credit')),
		account_code TEXT NOT NULL,
		amount TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (entry_id, line_no)
	);

	CREATE INDEX IF NOT EXISTS idx_lines_account
		ON lines(account_code);
	`
	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ACCOUNTS
// =============================================================================

// LoadAccounts returns the chart of accounts ordered by code.
func (s *Store) LoadAccounts(ctx context.Context) ([]model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT code, name, description, account_type, opening_balance,
		       opening_balance_date, parent_code, active
		FROM accounts
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		var (
			acct        model.Account
			accountType string
			opening     string
			openingDate sql.NullString
		)
		if err := rows.Scan(&acct.Code, &acct.Name, &acct.Description, &accountType,
			&opening, &openingDate, &acct.ParentCode, &acct.Active); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		if acct.Type, err = model.ParseAccountType(accountType); err != nil {
			return nil, fmt.Errorf("account %s: %w", acct.Code, err)
		}
		if acct.OpeningBalance, err = decimal.NewFromString(opening); err != nil {
			return nil, fmt.Errorf("account %s: parsing opening_balance %q: %w", acct.Code, opening, err)
		}
		if openingDate.Valid && openingDate.String != "" {
			d, err := model.ParseDay(openingDate.String)
			if err != nil {
				return nil, fmt.Errorf("account %s: parsing opening_balance_date: %w", acct.Code, err)
			}
			acct.OpeningBalanceDate = &d
		}
		accounts = append(accounts, acct)
	}
	return accounts, rows.Err()
}

// SaveAccounts replaces the stored chart of accounts.
func (s *Store) SaveAccounts(ctx context.Context, accounts []model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		return fmt.Errorf("failed to clear accounts: %w", err)
	}
	for _, acct := range accounts {
		var openingDate any
		if acct.OpeningBalanceDate != nil {
			openingDate = acct.OpeningBalanceDate.Format(model.DateFormat)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO accounts
			(code, name, description, account_type, opening_balance, opening_balance_date, parent_code, active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, acct.Code, acct.Name, acct.Description, string(acct.Type),
			acct.OpeningBalance.String(), openingDate, acct.ParentCode, acct.Active)
		if err != nil {
			return fmt.Errorf("failed to insert account %s: %w", acct.Code, err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// DRAFTS
// =============================================================================

// SaveDraft implements journal.Store.
func (s *Store) SaveDraft(ctx context.Context, e *model.JournalEntry) error {
	if e.IsPosted() {
		return fmt.Errorf("saving draft %s: %w", e.ID, model.ErrEntryPosted)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e.DraftID == "" {
		e.DraftID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Replace any earlier version; ON DELETE CASCADE drops its lines.
	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE id = ? AND state = ?`, e.DraftID, stateDraft); err != nil {
		return fmt.Errorf("failed to replace draft: %w", err)
	}
	if err := insertEntry(ctx, tx, e.DraftID, stateDraft, 0, e); err != nil {
		return err
	}
	return tx.Commit()
}

// Draft implements journal.Store.
func (s *Store) Draft(ctx context.Context, draftID string) (*model.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := loadEntries(ctx, s.db, `e.state = ? AND e.id = ?`, stateDraft, draftID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrDraftNotFound, draftID)
	}
	return entries[0], nil
}

// Drafts implements journal.Store.
func (s *Store) Drafts(ctx context.Context) ([]*model.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return loadEntries(ctx, s.db, `e.state = ?`, stateDraft)
}

// DeleteDraft implements journal.Store.
func (s *Store) DeleteDraft(ctx context.Context, draftID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ? AND state = ?`, draftID, stateDraft)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", model.ErrDraftNotFound, draftID)
	}
	return nil
}

// =============================================================================
// POSTED ENTRIES
// =============================================================================

// Commit implements journal.Store. Sequence assignment, the draft delete, and
// the entry insert share one SQL transaction.
func (s *Store) Commit(ctx context.Context, e *model.JournalEntry) (string, error) {
	if e.IsPosted() {
		return "", fmt.Errorf("committing %s: %w", e.ID, model.ErrEntryPosted)
	}
	if !e.HasBothSides() {
		return "", model.ErrEmptyEntry
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if e.DraftID != "" {
		res, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE id = ? AND state = ?`, e.DraftID, stateDraft)
		if err != nil {
			return "", fmt.Errorf("failed to remove draft: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return "", fmt.Errorf("%w: %s", model.ErrDraftNotFound, e.DraftID)
		}
	}

	year, month := e.Date.Year(), int(e.Date.Month())
	var seq int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) + 1 FROM entries
		WHERE state = ? AND year = ? AND month = ?
	`, statePosted, year, month).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("failed to allocate sequence: %w", err)
	}

	entryID := id.FormatEntryID(year, month, seq)
	if err := insertEntry(ctx, tx, entryID, statePosted, seq, e); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit entry: %w", err)
	}
	return entryID, nil
}

// Entries implements journal.Store.
func (s *Store) Entries(ctx context.Context, r model.DateRange) ([]*model.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := rangeClause(`e.state = ?`, []any{statePosted}, r)
	return loadEntries(ctx, s.db, where, args...)
}

// PostedLines implements journal.Store.
func (s *Store) PostedLines(ctx context.Context, accountCode string, r model.DateRange) ([]model.PostedLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := rangeClause(`e.state = ? AND l.account_code = ?`, []any{statePosted, accountCode}, r)
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, l.line_no, e.entry_date, l.account_code, l.side, l.amount,
		       e.description, l.description, e.reference
		FROM lines l
		JOIN entries e ON e.id = l.entry_id
		WHERE `+where+`
		ORDER BY e.entry_date, e.year, e.month, e.seq, l.line_no
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}
	defer rows.Close()

	var lines []model.PostedLine
	for rows.Next() {
		var (
			l      model.PostedLine
			date   string
			side   string
			amount string
		)
		if err := rows.Scan(&l.EntryID, &l.LineNo, &date, &l.AccountCode, &side, &amount,
			&l.Description, &l.LineDescription, &l.Reference); err != nil {
			return nil, fmt.Errorf("failed to scan line: %w", err)
		}
		if l.Date, err = model.ParseDay(date); err != nil {
			return nil, fmt.Errorf("entry %s: parsing date: %w", l.EntryID, err)
		}
		l.Side = model.Side(side)
		if l.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("entry %s: parsing amount: %w", l.EntryID, err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func insertEntry(ctx context.Context, db execer, entryID, state string, seq int, e *model.JournalEntry) error {
	var year, month, seqArg any
	if state == statePosted {
		year, month, seqArg = e.Date.Year(), int(e.Date.Month()), seq
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO entries
		(id, state, year, month, seq, entry_date, description, reference, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entryID, state, year, month, seqArg, e.Date.Format(model.DateFormat),
		e.Description, e.Reference, e.Notes, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}

	for i, l := range e.Lines {
		_, err := db.ExecContext(ctx, `
			INSERT INTO lines (entry_id, line_no, side, account_code, amount, description)
			VALUES (?, ?, ?, ?, ?, ?)
		`, entryID, i, string(l.Side), l.AccountCode, l.Amount.String(), l.Description)
		if err != nil {
			return fmt.Errorf("failed to insert line %d: %w", i, err)
		}
	}
	return nil
}

// rangeClause appends inclusive date bounds to a WHERE clause.
func rangeClause(where string, args []any, r model.DateRange) (string, []any) {
	if r.From != nil {
		where += ` AND e.entry_date >= ?`
		args = append(args, r.From.Format(model.DateFormat))
	}
	if r.To != nil {
		where += ` AND e.entry_date <= ?`
		args = append(args, r.To.Format(model.DateFormat))
	}
	return where, args
}

// loadEntries reads entries and their lines in one pass, ordered by date then
// posted sequence (drafts by date then id).
func loadEntries(ctx context.Context, db querier, where string, args ...any) ([]*model.JournalEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT e.id, e.state, e.entry_date, e.description, e.reference, e.notes,
		       l.line_no, l.side, l.account_code, l.amount, l.description
		FROM entries e
		LEFT JOIN lines l ON l.entry_id = e.id
		WHERE `+where+`
		ORDER BY e.entry_date, e.year, e.month, e.seq, e.id, l.line_no
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.JournalEntry
	var cur *model.JournalEntry
	for rows.Next() {
		var (
			entryID, state, date, desc, ref, notes string
			lineNo                                 sql.NullInt64
			side, account, amount, lineDesc        sql.NullString
		)
		if err := rows.Scan(&entryID, &state, &date, &desc, &ref, &notes,
			&lineNo, &side, &account, &amount, &lineDesc); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}

		if cur == nil || entryIDOf(cur) != entryID {
			d, err := model.ParseDay(date)
			if err != nil {
				return nil, fmt.Errorf("entry %s: parsing date: %w", entryID, err)
			}
			cur = &model.JournalEntry{
				Date:        d,
				Description: desc,
				Reference:   ref,
				Notes:       notes,
				State:       model.EntryState(state),
			}
			if state == statePosted {
				cur.ID = entryID
			} else {
				cur.DraftID = entryID
			}
			entries = append(entries, cur)
		}

		if !lineNo.Valid {
			continue
		}
		amt, err := decimal.NewFromString(amount.String)
		if err != nil {
			return nil, fmt.Errorf("entry %s: parsing amount: %w", entryID, err)
		}
		cur.Lines = append(cur.Lines, model.Line{
			Side:        model.Side(side.String),
			AccountCode: account.String,
			Amount:      amt,
			Description: lineDesc.String,
		})
	}
	return entries, rows.Err()
}

func entryIDOf(e *model.JournalEntry) string {
	if e.IsPosted() {
		return e.ID
	}
	return e.DraftID
}

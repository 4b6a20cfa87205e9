// Package importer turns bank statement exports into draft journal entries.
// Imported entries are always drafts; a person reviews and posts them.
package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/balancebook/internal/model"
)

// Transaction is one row of a bank export. Amount is signed from the bank
// account's point of view: positive is money in.
type Transaction struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Reference   string
	Type        string
}

// Parser converts a bank CSV file into Transactions.
type Parser interface {
	Parse(r io.Reader) ([]Transaction, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a CSV file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&ChaseParser{})
	return r
}

// Result is the outcome of converting one batch of transactions.
type Result struct {
	Drafts     []*model.JournalEntry
	Duplicates int // reference already seen
	Zero       int // zero-amount rows, which cannot post
}

// ToDrafts builds one two-line draft per transaction: money in debits the
// bank account and credits offset, money out does the reverse. Transactions
// whose Reference is in seen are skipped; seen is updated as drafts are built.
func ToDrafts(txns []Transaction, bankAccount, offsetAccount string, seen map[string]bool) (Result, error) {
	if bankAccount == "" || offsetAccount == "" {
		return Result{}, fmt.Errorf("bank and offset accounts are required")
	}
	if bankAccount == offsetAccount {
		return Result{}, fmt.Errorf("bank and offset account are both %s", bankAccount)
	}

	var res Result
	for _, txn := range txns {
		if txn.Reference != "" && seen[txn.Reference] {
			res.Duplicates++
			continue
		}
		if txn.Amount.IsZero() {
			res.Zero++
			continue
		}

		debit, credit := bankAccount, offsetAccount
		if txn.Amount.IsNegative() {
			debit, credit = offsetAccount, bankAccount
		}
		amount := txn.Amount.Abs()

		e := model.NewDraft(txn.Date, txn.Description)
		e.Reference = txn.Reference
		if txn.Type != "" {
			e.Notes = "imported " + txn.Type
		}
		if err := e.AddLine(model.Debit, debit, amount, ""); err != nil {
			return Result{}, fmt.Errorf("building draft for %s: %w", txn.Reference, err)
		}
		if err := e.AddLine(model.Credit, credit, amount, ""); err != nil {
			return Result{}, fmt.Errorf("building draft for %s: %w", txn.Reference, err)
		}

		if txn.Reference != "" && seen != nil {
			seen[txn.Reference] = true
		}
		res.Drafts = append(res.Drafts, e)
	}
	return res, nil
}

// ImportDir is the subdirectory scanned for bank exports.
const ImportDir = "import"

// ProcessedDir is where imported files are moved.
var ProcessedDir = filepath.Join(ImportDir, "processed")

// Scan returns CSV files in <repoRoot>/import/.
func Scan(repoRoot string) ([]FileInfo, error) {
	dir := filepath.Join(repoRoot, ImportDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(repoRoot, fileName string) error {
	src := filepath.Join(repoRoot, ImportDir, fileName)
	dstDir := filepath.Join(repoRoot, ProcessedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

package accounts

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/cleared-dev/balancebook/internal/model"
)

// Service is the account registry: an in-memory snapshot of the chart of
// accounts, kept sorted by code. Safe for concurrent use.
type Service struct {
	mu       sync.RWMutex
	accounts []model.Account
	byCode   map[string]int
}

// NewService creates a Service from a slice of accounts. Later duplicates of
// a code replace earlier ones.
func NewService(accounts []model.Account) *Service {
	s := &Service{}
	s.reset(accounts)
	return s
}

func (s *Service) reset(accounts []model.Account) {
	uniq := make(map[string]model.Account, len(accounts))
	for _, a := range accounts {
		uniq[a.Code] = a
	}
	sorted := make([]model.Account, 0, len(uniq))
	for _, a := range uniq {
		sorted = append(sorted, a)
	}
	slices.SortFunc(sorted, func(a, b model.Account) int { return strings.Compare(a.Code, b.Code) })

	s.accounts = sorted
	s.byCode = make(map[string]int, len(sorted))
	for i, a := range sorted {
		s.byCode[a.Code] = i
	}
}

// Path returns the chart-of-accounts.csv location under a repo root.
func Path(repoRoot string) string {
	return filepath.Join(repoRoot, "accounts", "chart-of-accounts.csv")
}

// Load reads chart-of-accounts.csv from a repo root and returns a Service.
func Load(repoRoot string) (*Service, error) {
	f, err := os.Open(Path(repoRoot))
	if err != nil {
		return nil, fmt.Errorf("opening chart of accounts: %w", err)
	}
	defer f.Close()

	accts, err := ReadAccounts(f)
	if err != nil {
		return nil, fmt.Errorf("reading chart of accounts: %w", err)
	}
	return NewService(accts), nil
}

// Save writes the chart of accounts to accounts/chart-of-accounts.csv.
func (s *Service) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, "accounts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating accounts dir: %w", err)
	}

	f, err := os.Create(Path(repoRoot))
	if err != nil {
		return fmt.Errorf("creating chart of accounts file: %w", err)
	}
	defer f.Close()

	if err := WriteAccounts(f, s.All()); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}
	return nil
}

// All returns a copy of all accounts, sorted by code.
func (s *Service) All() []model.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.accounts)
}

// ListActive returns active accounts, sorted by code.
func (s *Service) ListActive() []model.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Account
	for _, a := range s.accounts {
		if a.Active {
			result = append(result, a)
		}
	}
	return result
}

// Get returns an account by code.
func (s *Service) Get(code string) (model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byCode[code]
	if !ok {
		return model.Account{}, &model.AccountNotFoundError{Code: code}
	}
	return s.accounts[i], nil
}

// Exists reports whether an account code exists.
func (s *Service) Exists(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byCode[code]
	return ok
}

// ByType returns all accounts of the given type.
func (s *Service) ByType(accountType model.AccountType) []model.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Account
	for _, a := range s.accounts {
		if a.Type == accountType {
			result = append(result, a)
		}
	}
	return result
}

// Create adds a new account.
func (s *Service) Create(acct model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(acct.Code) == "" {
		return fmt.Errorf("creating account: code is required")
	}
	if _, ok := s.byCode[acct.Code]; ok {
		return fmt.Errorf("creating account %s: %w", acct.Code, model.ErrDuplicateAccount)
	}
	if err := s.checkLocked(acct); err != nil {
		return fmt.Errorf("creating account %s: %w", acct.Code, err)
	}

	s.reset(append(slices.Clone(s.accounts), acct))
	return nil
}

// Update replaces an existing account's metadata. The code is the key and
// cannot change.
func (s *Service) Update(acct model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byCode[acct.Code]
	if !ok {
		return fmt.Errorf("updating account: %w", &model.AccountNotFoundError{Code: acct.Code})
	}
	if err := s.checkLocked(acct); err != nil {
		return fmt.Errorf("updating account %s: %w", acct.Code, err)
	}

	s.accounts[i] = acct
	return nil
}

// Deactivate soft-deletes an account. Historical balances are unaffected.
func (s *Service) Deactivate(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byCode[code]
	if !ok {
		return fmt.Errorf("deactivating account: %w", &model.AccountNotFoundError{Code: code})
	}
	s.accounts[i].Active = false
	return nil
}

func (s *Service) checkLocked(acct model.Account) error {
	if !acct.Type.Valid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidAccountType, acct.Type)
	}
	if acct.ParentCode == "" {
		return nil
	}
	if _, ok := s.byCode[acct.ParentCode]; !ok {
		return fmt.Errorf("parent: %w", &model.AccountNotFoundError{Code: acct.ParentCode})
	}
	return s.checkAncestryLocked(acct.Code, acct.ParentCode)
}

// checkAncestryLocked walks up from parent and fails if it reaches code.
func (s *Service) checkAncestryLocked(code, parent string) error {
	visited := map[string]bool{}
	for cur := parent; cur != ""; {
		if cur == code {
			return fmt.Errorf("%w: %s would be its own ancestor", model.ErrAccountCycle, code)
		}
		if visited[cur] {
			return fmt.Errorf("%w: existing loop at %s", model.ErrAccountCycle, cur)
		}
		visited[cur] = true

		i, ok := s.byCode[cur]
		if !ok {
			return nil
		}
		cur = s.accounts[i].ParentCode
	}
	return nil
}

// Ancestors returns the parent chain of code, nearest first.
func (s *Service) Ancestors(code string) ([]model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byCode[code]
	if !ok {
		return nil, &model.AccountNotFoundError{Code: code}
	}

	var chain []model.Account
	visited := map[string]bool{code: true}
	for cur := s.accounts[i].ParentCode; cur != ""; {
		if visited[cur] {
			return chain, fmt.Errorf("%w at %s", model.ErrAccountCycle, cur)
		}
		visited[cur] = true
		j, ok := s.byCode[cur]
		if !ok {
			break
		}
		chain = append(chain, s.accounts[j])
		cur = s.accounts[j].ParentCode
	}
	return chain, nil
}

package journal

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cleared-dev/balancebook/internal/model"
	"github.com/cleared-dev/balancebook/internal/observability"
)

// AccountLookup resolves account codes. accounts.Service satisfies it.
type AccountLookup interface {
	Get(code string) (model.Account, error)
}

// Service provides business logic for journal entries: the draft lifecycle
// and posting.
type Service struct {
	store    Store
	accounts AccountLookup
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewService creates a journal Service. metrics and logger may be nil.
func NewService(store Store, accounts AccountLookup, metrics *observability.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, accounts: accounts, metrics: metrics, logger: logger}
}

// Check runs the posting rules against e without writing anything. Rules are
// checked in order: the entry is a draft, amounts are positive, both sides are
// present, every account exists and is active, debits equal credits.
func (s *Service) Check(e *model.JournalEntry) error {
	if e.IsPosted() {
		return fmt.Errorf("posting %s: %w", e.ID, model.ErrEntryPosted)
	}
	for i, l := range e.Lines {
		if !l.Amount.IsPositive() {
			return fmt.Errorf("line %d: %w: %s", i+1, model.ErrInvalidAmount, l.Amount.String())
		}
	}
	if !e.HasBothSides() {
		return model.ErrEmptyEntry
	}
	if err := s.checkAccounts(e); err != nil {
		return err
	}
	if !e.IsBalanced() {
		return &model.UnbalancedEntryError{Debits: e.TotalDebits(), Credits: e.TotalCredits()}
	}
	return nil
}

func (s *Service) checkAccounts(e *model.JournalEntry) error {
	for _, l := range e.Lines {
		acct, err := s.accounts.Get(l.AccountCode)
		if err != nil {
			return err
		}
		if !acct.Active {
			return &model.AccountNotFoundError{Code: l.AccountCode, Inactive: true}
		}
	}
	return nil
}

// Post validates e and commits it. On success e is marked Posted under its new
// ID and the ID is returned. On failure nothing is written and e is unchanged.
func (s *Service) Post(ctx context.Context, e *model.JournalEntry) (string, error) {
	if err := s.Check(e); err != nil {
		result := observability.PostResultInvalid
		if errors.Is(err, model.ErrUnbalancedEntry) {
			result = observability.PostResultUnbalanced
		}
		s.metrics.IncrPost(result)
		s.logger.Debug("entry rejected", zap.String("draft_id", e.DraftID), zap.Error(err))
		return "", err
	}

	entryID, err := s.store.Commit(ctx, e)
	if entryID != "" {
		// The rows are durable even if draft cleanup failed.
		if markErr := e.MarkPosted(entryID); markErr != nil {
			return entryID, markErr
		}
		e.DraftID = ""
		s.metrics.IncrPost(observability.PostResultPosted)
		s.logger.Info("entry posted",
			zap.String("entry_id", entryID),
			zap.String("date", e.Date.Format(model.DateFormat)),
			zap.String("amount", e.TotalDebits().String()),
			zap.Int("lines", len(e.Lines)),
		)
	}
	if err != nil {
		if entryID == "" {
			s.metrics.IncrPost(observability.PostResultError)
		}
		return entryID, fmt.Errorf("posting entry: %w", err)
	}
	return entryID, nil
}

// Record posts an entry that was never saved as a draft.
func (s *Service) Record(ctx context.Context, e *model.JournalEntry) (string, error) {
	if e.DraftID != "" {
		return "", fmt.Errorf("entry has saved draft %s; post it with PostDraft", e.DraftID)
	}
	return s.Post(ctx, e)
}

// PostDraft loads a saved draft and posts it.
func (s *Service) PostDraft(ctx context.Context, draftID string) (*model.JournalEntry, error) {
	e, err := s.store.Draft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Post(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// SaveDraft persists a draft. Drafts may be incomplete or unbalanced, but the
// accounts they reference must be usable.
func (s *Service) SaveDraft(ctx context.Context, e *model.JournalEntry) error {
	if e.IsPosted() {
		return fmt.Errorf("saving %s as draft: %w", e.ID, model.ErrEntryPosted)
	}
	if err := s.checkAccounts(e); err != nil {
		return err
	}
	if err := s.store.SaveDraft(ctx, e); err != nil {
		return err
	}
	s.logger.Debug("draft saved", zap.String("draft_id", e.DraftID), zap.Int("lines", len(e.Lines)))
	return nil
}

// Draft loads a saved draft.
func (s *Service) Draft(ctx context.Context, draftID string) (*model.JournalEntry, error) {
	return s.store.Draft(ctx, draftID)
}

// Drafts lists saved drafts.
func (s *Service) Drafts(ctx context.Context) ([]*model.JournalEntry, error) {
	return s.store.Drafts(ctx)
}

// DeleteDraft discards a saved draft.
func (s *Service) DeleteDraft(ctx context.Context, draftID string) error {
	if err := s.store.DeleteDraft(ctx, draftID); err != nil {
		return err
	}
	s.logger.Debug("draft deleted", zap.String("draft_id", draftID))
	return nil
}

// Entries returns posted entries dated inside r.
func (s *Service) Entries(ctx context.Context, r model.DateRange) ([]*model.JournalEntry, error) {
	return s.store.Entries(ctx, r)
}

// PostedLines returns an account's posted lines dated inside r.
func (s *Service) PostedLines(ctx context.Context, accountCode string, r model.DateRange) ([]model.PostedLine, error) {
	return s.store.PostedLines(ctx, accountCode, r)
}

package journal

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/balancebook/internal/model"
)

// draftFile is the YAML layout of drafts/<id>.yaml. Amounts are strings so no
// precision is lost on the way through YAML floats.
type draftFile struct {
	ID          string      `yaml:"id"`
	Date        string      `yaml:"date"`
	Description string      `yaml:"description"`
	Reference   string      `yaml:"reference,omitempty"`
	Notes       string      `yaml:"notes,omitempty"`
	Lines       []draftLine `yaml:"lines"`
}

type draftLine struct {
	Side        string `yaml:"side"`
	Account     string `yaml:"account"`
	Amount      string `yaml:"amount"`
	Description string `yaml:"description,omitempty"`
}

// MarshalDraft encodes a draft entry as YAML.
func MarshalDraft(e *model.JournalEntry) ([]byte, error) {
	f := draftFile{
		ID:          e.DraftID,
		Date:        e.Date.Format(model.DateFormat),
		Description: e.Description,
		Reference:   e.Reference,
		Notes:       e.Notes,
		Lines:       make([]draftLine, len(e.Lines)),
	}
	for i, l := range e.Lines {
		f.Lines[i] = draftLine{
			Side:        string(l.Side),
			Account:     l.AccountCode,
			Amount:      l.Amount.String(),
			Description: l.Description,
		}
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return nil, fmt.Errorf("marshaling draft: %w", err)
	}
	return data, nil
}

// UnmarshalDraft decodes a YAML draft. Lines go through AddLine so a hand-edited
// file cannot smuggle in a zero or negative amount.
func UnmarshalDraft(data []byte) (*model.JournalEntry, error) {
	var f draftFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing draft: %w", err)
	}

	date, err := model.ParseDay(f.Date)
	if err != nil {
		return nil, fmt.Errorf("parsing draft date %q: %w", f.Date, err)
	}

	e := model.NewDraft(date, f.Description)
	e.DraftID = f.ID
	e.Reference = f.Reference
	e.Notes = f.Notes

	for i, l := range f.Lines {
		side, err := model.ParseSide(l.Side)
		if err != nil {
			return nil, fmt.Errorf("draft line %d: %w", i+1, err)
		}
		amount, err := decimal.NewFromString(l.Amount)
		if err != nil {
			return nil, fmt.Errorf("draft line %d: parsing amount %q: %w", i+1, l.Amount, err)
		}
		if err := e.AddLine(side, l.Account, amount, l.Description); err != nil {
			return nil, fmt.Errorf("draft line %d: %w", i+1, err)
		}
	}
	return e, nil
}

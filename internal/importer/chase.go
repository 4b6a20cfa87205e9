package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/balancebook/internal/model"
)

// ChaseParser parses Chase checking CSV exports. Columns are located by their
// header names, so exports with reordered or extra columns still parse.
type ChaseParser struct{}

const chaseDateFormat = "01/02/2006"

// Header names in a Chase checking export.
const (
	chaseHeaderDate   = "posting date"
	chaseHeaderDesc   = "description"
	chaseHeaderAmount = "amount"
	chaseHeaderType   = "type"
	chaseHeaderCheck  = "check or slip #"
)

// chaseColumns maps the columns a transaction needs to their index. check is
// -1 when the export has no check number column.
type chaseColumns struct {
	date, desc, amount, kind, check int
}

func chaseColumnsFrom(header []string) (chaseColumns, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	need := func(name string) int {
		i, ok := idx[name]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}
	cols := chaseColumns{
		date:   need(chaseHeaderDate),
		desc:   need(chaseHeaderDesc),
		amount: need(chaseHeaderAmount),
		kind:   need(chaseHeaderType),
		check:  -1,
	}
	if len(missing) > 0 {
		return chaseColumns{}, fmt.Errorf("chase CSV header is missing %s", strings.Join(missing, ", "))
	}
	if i, ok := idx[chaseHeaderCheck]; ok {
		cols.check = i
	}
	return cols, nil
}

// Format returns the parser name.
func (p *ChaseParser) Format() string { return "chase" }

// Parse reads a Chase CSV and returns Transactions in file order.
func (p *ChaseParser) Parse(r io.Reader) ([]Transaction, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading chase CSV: %w", err)
	}
	cols, err := chaseColumnsFrom(header)
	if err != nil {
		return nil, err
	}

	var txns []Transaction
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading chase CSV: %w", err)
		}
		txn, err := cols.transaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

func (c chaseColumns) transaction(rec []string) (Transaction, error) {
	date, err := time.Parse(chaseDateFormat, strings.TrimSpace(rec[c.date]))
	if err != nil {
		return Transaction{}, fmt.Errorf("parsing date %q: %w", rec[c.date], err)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(rec[c.amount]))
	if err != nil {
		return Transaction{}, fmt.Errorf("parsing amount %q: %w", rec[c.amount], err)
	}

	var check string
	if c.check >= 0 {
		check = strings.TrimSpace(rec[c.check])
	}
	desc := strings.TrimSpace(rec[c.desc])
	return Transaction{
		Date:        model.Day(date),
		Description: desc,
		Amount:      amount,
		Reference:   chaseRef(date, desc, amount, check),
		Type:        strings.TrimSpace(rec[c.kind]),
	}, nil
}

// chaseRef derives a stable reference such as chase_20250103_GITHUBPROS_-4.00,
// with the check number appended when there is one. Re-importing an export
// yields the same references, which is how duplicates are detected.
func chaseRef(date time.Time, desc string, amount decimal.Decimal, check string) string {
	var b strings.Builder
	for _, r := range desc {
		if b.Len() == 10 {
			break
		}
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	ref := fmt.Sprintf("chase_%s_%s_%s", date.Format("20060102"), b.String(), amount.StringFixed(2))
	if check != "" {
		ref += "_" + check
	}
	return ref
}

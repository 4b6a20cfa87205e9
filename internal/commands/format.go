package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/balancebook/internal/model"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func row(w io.Writer, cells ...string) {
	fmt.Fprintln(w, strings.Join(cells, "\t"))
}

// money prints at least two decimal places without hiding extra precision.
func money(d decimal.Decimal) string {
	if !d.Equal(d.Round(2)) {
		return d.String()
	}
	return d.StringFixed(2)
}

// moneyOrBlank leaves zero cells empty in debit/credit columns.
func moneyOrBlank(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return money(d)
}

func day(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateFormat)
}

// parseDate parses an optional YYYY-MM-DD flag; "" means unbounded.
func parseDate(name, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := model.ParseDay(s)
	if err != nil {
		return nil, fmt.Errorf("--%s: expected YYYY-MM-DD, got %q", name, s)
	}
	return &d, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d, nil
}

// parseLineSpec reads "side:account:amount[:description]", e.g.
// "debit:1000:500.00:deposit" or "c:4010:500".
func parseLineSpec(spec string) (model.Side, string, decimal.Decimal, string, error) {
	parts := strings.SplitN(spec, ":", 4)
	if len(parts) < 3 {
		return "", "", decimal.Zero, "", fmt.Errorf("line %q: expected side:account:amount[:description]", spec)
	}
	side, err := model.ParseSide(parts[0])
	if err != nil {
		return "", "", decimal.Zero, "", fmt.Errorf("line %q: %w", spec, err)
	}
	amount, err := parseAmount(parts[2])
	if err != nil {
		return "", "", decimal.Zero, "", fmt.Errorf("line %q: %w", spec, err)
	}
	var desc string
	if len(parts) == 4 {
		desc = parts[3]
	}
	return side, strings.TrimSpace(parts[1]), amount, desc, nil
}

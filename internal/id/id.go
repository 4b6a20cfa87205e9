package id

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// FormatEntryID returns a posted entry ID like "2025-01-001".
func FormatEntryID(year, month, seq int) string {
	return fmt.Sprintf("%04d-%02d-%03d", year, month, seq)
}

// FormatLineID returns a line ID: 0='a' ... 25='z', 26='aa', 27='ab', ...
func FormatLineID(entryID string, line int) string {
	var suffix []byte
	for n := line + 1; n > 0; n = (n - 1) / 26 {
		suffix = append([]byte{byte('a' + (n-1)%26)}, suffix...)
	}
	return entryID + string(suffix)
}

// ParseLineID splits "2025-01-001ab" into the entry ID and the zero-based line number.
func ParseLineID(lineID string) (entryID string, line int, err error) {
	entryID = EntryGroup(lineID)
	suffix := lineID[len(entryID):]
	if suffix == "" {
		return "", 0, fmt.Errorf("line ID %q has no line suffix", lineID)
	}
	n := 0
	for _, c := range suffix {
		n = n*26 + int(c-'a') + 1
	}
	return entryID, n - 1, nil
}

// ParseEntryID parses "2025-01-001" into year, month, seq.
func ParseEntryID(id string) (year, month, seq int, err error) {
	base := EntryGroup(id)

	parts := strings.SplitN(base, "-", 3)
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid entry ID format: %q", id)
	}

	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid year in entry ID %q: %w", id, err)
	}

	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid month in entry ID %q: %w", id, err)
	}
	if month < 1 || month > 12 {
		return 0, 0, 0, fmt.Errorf("invalid month in entry ID %q", id)
	}

	seq, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid sequence in entry ID %q: %w", id, err)
	}

	return year, month, seq, nil
}

// EntryGroup strips the line suffix from a line ID.
// "2025-01-001a" -> "2025-01-001"
func EntryGroup(lineID string) string {
	i := len(lineID)
	for i > 0 && lineID[i-1] >= 'a' && lineID[i-1] <= 'z' {
		i--
	}
	return lineID[:i]
}

// Compare orders entry IDs by year, month, then numeric sequence, so
// "2025-01-1000" sorts after "2025-01-999". Unparseable IDs fall back to
// string order after all valid ones.
func Compare(a, b string) int {
	ya, ma, sa, errA := ParseEntryID(a)
	yb, mb, sb, errB := ParseEntryID(b)
	switch {
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA != nil:
		return 1
	case errB != nil:
		return -1
	}
	if c := cmp.Compare(ya, yb); c != 0 {
		return c
	}
	if c := cmp.Compare(ma, mb); c != 0 {
		return c
	}
	return cmp.Compare(sa, sb)
}

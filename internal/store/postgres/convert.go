package postgres

// convert.go turns CSV cell values into column values.
//
// Text fields are stored as given. Numeric and date fields are cleaned of
// common spreadsheet artifacts (="value" prefixes, stray quotes) first.
// Empty cells are left out of the statement so column defaults apply.

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/ResourceImporter/internal/schema"
)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

var integerRegex = regexp.MustCompile(`^[+-]?\d+$`)

// Timestamp layouts, most specific first.
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02 15:04:05", "2006-01-02T15:04:05", time.RFC3339,
		"2006-01-02 15:04", "1/2/2006 15:04", "1/2/2006 3:04 PM",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace. The value
// itself is not trimmed.
func ToPgText(s string) pgtype.Text {
	if strings.TrimSpace(s) == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgInt8 converts a string to pgtype.Int8.
// Returns invalid for empty input and an error for non-integers.
func ToPgInt8(s string) (pgtype.Int8, error) {
	s = CleanCell(s)
	if s == "" {
		return pgtype.Int8{Valid: false}, nil
	}
	s = strings.ReplaceAll(s, ",", "")
	if !integerRegex.MatchString(s) {
		return pgtype.Int8{}, fmt.Errorf("%q is not an integer", s)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return pgtype.Int8{}, fmt.Errorf("%q is not an integer: %w", s, err)
	}
	return pgtype.Int8{Int64: n, Valid: true}, nil
}

// ToPgTimestamp converts a string to pgtype.Timestamp.
// Supports multiple date formats and handles 2-digit years with pivot.
func ToPgTimestamp(s string) (pgtype.Timestamp, error) {
	s = CleanCell(s)
	if s == "" {
		return pgtype.Timestamp{Valid: false}, nil
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return pgtype.Timestamp{Time: t, Valid: true}, nil
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return pgtype.Timestamp{Time: t, Valid: true}, nil
		}
	}

	return pgtype.Timestamp{}, fmt.Errorf("%q is not a recognised date", s)
}

// ToPgUUID converts a string to pgtype.UUID.
// Returns invalid if the string is empty or not a valid UUID.
func ToPgUUID(s string) pgtype.UUID {
	if s == "" {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

// PgUUIDToString converts a pgtype.UUID to its string representation.
// Returns empty string if the UUID is invalid.
func PgUUIDToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// SplitList splits a comma-separated cell into trimmed, non-empty names.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// column is one posts column and its converted value.
type column struct {
	name  string
	value any
}

// recordColumns converts the scalar core fields of a record to posts
// columns, in schema order. List and map fields are handled as terms and
// are not returned. ID is never a column.
func recordColumns(fields map[string]string) ([]column, error) {
	var cols []column
	for _, spec := range schema.CoreFieldSpecs {
		raw, ok := fields[spec.Name]
		if !ok || spec.Name == schema.ColumnID {
			continue
		}

		var value any
		switch spec.Type {
		case schema.FieldText:
			v := ToPgText(raw)
			if !v.Valid {
				continue
			}
			value = v
		case schema.FieldInt:
			v, err := ToPgInt8(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", spec.Name, err)
			}
			if !v.Valid {
				continue
			}
			value = v
		case schema.FieldDate:
			v, err := ToPgTimestamp(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", spec.Name, err)
			}
			if !v.Valid {
				continue
			}
			value = v
		case schema.FieldEnum:
			v := strings.ToLower(CleanCell(raw))
			if v == "" {
				continue
			}
			if !slices.Contains(spec.EnumValues, v) {
				return nil, fmt.Errorf("%s: %q must be one of %s", spec.Name, raw, strings.Join(spec.EnumValues, ", "))
			}
			value = v
		default:
			continue
		}

		cols = append(cols, column{name: spec.Name, value: value})
	}
	return cols, nil
}

// Package ingest reads field names and rows out of uploaded spreadsheets and
// PDFs, and writes single records back out as spreadsheets.
package ingest

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"reportgen/internal/tables"
)

// fallbackFieldName replaces headers with no usable characters.
const fallbackFieldName = "field"

// NormalizeFieldName turns a header cell or text line into a valid field
// name. Characters other than letters, digits and underscores become "_".
func NormalizeFieldName(raw string) string {
	var sb strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(raw) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			sb.WriteRune(r)
			lastUnderscore = r == '_'
			continue
		}
		if !lastUnderscore {
			sb.WriteByte('_')
			lastUnderscore = true
		}
	}
	name := strings.Trim(sb.String(), "_")
	if name == "" {
		name = fallbackFieldName
	}
	if r, _ := utf8.DecodeRuneInString(name); unicode.IsDigit(r) {
		name = "_" + name
	}
	if strings.EqualFold(name, tables.PrimaryKey) {
		name += "_"
	}
	return truncateBytes(name, tables.MaxIdentifierBytes)
}

// NormalizeFieldNames normalizes every name and suffixes repeats with _2,
// _3 and so on so the result is a valid field list.
func NormalizeFieldNames(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		base := NormalizeFieldName(r)
		name := base
		for n := 2; ; n++ {
			if _, dup := seen[strings.ToLower(name)]; !dup {
				break
			}
			suffix := fmt.Sprintf("_%d", n)
			name = truncateBytes(base, tables.MaxIdentifierBytes-len(suffix)) + suffix
		}
		seen[strings.ToLower(name)] = struct{}{}
		out = append(out, name)
	}
	return out
}

// DefaultQuestion is the question stored for imported fields.
func DefaultQuestion(field string) string {
	return field + " を入力してください"
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

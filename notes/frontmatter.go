// Package notes handles the markdown notes kept next to each trade: the
// small "---" delimited header at the top of a note, note templates and
// where a note file lives.
package notes

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/tradebook/internal/apperrors"
	"github.com/rustyeddy/tradebook/pkg/date"
)

const delimiter = "---"

// Frontmatter maps header keys to string, float64 or []any values.
type Frontmatter map[string]any

// String returns the value of key as text, or "" when absent.
func (fm Frontmatter) String(key string) string {
	v, ok := fm[key]
	if !ok || v == nil {
		return ""
	}
	return formatScalar(v)
}

// Has reports whether key is set to a non-empty value.
func (fm Frontmatter) Has(key string) bool {
	switch v := fm[key].(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case []any:
		return len(v) > 0
	default:
		return true
	}
}

var quoteNormalizer = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")

// split returns the header lines and the body. ok is false when text has no
// header; closed is false when the opening delimiter is never matched.
func split(text string) (header []string, body string, ok, closed bool) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimPrefix(text, "\ufeff")
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != delimiter {
		return nil, text, false, false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == delimiter {
			return lines[1:i], strings.Join(lines[i+1:], "\n"), true, true
		}
	}
	return nil, text, true, false
}

// ParseFrontmatter splits text into its header and body. Text without a
// header yields an empty Frontmatter and the whole text as body. Malformed
// header lines are skipped and reported through the error, alongside
// whatever did parse.
func ParseFrontmatter(text string) (Frontmatter, string, error) {
	header, body, ok, closed := split(text)
	fm := Frontmatter{}
	if !ok {
		return fm, body, nil
	}
	if !closed {
		return fm, body, fmt.Errorf("%w: header is not closed", apperrors.ErrInvalidFrontmatter)
	}

	var bad []string
	for _, line := range header {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		key, value, found := strings.Cut(trimmed, ":")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			bad = append(bad, trimmed)
			continue
		}
		fm[key] = parseValue(value)
	}
	if len(bad) > 0 {
		return fm, body, fmt.Errorf("%w: unreadable lines %q", apperrors.ErrInvalidFrontmatter, bad)
	}
	return fm, body, nil
}

// RemoveFrontmatter returns text without its header.
func RemoveFrontmatter(text string) string {
	_, body, _, _ := split(text)
	return body
}

func parseValue(raw string) any {
	v := strings.TrimSpace(raw)
	if strings.HasPrefix(v, "[") && strings.HasSuffix(v, "]") {
		return parseList(v)
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return unquote(v)
}

// parseList reads a bracketed list as a YAML flow sequence, falling back to
// a plain comma split when that fails.
func parseList(v string) []any {
	var items []any
	if err := yaml.Unmarshal([]byte(quoteNormalizer.Replace(v)), &items); err == nil {
		out := make([]any, 0, len(items))
		for _, it := range items {
			out = append(out, normalizeItem(it))
		}
		return out
	}

	inner := strings.TrimSuffix(strings.TrimPrefix(v, "["), "]")
	out := []any{}
	for _, part := range strings.Split(inner, ",") {
		part = unquote(quoteNormalizer.Replace(strings.TrimSpace(part)))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func normalizeItem(it any) any {
	switch x := it.(type) {
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	case time.Time:
		return date.Format(x)
	case nil:
		return ""
	default:
		return x
	}
}

func unquote(v string) string {
	if len(v) >= 2 {
		first, last := v[0], v[len(v)-1]
		if (first == '"' || first == '\'') && first == last {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// keyOrder puts the identifying keys first; the rest follow alphabetically.
var keyOrder = []string{"trade_id", "ticker", "date", "status", "type", "title"}

// GenerateFrontmatter renders fm as a header block, including delimiters and
// a trailing newline.
func GenerateFrontmatter(fm Frontmatter) string {
	var keys []string
	for _, k := range keyOrder {
		if _, ok := fm[k]; ok {
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range fm {
		if !slices.Contains(keyOrder, k) {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	keys = append(keys, rest...)

	var b strings.Builder
	b.WriteString(delimiter + "\n")
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(formatValue(fm[k]))
		b.WriteString("\n")
	}
	b.WriteString(delimiter + "\n")
	return b.String()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case []any:
		parts := make([]string, 0, len(x))
		for _, it := range x {
			if s, ok := it.(string); ok {
				parts = append(parts, quoteIfNeeded(s, true))
				continue
			}
			parts = append(parts, formatScalar(it))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []string:
		parts := make([]string, 0, len(x))
		for _, it := range x {
			parts = append(parts, quoteIfNeeded(it, true))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return quoteIfNeeded(x, false)
	default:
		return formatScalar(v)
	}
}

func formatScalar(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case decimal.Decimal:
		return x.String()
	case time.Time:
		return date.Format(x)
	case []any, []string:
		return formatValue(x)
	default:
		return fmt.Sprint(x)
	}
}

// quoteIfNeeded quotes strings that would otherwise read back as something
// else: numbers, lists, padded text, or list items holding separators.
func quoteIfNeeded(s string, inList bool) string {
	_, numErr := strconv.ParseFloat(s, 64)
	needs := s != strings.TrimSpace(s) ||
		strings.HasPrefix(s, "[") ||
		numErr == nil ||
		(inList && (s == "" || strings.ContainsAny(s, ",[]{}:#\"'")))
	if !needs {
		return s
	}
	if inList {
		return strconv.Quote(s)
	}
	return `"` + s + `"`
}

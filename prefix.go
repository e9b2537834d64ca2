package database

import "strings"

// PrefixToken is replaced with the table prefix in every statement.
const PrefixToken = "#__"

// PrefixResolver rewrites the prefix placeholder of sql.
type PrefixResolver func(sql, prefix string) string

// ReplacePrefix replaces PrefixToken with prefix, leaving single and double
// quoted text untouched.
func ReplacePrefix(sql, prefix string) string {
	if !strings.Contains(sql, PrefixToken) {
		return sql
	}

	var sb strings.Builder
	sb.Grow(len(sql))
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case quote != 0:
			sb.WriteByte(c)
			if c == '\\' && i+1 < len(sql) {
				i++
				sb.WriteByte(sql[i])
				continue
			}
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
			sb.WriteByte(c)
		case strings.HasPrefix(sql[i:], PrefixToken):
			sb.WriteString(prefix)
			i += len(PrefixToken) - 1
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// splitSQL splits a batch on semicolons that are not inside quoted text.
// Empty statements are dropped.
func splitSQL(batch string) []string {
	var out []string
	var quote byte
	start := 0
	flush := func(end int) {
		if s := strings.TrimSpace(batch[start:end]); s != "" {
			out = append(out, s)
		}
		start = end + 1
	}

	for i := 0; i < len(batch); i++ {
		c := batch[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == ';':
			flush(i)
		}
	}
	if start < len(batch) {
		flush(len(batch))
	}
	return out
}

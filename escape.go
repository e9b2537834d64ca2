package database

import (
	"strings"
	"time"
)

const sqlDateLayout = "2006-01-02 15:04:05"

// escapeTransactSQL doubles single quotes. With extra, underscores are
// bracketed so LIKE matches them literally.
func escapeTransactSQL(text string, extra bool) string {
	text = strings.ReplaceAll(text, "'", "''")
	if extra {
		text = strings.ReplaceAll(text, "_", "[_]")
	}
	return text
}

// escapeMySQL escapes backslashes and single quotes. With extra, % and _ are
// escaped for LIKE.
func escapeMySQL(text string, extra bool) string {
	if strings.ContainsAny(text, `'\`) {
		text = strings.ReplaceAll(text, `\`, `\\`)
		text = strings.ReplaceAll(text, "'", "''")
	}
	if extra {
		text = strings.NewReplacer("%", `\%`, "_", `\_`).Replace(text)
	}
	return text
}

// escapeStandard doubles single quotes as standard SQL does. With extra, % and
// _ are prefixed with a backslash, the default LIKE escape of PostgreSQL.
func escapeStandard(likeEscape bool) func(text string, extra bool) string {
	return func(text string, extra bool) string {
		text = strings.ReplaceAll(text, "'", "''")
		if extra && likeEscape {
			text = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(text)
		}
		return text
	}
}

// Escape escapes text for use inside a quoted string literal.
func (d *Driver) Escape(text string, extra bool) string {
	return d.dialect.Escape(text, extra)
}

// Quote escapes text and wraps it in single quotes.
func (d *Driver) Quote(text string) string {
	return "'" + d.Escape(text, false) + "'"
}

// NameQuote quotes an identifier. Dotted names are quoted part by part.
func (d *Driver) NameQuote(name string) string {
	q := d.dialect.NameQuote
	if len(q) < 2 {
		return name
	}
	open, close := string(q[0]), string(q[1])

	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = open + p + close
	}
	return strings.Join(parts, ".")
}

// NullDate is the value the dialect stores for an unset date.
func (d *Driver) NullDate() string {
	return d.dialect.NullDate
}

// DateToString formats t the way the engine reads datetime literals. The time
// is converted to UTC unless local is set.
func (d *Driver) DateToString(t time.Time, local bool) string {
	if !local {
		t = t.UTC()
	}
	return t.Format(sqlDateLayout)
}

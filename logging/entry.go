// Package logging writes log entries to pluggable sinks. Sinks are picked by
// format name and shared per option set through a Cache.
package logging

import (
	"strings"
	"time"
)

type Priority int

const (
	Emergency Priority = iota + 1
	Alert
	Critical
	Error
	Warning
	Notice
	Info
	Debug
)

func (p Priority) String() string {
	switch p {
	case Emergency:
		return "EMERGENCY"
	case Alert:
		return "ALERT"
	case Critical:
		return "CRITICAL"
	case Error:
		return "ERROR"
	case Warning:
		return "WARNING"
	case Notice:
		return "NOTICE"
	case Info:
		return "INFO"
	case Debug:
		return "DEBUG"
	default:
		return "-"
	}
}

// Entry is a single log line.
type Entry struct {
	Message  string
	Priority Priority
	Category string
	Date     time.Time
	ClientIP string
}

// NewEntry creates an entry dated now. Categories are lower case.
func NewEntry(message string, priority Priority, category string) Entry {
	return Entry{
		Message:  message,
		Priority: priority,
		Category: strings.ToLower(category),
		Date:     time.Now().UTC(),
	}
}

// fields returns the template fields of the entry, keyed by upper case name.
// Empty values are left out.
func (e Entry) fields() map[string]string {
	out := map[string]string{}
	put := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	put("MESSAGE", e.Message)
	if e.Priority != 0 {
		put("PRIORITY", e.Priority.String())
	}
	put("CATEGORY", e.Category)
	put("CLIENTIP", e.ClientIP)
	if !e.Date.IsZero() {
		d := e.Date.UTC()
		put("DATETIME", d.Format(time.RFC3339))
		put("DATE", d.Format("2006-01-02"))
		put("TIME", d.Format("15:04:05"))
	}
	return out
}

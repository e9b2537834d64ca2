package database

import (
	"fmt"
	"regexp"
	"strings"
)

const defaultRowOrder = "ORDER BY (SELECT 0)"

var (
	orderByPattern = regexp.MustCompile(`(?i)ORDER\s+BY`)
	fromPattern    = regexp.MustCompile(`(?i)\s+FROM\b`)
)

// rowNumberInner moves the ORDER BY of stmt into a ROW_NUMBER() column named
// RowNumber, placed right before the first FROM. Everything from the first
// ORDER BY to the end of stmt is taken as the ordering; without one the rows
// are numbered in the order the engine returns them.
func rowNumberInner(stmt string) string {
	order := defaultRowOrder
	if loc := orderByPattern.FindStringIndex(stmt); loc != nil {
		order = strings.TrimSpace(stmt[loc[0]:])
		stmt = strings.TrimRight(stmt[:loc[0]], " \t\r\n")
	}

	column := ", ROW_NUMBER() OVER (" + order + ") AS RowNumber"
	if loc := fromPattern.FindStringIndex(stmt); loc != nil {
		return stmt[:loc[0]] + column + stmt[loc[0]:]
	}
	return stmt + column
}

// rowNumberPaginate emulates LIMIT/OFFSET with ROW_NUMBER windowing. The page
// holds the rows ranked in (offset, offset+limit]. A zero limit means no upper
// bound. useTop selects SELECT TOP for the bound, LIMIT otherwise.
func rowNumberPaginate(stmt string, limit, offset int, useTop bool) string {
	if limit <= 0 && offset <= 0 {
		return stmt
	}
	if offset < 0 {
		offset = 0
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if useTop && limit > 0 {
		fmt.Fprintf(&sb, "TOP %d ", limit)
	}
	sb.WriteString("* FROM (")
	sb.WriteString(rowNumberInner(stmt))
	fmt.Fprintf(&sb, ") AS _page WHERE RowNumber > %d ORDER BY RowNumber", offset)
	if !useTop && limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", limit)
	}
	return sb.String()
}

func topPaginate(stmt string, limit, offset int) string {
	return rowNumberPaginate(stmt, limit, offset, true)
}

// limitOffsetPaginate appends native LIMIT/OFFSET. unbounded is the LIMIT
// value the engine needs to accept an OFFSET without a limit, empty when
// OFFSET may stand alone.
func limitOffsetPaginate(unbounded string) func(stmt string, limit, offset int) string {
	return func(stmt string, limit, offset int) string {
		if limit <= 0 && offset <= 0 {
			return stmt
		}
		switch {
		case limit > 0:
			stmt += fmt.Sprintf("\nLIMIT %d", limit)
		case unbounded != "":
			stmt += "\nLIMIT " + unbounded
		}
		if offset > 0 {
			stmt += fmt.Sprintf(" OFFSET %d", offset)
		}
		return stmt
	}
}

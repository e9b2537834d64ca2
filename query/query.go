package query

import (
	"errors"
	"fmt"
	"strings"
)

// Type is the kind of statement a Query renders to.
type Type int

const (
	TypeNone Type = iota
	TypeSelect
	TypeDelete
	TypeUpdate
	TypeInsert
)

func (t Type) String() string {
	switch t {
	case TypeSelect:
		return "SELECT"
	case TypeDelete:
		return "DELETE"
	case TypeUpdate:
		return "UPDATE"
	case TypeInsert:
		return "INSERT"
	default:
		return "NONE"
	}
}

// Clause names a clause slot of a Query, used by Clear and Validate.
type Clause string

const (
	ClauseSelect Clause = "select"
	ClauseDelete Clause = "delete"
	ClauseUpdate Clause = "update"
	ClauseInsert Clause = "insert"
	ClauseFrom   Clause = "from"
	ClauseJoin   Clause = "join"
	ClauseSet    Clause = "set"
	ClauseWhere  Clause = "where"
	ClauseGroup  Clause = "group"
	ClauseHaving Clause = "having"
	ClauseOrder  Clause = "order"
)

// ErrNoType is returned by SQL when none of Select, Delete, Update or Insert was called.
var ErrNoType = errors.New("query: statement type is not set")

// IllegalClauseError reports a clause that is set but has no place in the statement type.
type IllegalClauseError struct {
	Type   Type
	Clause Clause
}

func (e *IllegalClauseError) Error() string {
	return fmt.Sprintf("query: %s clause is not allowed in a %s statement", e.Clause, e.Type)
}

// MissingClauseError reports a clause the statement type cannot be rendered without.
type MissingClauseError struct {
	Type   Type
	Clause Clause
}

func (e *MissingClauseError) Error() string {
	return fmt.Sprintf("query: %s statement needs a %s clause", e.Type, e.Clause)
}

// Query is a chainable SQL statement builder. Every clause method after the first
// merges into the existing clause; the glue of SET, WHERE and HAVING is fixed by the
// call that created the clause.
type Query struct {
	typ     Type
	selects *Element
	deletes *Element
	updates *Element
	inserts *Element
	from    *Element
	joins   []*Element
	set     *Element
	where   *Element
	group   *Element
	having  *Element
	order   *Element
}

func New() *Query {
	return &Query{}
}

func (q *Query) Type() Type {
	return q.typ
}

// switchType drops the statement elements of the other types, so only the element
// of the active type is ever set.
func (q *Query) switchType(t Type) {
	q.typ = t
	if t != TypeSelect {
		q.selects = nil
	}
	if t != TypeDelete {
		q.deletes = nil
	}
	if t != TypeUpdate {
		q.updates = nil
	}
	if t != TypeInsert {
		q.inserts = nil
	}
}

// Select adds columns to the SELECT clause and makes the query a SELECT statement.
func (q *Query) Select(columns ...string) *Query {
	q.switchType(TypeSelect)
	if q.selects == nil {
		q.selects = NewElement("SELECT", ",", columns...)
		return q
	}
	q.selects.Append(columns...)
	return q
}

// Delete makes the query a DELETE statement. An optional table is added to FROM.
func (q *Query) Delete(table ...string) *Query {
	q.switchType(TypeDelete)
	q.deletes = NewElement("DELETE", ",")
	if len(table) > 0 && table[0] != "" {
		q.From(table...)
	}
	return q
}

func (q *Query) Insert(tables ...string) *Query {
	q.switchType(TypeInsert)
	q.inserts = NewElement("INSERT INTO", ",", tables...)
	return q
}

func (q *Query) Update(tables ...string) *Query {
	q.switchType(TypeUpdate)
	q.updates = NewElement("UPDATE", ",", tables...)
	return q
}

func (q *Query) From(tables ...string) *Query {
	if q.from == nil {
		q.from = NewElement("FROM", ",", tables...)
		return q
	}
	q.from.Append(tables...)
	return q
}

// Join adds a new JOIN clause. Joins are never merged with each other.
func (q *Query) Join(joinType string, conditions ...string) *Query {
	q.joins = append(q.joins, NewElement(strings.ToUpper(joinType)+" JOIN", ",", conditions...))
	return q
}

func (q *Query) InnerJoin(conditions ...string) *Query {
	return q.Join("INNER", conditions...)
}

func (q *Query) OuterJoin(conditions ...string) *Query {
	return q.Join("OUTER", conditions...)
}

func (q *Query) LeftJoin(conditions ...string) *Query {
	return q.Join("LEFT", conditions...)
}

func (q *Query) RightJoin(conditions ...string) *Query {
	return q.Join("RIGHT", conditions...)
}

// Set adds assignments to the SET clause, separated by commas.
func (q *Query) Set(conditions ...string) *Query {
	return q.SetGlue(",", conditions...)
}

// SetGlue is Set with an explicit glue. The glue only applies when the clause is created.
func (q *Query) SetGlue(glue string, conditions ...string) *Query {
	if q.set == nil {
		q.set = NewElement("SET", "\n\t"+strings.ToUpper(glue)+" ", conditions...)
		return q
	}
	q.set.Append(conditions...)
	return q
}

// Where adds conditions to the WHERE clause, joined with AND.
func (q *Query) Where(conditions ...string) *Query {
	return q.WhereGlue("AND", conditions...)
}

// WhereGlue is Where with an explicit glue. The glue only applies when the clause is created.
func (q *Query) WhereGlue(glue string, conditions ...string) *Query {
	if q.where == nil {
		q.where = NewElement("WHERE", " "+strings.ToUpper(glue)+" ", conditions...)
		return q
	}
	q.where.Append(conditions...)
	return q
}

func (q *Query) Group(columns ...string) *Query {
	if q.group == nil {
		q.group = NewElement("GROUP BY", ",", columns...)
		return q
	}
	q.group.Append(columns...)
	return q
}

// Having adds conditions to the HAVING clause, joined with AND.
func (q *Query) Having(conditions ...string) *Query {
	return q.HavingGlue("AND", conditions...)
}

// HavingGlue is Having with an explicit glue. The glue only applies when the clause is created.
func (q *Query) HavingGlue(glue string, conditions ...string) *Query {
	if q.having == nil {
		q.having = NewElement("HAVING", " "+strings.ToUpper(glue)+" ", conditions...)
		return q
	}
	q.having.Append(conditions...)
	return q
}

func (q *Query) Order(columns ...string) *Query {
	if q.order == nil {
		q.order = NewElement("ORDER BY", ",", columns...)
		return q
	}
	q.order.Append(columns...)
	return q
}

// Clear resets the given clauses, or the whole query when none is given.
// Clearing a statement clause (select, delete, update, insert) also resets the type.
// An unknown clause name clears the whole query.
func (q *Query) Clear(clauses ...Clause) *Query {
	if len(clauses) == 0 {
		*q = Query{}
		return q
	}
	for _, c := range clauses {
		switch c {
		case ClauseSelect:
			q.selects = nil
			q.typ = TypeNone
		case ClauseDelete:
			q.deletes = nil
			q.typ = TypeNone
		case ClauseUpdate:
			q.updates = nil
			q.typ = TypeNone
		case ClauseInsert:
			q.inserts = nil
			q.typ = TypeNone
		case ClauseFrom:
			q.from = nil
		case ClauseJoin:
			q.joins = nil
		case ClauseSet:
			q.set = nil
		case ClauseWhere:
			q.where = nil
		case ClauseGroup:
			q.group = nil
		case ClauseHaving:
			q.having = nil
		case ClauseOrder:
			q.order = nil
		default:
			*q = Query{}
		}
	}
	return q
}

// String renders the statement. Clauses that do not belong to the statement type are
// left out, and no other check is made; use SQL for a validated render.
func (q *Query) String() string {
	var sb strings.Builder
	write := func(e *Element) {
		if e != nil {
			sb.WriteString(e.String())
		}
	}

	switch q.typ {
	case TypeSelect:
		write(q.selects)
		write(q.from)
		for _, j := range q.joins {
			write(j)
		}
		write(q.where)
		write(q.group)
		write(q.having)
		write(q.order)
	case TypeDelete:
		write(q.deletes)
		write(q.from)
		for _, j := range q.joins {
			write(j)
		}
		write(q.where)
	case TypeUpdate:
		write(q.updates)
		write(q.set)
		write(q.where)
	case TypeInsert:
		write(q.inserts)
		write(q.set)
		write(q.where)
	}
	return sb.String()
}

// Validate reports clauses that are set but have no place in the statement type,
// and clauses the statement type cannot do without.
func (q *Query) Validate() error {
	present := map[Clause]bool{
		ClauseFrom:   q.from != nil,
		ClauseJoin:   len(q.joins) > 0,
		ClauseSet:    q.set != nil,
		ClauseWhere:  q.where != nil,
		ClauseGroup:  q.group != nil,
		ClauseHaving: q.having != nil,
		ClauseOrder:  q.order != nil,
	}

	var allowed, required []Clause
	switch q.typ {
	case TypeSelect:
		allowed = []Clause{ClauseFrom, ClauseJoin, ClauseWhere, ClauseGroup, ClauseHaving, ClauseOrder}
	case TypeDelete:
		allowed = []Clause{ClauseFrom, ClauseJoin, ClauseWhere}
		required = []Clause{ClauseFrom}
	case TypeUpdate:
		allowed = []Clause{ClauseSet, ClauseWhere}
		required = []Clause{ClauseSet}
	case TypeInsert:
		allowed = []Clause{ClauseSet}
		required = []Clause{ClauseSet}
	default:
		return ErrNoType
	}

	for _, c := range required {
		if !present[c] {
			return &MissingClauseError{Type: q.typ, Clause: c}
		}
	}
	for _, c := range []Clause{ClauseFrom, ClauseJoin, ClauseSet, ClauseWhere, ClauseGroup, ClauseHaving, ClauseOrder} {
		if present[c] && !contains(allowed, c) {
			return &IllegalClauseError{Type: q.typ, Clause: c}
		}
	}
	return nil
}

// SQL validates the query and renders it.
func (q *Query) SQL() (string, error) {
	if err := q.Validate(); err != nil {
		return "", err
	}
	return q.String(), nil
}

func contains(list []Clause, c Clause) bool {
	for _, item := range list {
		if item == c {
			return true
		}
	}
	return false
}

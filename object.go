package database

import (
	"context"
	"database/sql/driver"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gertd/go-pluralize"
	"github.com/iancoleman/strcase"
)

var pluralizer = pluralize.NewClient()

// HasTableName lets a type name its table for InsertObject and UpdateObject.
type HasTableName interface {
	TableName() string
}

// columnName returns the column of a struct field: the db tag when present,
// the snake cased field name otherwise. A "-" tag excludes the field.
func columnName(ft reflect.StructField) (string, bool) {
	tag := ft.Tag.Get("db")
	if i := strings.Index(tag, ","); i >= 0 {
		tag = tag[:i]
	}
	switch tag {
	case "-":
		return "", false
	case "":
		return strcase.ToSnake(ft.Name), true
	default:
		return tag, true
	}
}

// tableName infers the table of obj from its type: "BlogPost" becomes "blog_posts".
func tableName(obj any) string {
	if t, ok := obj.(HasTableName); ok {
		return t.TableName()
	}
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return pluralizer.Plural(strcase.ToSnake(t.Name()))
}

// objectField is a scalar field of an object written by InsertObject and UpdateObject.
type objectField struct {
	name   string
	column string
	value  reflect.Value
}

func objectFields(v reflect.Value, out []objectField) []objectField {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		ft := t.Field(i)
		if ft.Anonymous && ft.Type.Kind() == reflect.Struct && !isScalar(ft.Type) {
			out = objectFields(v.Field(i), out)
			continue
		}
		if !ft.IsExported() || !isScalar(ft.Type) {
			continue
		}
		column, ok := columnName(ft)
		if !ok || strings.HasPrefix(column, "_") {
			continue
		}
		out = append(out, objectField{name: ft.Name, column: column, value: v.Field(i)})
	}
	return out
}

func structOf(obj any) (reflect.Value, error) {
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("database: obj is a nil %T", obj)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("database: obj should be a struct, got %T", obj)
	}
	return v, nil
}

// literal renders a field value as an SQL literal. It reports false for nil.
// Strings and times are quoted, integers and booleans are written as integers.
func (d *Driver) literal(v reflect.Value) (string, bool, error) {
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return "", false, nil
		}
		if v.Type().Implements(valuerType) {
			break
		}
		v = v.Elem()
	}

	value := v.Interface()
	if valuer, ok := value.(driver.Valuer); ok {
		dv, err := valuer.Value()
		if err != nil {
			return "", false, err
		}
		if dv == nil {
			return "", false, nil
		}
		return d.literal(reflect.ValueOf(dv))
	}

	switch x := value.(type) {
	case time.Time:
		return d.Quote(d.DateToString(x, false)), true, nil
	case []byte:
		return d.Quote(string(x)), true, nil
	}

	switch v.Kind() {
	case reflect.String:
		return d.Quote(v.String()), true, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), true, nil
	case reflect.Bool:
		if v.Bool() {
			return "1", true, nil
		}
		return "0", true, nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, v.Type().Bits()), true, nil
	}
	return "", false, fmt.Errorf("database: unsupported value type %s", v.Type())
}

func matchesKey(f objectField, key string) bool {
	return key != "" && (f.column == key || f.name == key)
}

// InsertObject inserts the scalar fields of obj into table. Nil fields are
// left out. When key names a field, a zero key is left out and the generated
// identity is written back to it. An empty table is inferred from the type
// of obj.
func (d *Driver) InsertObject(ctx context.Context, table string, obj any, key string) error {
	v, err := structOf(obj)
	if err != nil {
		return err
	}
	if table == "" {
		table = tableName(obj)
	}

	var columns, values []string
	var keyField *objectField
	for _, f := range objectFields(v, nil) {
		f := f
		if matchesKey(f, key) {
			keyField = &f
			// an unset key is left to the engine to generate
			if f.value.IsZero() {
				continue
			}
		}
		lit, ok, err := d.literal(f.value)
		if err != nil {
			return fmt.Errorf("database: insert %s.%s: %w", table, f.column, err)
		}
		if !ok {
			continue
		}
		columns = append(columns, d.NameQuote(f.column))
		values = append(values, lit)
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.NameQuote(d.ReplacePrefix(table)), strings.Join(columns, ","), strings.Join(values, ","))
	c, err := d.exec(ctx, Raw(stmt))
	if err != nil {
		return err
	}
	if err := c.Close(); err != nil {
		return err
	}

	if keyField == nil {
		return nil
	}
	id, err := d.InsertID(ctx)
	if err != nil {
		return err
	}
	if id == 0 {
		return nil
	}
	if !keyField.value.CanSet() {
		return fmt.Errorf("database: cannot set %s, pass obj as a pointer", keyField.name)
	}
	return assign(keyField.value.Addr().Interface(), id)
}

// UpdateObject updates the row of table whose key column matches the key
// field of obj, with the other scalar fields of obj. Nil fields are set to
// NULL when nulls is true and left out otherwise. Nothing is run when no
// field is left to update.
func (d *Driver) UpdateObject(ctx context.Context, table string, obj any, key string, nulls bool) error {
	v, err := structOf(obj)
	if err != nil {
		return err
	}
	if table == "" {
		table = tableName(obj)
	}

	var sets []string
	where := ""
	for _, f := range objectFields(v, nil) {
		lit, ok, err := d.literal(f.value)
		if err != nil {
			return fmt.Errorf("database: update %s.%s: %w", table, f.column, err)
		}
		if matchesKey(f, key) {
			if !ok {
				return fmt.Errorf("database: update %s: key %s is nil", table, key)
			}
			where = d.NameQuote(f.column) + "=" + lit
			continue
		}
		if !ok {
			if !nulls {
				continue
			}
			lit = "NULL"
		}
		sets = append(sets, d.NameQuote(f.column)+"="+lit)
	}

	if where == "" {
		return fmt.Errorf("database: update %s: key %q is not a field of %T", table, key, obj)
	}
	if len(sets) == 0 {
		return nil
	}

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s", d.NameQuote(d.ReplacePrefix(table)), strings.Join(sets, ","), where)
	c, err := d.exec(ctx, Raw(stmt))
	if err != nil {
		return err
	}
	return c.Close()
}

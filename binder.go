package database

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	valuerType  = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	timeType    = reflect.TypeOf(time.Time{})
)

// isScalar reports whether values of t map to a single column.
func isScalar(t reflect.Type) bool {
	if t == timeType || t.Implements(valuerType) || reflect.PtrTo(t).Implements(scannerType) {
		return true
	}
	switch t.Kind() {
	case reflect.Ptr:
		return isScalar(t.Elem())
	case reflect.Struct, reflect.Slice, reflect.Array, reflect.Map,
		reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return false
	}
	return true
}

// makeNewPointersOf maps the lower cased column name of every scalar field
// of the struct v to a pointer to that field. Embedded structs are flattened.
func makeNewPointersOf(v reflect.Value, m map[string]any) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		ft := t.Field(i)
		f := v.Field(i)
		if ft.Anonymous && ft.Type.Kind() == reflect.Struct && !isScalar(ft.Type) {
			makeNewPointersOf(f, m)
			continue
		}
		if !ft.IsExported() || !isScalar(ft.Type) {
			continue
		}
		name, ok := columnName(ft)
		if !ok {
			continue
		}
		key := strings.ToLower(name)
		if _, exists := m[key]; !exists {
			m[key] = f.Addr().Interface()
		}
	}
}

// bindRow assigns row to the fields of dest, a pointer to a struct. Columns
// without a matching field are ignored.
func bindRow(dest any, columns []string, row []any) error {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("database: obj should be a non nil ptr, got %T", dest)
	}
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		if len(row) == 0 {
			return nil
		}
		return assign(v.Addr().Interface(), row[0])
	}

	ptrs := map[string]any{}
	makeNewPointersOf(v, ptrs)
	for i, column := range columns {
		ptr, ok := ptrs[strings.ToLower(column)]
		if !ok {
			continue
		}
		if err := assign(ptr, row[i]); err != nil {
			return fmt.Errorf("database: column %s: %w", column, err)
		}
	}
	return nil
}

// newElem builds a slice element of type t from row. t is a struct, a
// pointer to one, or a scalar filled from the first column.
func newElem(t reflect.Type, columns []string, row []any) (reflect.Value, error) {
	base := t
	depth := 0
	for base.Kind() == reflect.Ptr {
		base = base.Elem()
		depth++
	}
	v := reflect.New(base)
	if err := bindRow(v.Interface(), columns, row); err != nil {
		return reflect.Value{}, err
	}
	if depth == 0 {
		return v.Elem(), nil
	}
	for ; depth > 1; depth-- {
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		v = p
	}
	return v, nil
}

// assign stores a value read from a cursor into ptr, converting between the
// types connectors return and the type of the field.
func assign(ptr any, value any) error {
	if s, ok := ptr.(sql.Scanner); ok {
		return s.Scan(value)
	}

	dst := reflect.ValueOf(ptr).Elem()
	if value == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	if dst.Kind() == reflect.Ptr {
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Interface(), value); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	src := reflect.ValueOf(value)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}

	text, isText := value.(string)
	switch dst.Kind() {
	case reflect.String:
		if t, ok := value.(time.Time); ok {
			dst.SetString(t.Format(sqlDateLayout))
			return nil
		}
		dst.SetString(fmt.Sprint(value))
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if isText {
			n, err := strconv.ParseInt(strings.TrimSpace(text), 10, dst.Type().Bits())
			if err != nil {
				return err
			}
			dst.SetInt(n)
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if isText {
			n, err := strconv.ParseUint(strings.TrimSpace(text), 10, dst.Type().Bits())
			if err != nil {
				return err
			}
			dst.SetUint(n)
			return nil
		}
	case reflect.Float32, reflect.Float64:
		if isText {
			n, err := strconv.ParseFloat(strings.TrimSpace(text), dst.Type().Bits())
			if err != nil {
				return err
			}
			dst.SetFloat(n)
			return nil
		}
	case reflect.Bool:
		switch {
		case isText:
			b, err := strconv.ParseBool(strings.TrimSpace(text))
			if err != nil {
				return err
			}
			dst.SetBool(b)
			return nil
		case src.CanInt():
			dst.SetBool(src.Int() != 0)
			return nil
		}
	case reflect.Struct:
		if dst.Type() == timeType && isText {
			t, err := time.Parse(sqlDateLayout, text)
			if err != nil {
				return err
			}
			dst.Set(reflect.ValueOf(t))
			return nil
		}
	}

	if isNumber(src.Kind()) && isNumber(dst.Kind()) {
		dst.Set(src.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, dst.Type())
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

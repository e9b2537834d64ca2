package database

import (
	"context"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

type exportedField struct {
	Field    string  `yaml:"field"`
	Type     string  `yaml:"type"`
	Nullable bool    `yaml:"nullable"`
	Default  *string `yaml:"default,omitempty"`
}

type exportedTable struct {
	Name   string          `yaml:"name"`
	Fields []exportedField `yaml:"fields"`
}

type exportedStructure struct {
	Dialect string          `yaml:"dialect"`
	Tables  []exportedTable `yaml:"tables"`
}

// structureExporter writes the column structure of tables as YAML.
type structureExporter struct {
	d *Driver
}

func newStructureExporter(d *Driver) Exporter {
	return &structureExporter{d: d}
}

// Export writes the structure of tables, every table of the database when
// none is given.
func (e *structureExporter) Export(ctx context.Context, w io.Writer, tables ...string) error {
	if len(tables) == 0 {
		var err error
		if tables, err = e.d.TableList(ctx); err != nil {
			return err
		}
	}

	fields, err := e.d.TableFields(ctx, false, tables...)
	if err != nil {
		return err
	}

	out := exportedStructure{Dialect: e.d.dialect.Name}
	for _, table := range tables {
		table = e.d.ReplacePrefix(table)
		t := exportedTable{Name: table}
		for _, f := range fields[table] {
			ef := exportedField{Field: f.Field, Type: f.Type, Nullable: f.Null == "YES"}
			if f.Default.Valid {
				def := f.Default.String
				ef.Default = &def
			}
			t.Fields = append(t.Fields, ef)
		}
		sort.Slice(t.Fields, func(i, j int) bool {
			return t.Fields[i].Field < t.Fields[j].Field
		})
		out.Tables = append(out.Tables, t)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}

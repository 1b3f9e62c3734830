package core

// Schema describes the columns of a table as reported by the database.
type Schema struct {
	// TableName is the name of the table.
	TableName string

	// PrimaryKey is the name of the primary key column.
	PrimaryKey string

	// Columns contains all column definitions for the table.
	Columns []Column
}

// Column represents a single column in a database table.
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// JSONColumns returns the names of columns declared with a JSON type.
func (s *Schema) JSONColumns() []string {
	var out []string
	for _, c := range s.Columns {
		if isJSONType(c.Type) {
			out = append(out, c.Name)
		}
	}
	return out
}

// Column returns the named column definition.
func (s *Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func isJSONType(t string) bool {
	switch t {
	case "json", "JSON", "jsonb", "JSONB":
		return true
	}
	return false
}

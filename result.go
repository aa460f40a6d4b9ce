package stratum

// Column describes one column of a result set: its name and, when the
// backend reports one, its declared type.
type Column struct {
	Name     string
	DeclType string
}

// ResultSet is the uniform result shape returned by every backend: ordered
// column descriptors, ordered rows of Values, and execution metadata.
//
// Row width always equals the column count, and column order matches the
// statement's projection order as returned by the backend.
type ResultSet struct {
	Columns []Column
	Rows    [][]Value

	// RowsAffected is the number of rows changed by a write statement.
	RowsAffected int64
	// LastInsertID is the rowid of the last inserted row, when the engine
	// reports one; zero otherwise.
	LastInsertID int64

	byName map[string]int
}

// ColumnIndex returns the position of the named column, or false when the
// result has no such column. The first occurrence wins for duplicated
// names.
func (rs *ResultSet) ColumnIndex(name string) (int, bool) {
	if rs.byName == nil {
		rs.byName = make(map[string]int, len(rs.Columns))
		for i := len(rs.Columns) - 1; i >= 0; i-- {
			rs.byName[rs.Columns[i].Name] = i
		}
	}
	i, ok := rs.byName[name]
	return i, ok
}

// Get returns the Value at the given row under the named column.
func (rs *ResultSet) Get(row int, column string) (Value, error) {
	if row < 0 || row >= len(rs.Rows) {
		return Value{}, UsageError("row %d out of range (%d rows)", row, len(rs.Rows))
	}
	i, ok := rs.ColumnIndex(column)
	if !ok {
		return Value{}, UsageError("no column named %q", column)
	}
	return rs.Rows[row][i], nil
}

// ColumnNames returns the column names in projection order.
func (rs *ResultSet) ColumnNames() []string {
	names := make([]string, len(rs.Columns))
	for i, c := range rs.Columns {
		names[i] = c.Name
	}
	return names
}

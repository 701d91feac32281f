package resource

import (
	"fmt"
	"strings"

	"github.com/aanand-mishra/e-learning-api/internal/types"
)

// queries holds the fixed statements for one table. Identifiers come from
// the table descriptor, never from the request; every value is a ? argument.
type queries struct {
	list   string
	get    string
	insert string
	remove string
}

func buildQueries(t types.Table) queries {
	cols := strings.Join(t.Columns, ", ")
	selectCols := t.PrimaryKey + ", " + cols

	return queries{
		list: fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
			selectCols, t.Name, t.PrimaryKey),
		get: fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
			selectCols, t.Name, t.PrimaryKey),
		insert: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			t.Name, cols, placeholders(len(t.Columns))),
		remove: fmt.Sprintf("DELETE FROM %s WHERE %s = ?",
			t.Name, t.PrimaryKey),
	}
}

// updateQuery sets the given columns; the key is the last argument.
func updateQuery(t types.Table, columns []string) string {
	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = c + " = ?"
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		t.Name, strings.Join(sets, ", "), t.PrimaryKey)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

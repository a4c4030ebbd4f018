package source

import (
	"database/sql"
	"fmt"
	"os"
	"regexp"

	_ "github.com/glebarez/go-sqlite"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// readSQLite reads every row of table. The file must already exist; opening a
// missing path would otherwise create an empty database.
func readSQLite(path, table string) (grid, error) {
	if table == "" {
		table = "lineouts"
	}
	if !tableName.MatchString(table) {
		return grid{}, fmt.Errorf("invalid table name %q", table)
	}
	if _, err := os.Stat(path); err != nil {
		return grid{}, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return grid{}, err
	}
	defer db.Close()

	rows, err := db.Query(fmt.Sprintf(`SELECT * FROM "%s"`, table))
	if err != nil {
		return grid{}, err
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return grid{}, err
	}

	g := grid{header: header}
	cells := make([]sql.NullString, len(header))
	dest := make([]any, len(header))
	for i := range cells {
		dest[i] = &cells[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return grid{}, err
		}
		row := make([]string, len(cells))
		for i, c := range cells {
			if c.Valid {
				row[i] = c.String
			}
		}
		g.rows = append(g.rows, row)
	}
	return g, rows.Err()
}

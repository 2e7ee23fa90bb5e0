// Package sqlxrepos implements the core repositories against Postgres.
package sqlxrepos

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/submita/submita/core"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// executor picks the transaction executor when one was passed, falling back
// to the root connection pool.
func executor(root core.DBExecutor, exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 && exec[0] != nil {
		return exec[0]
	}
	return root
}

func searchPattern(search string) string {
	return "%" + search + "%"
}

package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/ncruces/go-sqlite3"
	"golang.org/x/text/cases"

	"github.com/rubiojr/fmcsa/pkg/db"
)

// sqliteTimeLayout has a fixed width so stored timestamps compare
// correctly as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

type dialect struct {
	name   string
	driver string
	// contains renders a case-insensitive substring test on col with one
	// placeholder for the folded needle.
	contains func(col string) string
	fold     func(string) string
	timeArg  func(time.Time) any
}

var sqliteDialect = dialect{
	name:   db.SQLite,
	driver: "sqlite3",
	contains: func(col string) string {
		return "instr(fold(" + col + "), ?) > 0"
	},
	fold: foldString,
	timeArg: func(t time.Time) any {
		return t.UTC().Format(sqliteTimeLayout)
	},
}

var postgresDialect = dialect{
	name:   db.Postgres,
	driver: "pgx",
	contains: func(col string) string {
		return "strpos(lower(" + col + "), ?) > 0"
	},
	fold: strings.ToLower,
	timeArg: func(t time.Time) any {
		return t.UTC()
	},
}

func foldString(s string) string {
	return cases.Fold().String(s)
}

// sqliteConnInit runs on every new SQLite connection.
func sqliteConnInit(conn *sqlite3.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = memory",
	}
	for _, pragma := range pragmas {
		if err := conn.Exec(pragma); err != nil {
			return fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	return conn.CreateFunction("fold", 1, sqlite3.DETERMINISTIC|sqlite3.INNOCUOUS,
		func(ctx sqlite3.Context, arg ...sqlite3.Value) {
			if arg[0].Type() == sqlite3.NULL {
				ctx.ResultNull()
				return
			}
			ctx.ResultText(foldString(arg[0].Text()))
		})
}

func parseStoredTime(s string) (time.Time, error) {
	for _, layout := range []string{sqliteTimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

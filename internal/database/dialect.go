package database

import "regexp"

var (
	placeholderRe = regexp.MustCompile(`\$\d+`)
	varcharRe     = regexp.MustCompile(`VARCHAR\(\d+\)`)
	nowRe         = regexp.MustCompile(`\bNOW\(\)`)
	serialRe      = regexp.MustCompile(`\bSERIAL\b`)
	timestampRe   = regexp.MustCompile(`\bTIMESTAMP\b`)
)

// toSQLite rewrites a canonical PostgreSQL-flavored statement into the
// SQLite dialect. The rewrite is a pure function and a fixed point:
// applying it to its own output changes nothing.
//
//	$1, $2, ...   -> ?
//	NOW()         -> datetime('now')
//	SERIAL        -> INTEGER (an INTEGER PRIMARY KEY auto-increments)
//	VARCHAR(n)    -> TEXT (SQLite does not enforce lengths)
//	TIMESTAMP     -> TEXT (stored as ISO-8601 text)
func toSQLite(query string) string {
	result := placeholderRe.ReplaceAllString(query, "?")
	result = nowRe.ReplaceAllString(result, "datetime('now')")
	result = serialRe.ReplaceAllString(result, "INTEGER")
	result = varcharRe.ReplaceAllString(result, "TEXT")
	result = timestampRe.ReplaceAllString(result, "TEXT")
	return result
}

// Package dsn translates blocking-mode connection URIs into their
// non-blocking-mode equivalents and resolves the GORM dialector for either
// form. Translation rewrites only the scheme segment; credentials, host,
// and path pass through byte-for-byte.
package dsn

import (
	"strings"

	glebarez "github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dberrors "github.com/kbukum/dbkit/errors"
)

// nonBlockingDrivers maps a database family to the driver token selected in
// non-blocking mode.
var nonBlockingDrivers = map[string]string{
	"sqlite":     "glebarez",
	"postgresql": "pgx",
	"mysql":      "gomysql",
}

// Translate rewrites the scheme of a blocking-mode URI to select the
// family's non-blocking driver:
//
//	sqlite:///app.db          -> sqlite+glebarez:///app.db
//	postgresql://h:5432/db    -> postgresql+pgx://h:5432/db
//	mysql://u:p@h:3306/db     -> mysql+gomysql://u:p@h:3306/db
//
// Translating an already-translated URI returns it unchanged. Unknown
// schemes fail with an unsupported_scheme error naming the scheme.
func Translate(uri string) (string, error) {
	scheme, rest, ok := splitScheme(uri)
	if !ok {
		return "", dberrors.UnsupportedScheme(uri)
	}

	family, driver, hasDriver := strings.Cut(scheme, "+")
	nb, known := nonBlockingDrivers[family]
	if !known {
		return "", dberrors.UnsupportedScheme(family)
	}
	if hasDriver {
		if driver == nb {
			return uri, nil
		}
		return "", dberrors.UnsupportedScheme(scheme)
	}
	return family + "+" + nb + "://" + rest, nil
}

// Dialector resolves the GORM dialector for a blocking or translated URI.
func Dialector(uri string) (gorm.Dialector, error) {
	scheme, rest, ok := splitScheme(uri)
	if !ok {
		return nil, dberrors.UnsupportedScheme(uri)
	}

	family, driver, _ := strings.Cut(scheme, "+")
	switch family {
	case "sqlite":
		path := sqlitePath(rest)
		if driver == "glebarez" {
			return glebarez.Open(path), nil
		}
		return sqlite.Open(path), nil
	case "postgresql":
		// The GORM postgres driver is pgx-backed in both modes; the +pgx
		// token only records the non-blocking selection.
		return postgres.Open("postgres://" + rest), nil
	case "mysql":
		return mysql.Open(mysqlDSN(rest)), nil
	}
	return nil, dberrors.UnsupportedScheme(family)
}

func splitScheme(uri string) (scheme, rest string, ok bool) {
	i := strings.Index(uri, "://")
	if i < 0 {
		return "", "", false
	}
	return uri[:i], uri[i+3:], true
}

// sqlitePath extracts the filesystem path from the URI remainder.
// "sqlite:///app.db" yields the relative path "app.db",
// "sqlite:////var/db/app.db" the absolute "/var/db/app.db", and the
// ":memory:" form passes through for in-memory databases.
func sqlitePath(rest string) string {
	p := strings.TrimPrefix(rest, "/")
	if p == "" || p == ":memory:" {
		return ":memory:"
	}
	return p
}

// mysqlDSN converts the "user:pass@host:port/db" URI remainder into the
// go-sql-driver DSN form "user:pass@tcp(host:port)/db".
func mysqlDSN(rest string) string {
	creds := ""
	hostpart := rest
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		creds = rest[:i+1]
		hostpart = rest[i+1:]
	}

	host, path, _ := strings.Cut(hostpart, "/")
	if host == "" {
		host = "localhost:3306"
	}
	if !strings.Contains(host, ":") {
		host += ":3306"
	}
	return creds + "tcp(" + host + ")/" + path
}

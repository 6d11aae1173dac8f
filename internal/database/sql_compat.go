package database

import (
	"os"
	"regexp"
	"strings"
	"sync"
)

var (
	driverMu     sync.RWMutex
	activeDriver string
)

// SetDriver records the driver the process is running against so query
// rewriting can adapt. Called once by Open; tests may call it directly.
func SetDriver(driver string) {
	driverMu.Lock()
	activeDriver = strings.ToLower(strings.TrimSpace(driver))
	driverMu.Unlock()
}

// GetDBDriver returns the active database driver, falling back to the
// DESKMAIL_DATABASE_DRIVER environment variable and finally to postgres.
func GetDBDriver() string {
	driverMu.RLock()
	driver := activeDriver
	driverMu.RUnlock()
	if driver == "" {
		driver = strings.ToLower(os.Getenv("DESKMAIL_DATABASE_DRIVER"))
	}
	if driver == "" {
		driver = "postgres"
	}
	return driver
}

// IsMySQL returns true if using MySQL/MariaDB
func IsMySQL() bool {
	driver := GetDBDriver()
	return driver == "mysql" || driver == "mariadb"
}

// IsPostgreSQL returns true if using PostgreSQL
func IsPostgreSQL() bool {
	return GetDBDriver() == "postgres"
}

var placeholderPattern = regexp.MustCompile(`\$\d+`)

// ConvertPlaceholders converts PostgreSQL placeholders ($1, $2) to MySQL
// placeholders (?). Queries are written in PostgreSQL format and auto-convert
// for MySQL.
func ConvertPlaceholders(query string) string {
	if !IsMySQL() {
		return query
	}

	placeholders := placeholderPattern.FindAllString(query, -1)
	result := query
	for _, placeholder := range placeholders {
		result = strings.Replace(result, placeholder, "?", 1)
	}

	// MySQL is case-insensitive by default
	result = strings.ReplaceAll(result, " ILIKE ", " LIKE ")
	result = strings.ReplaceAll(result, " ilike ", " LIKE ")

	return result
}

// ConvertReturning handles RETURNING clause differences. PostgreSQL supports
// INSERT ... RETURNING id; MySQL callers must use LastInsertId instead. The
// boolean reports whether the returned query still carries a RETURNING clause.
func ConvertReturning(query string) (string, bool) {
	if !IsMySQL() {
		return query, strings.Contains(strings.ToUpper(query), "RETURNING")
	}
	upper := strings.ToUpper(query)
	idx := strings.LastIndex(upper, "RETURNING")
	if idx < 0 {
		return query, false
	}
	return strings.TrimRight(query[:idx], " \n\t"), false
}

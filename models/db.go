package models

import (
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

// IsDuplicateKeyErr reports a MySQL unique-constraint violation (1062).
// Duplicates are expected during re-ingestion of living documents and are
// never treated as storage failures.
func IsDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

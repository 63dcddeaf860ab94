// Package all wires the built-in storage backends into the storage factory.
//
// It exists purely for side effects: importing it (usually as a blank import
// from a main package) runs the init functions of the concrete backends,
// which register their factories with the storage package. After the import,
// the kinds "postgres", "mysql", "mssql", and "sqlite" are available through
// storage.New.
//
// A binary that needs only a subset of backends can import the individual
// backend packages instead.
package all

import (
	_ "healthetl/internal/storage/mssql"
	_ "healthetl/internal/storage/mysql"
	_ "healthetl/internal/storage/postgres"
	_ "healthetl/internal/storage/sqlite"
)

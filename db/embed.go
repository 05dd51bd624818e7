// Package db provides the embedded database schema and seed catalog.
package db

import _ "embed"

// Schema contains the DDL statements for all ledger tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// Catalog is the default item catalog as a JSON array of
// {"name","description","price"} objects.
//
//go:embed seed/catalog.json
var Catalog []byte

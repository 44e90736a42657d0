// Package postgres provides the PostgreSQL-backed job registry. It handles
// connection setup through the pgx database/sql driver, schema migrations
// embedded from the migrations directory, and the mapping between database
// errors and domain errors.
package postgres

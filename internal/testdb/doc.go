//go:build integration

// Package testdb provides database helpers for integration tests.
//
// Tests call Open to get a migrated connection to the database named by
// ENHANCE_TEST_DB_URL (or DATABASE_URL). Without a URL the test is skipped
// locally and fails in CI, so a misconfigured pipeline cannot pass silently.
//
// WithTx runs a test body inside a transaction that is always rolled back,
// which keeps tests isolated without truncating tables.
package testdb

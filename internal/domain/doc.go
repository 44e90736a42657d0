// Package domain contains the core entities of the enhancement service: job
// identities, job states and their status values, artifact records, and the
// sentinel errors every other package classifies with errors.Is.
//
// It has no dependencies on storage, transport, or the enhancement tooling.
package domain

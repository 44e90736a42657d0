// Package artifact stores uploaded and enhanced images on the local filesystem.
//
// Every file belonging to a job is named with the job identity as prefix
// ("{id}_{filename}" for the original, "{id}_enhanced.png" for the enhanced
// output), so a single flat directory can hold any number of jobs and a purge
// by prefix removes everything a job produced.
package artifact

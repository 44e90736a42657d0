// Package task runs long operations in the background so they don't block
// HTTP request handling. A fixed pool of workers drains a bounded queue;
// callers get a Handle to observe the outcome and may register a completion
// callback that runs on the worker before the Handle resolves.
package task

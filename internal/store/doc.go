// Package store persists the user directory.
//
// A background saver serializes the full directory to stable storage after
// every mutation and reloads it at startup. Writes run off the request
// path and are best-effort: a failure is logged and absorbed, and the
// in-memory directory stays authoritative until the next successful write.
//
// Two backends exist: a human-readable JSON file rewritten in full on
// every save (the default), and a Postgres table for deployments that
// already run a database.
package store

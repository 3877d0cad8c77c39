// Package server implements the HTTP surface of sendbox: session and
// current-user middleware, the route handlers, the upload adapter, and the
// Postgres-backed user, file, and session stores. Dependencies (database,
// object store client) are injected by the production binary or by tests.
package server

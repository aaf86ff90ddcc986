// Package pasty is the core service of the pastebin: save a text and get a
// short id back, retrieve it by id until it expires. The HTTP API and the
// WebSocket hub are both thin shells over this package.
package pasty

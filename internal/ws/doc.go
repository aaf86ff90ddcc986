// Package ws implements the real-time observer hub for pasty.
//
// Hub manages a set of connected WebSocket clients. Each client receives the
// current number of stored texts immediately on connect and on every
// Broadcast (the service broadcasts after each successful save). Clients may
// also submit operations over the socket.
//
// Inbound messages:
//
//	{"type": "ping"}
//	{"type": "save_text", "content": "..."}
//	{"type": "retrieve_text", "id": "ABCD"}
//
// Outbound messages:
//
//	{"type": "count_update", "count": 12}
//	{"type": "pong", "server_time": "...", "active_connections": 3}
//	{"type": "save_success", "id": "ABCD", "content": "..."}     (or save_error)
//	{"type": "retrieve_success", "id": "ABCD", "content": "..."} (or retrieve_error)
//
// Delivery is FIFO per connection. A client whose send buffer fills up, or
// whose connection errors on write, is removed from the hub — membership is
// self-healing and one slow observer never delays the others or the save
// that triggered a broadcast.
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level. The WebSocket endpoint is mounted at /ws by the server.
package ws

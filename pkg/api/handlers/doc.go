// Package handlers implements the Kyosan HTTP API.
//
// Routes:
//
//	POST   /api/v1/ethics/process              evaluate one input
//	GET    /api/health                         service and plugin status
//	GET    /api/systems                        plugin registry records
//	GET    /api/conversations                  list, most recent first
//	POST   /api/conversations                  create
//	GET    /api/conversations/{id}             fetch with messages
//	PUT    /api/conversations/{id}             replace name and messages
//	DELETE /api/conversations/{id}             delete
//	POST   /api/conversations/{id}/messages    evaluate and append a turn
//
// A blocked request is not an HTTP error: it is answered with 200 and a
// status of "blocked".
package handlers

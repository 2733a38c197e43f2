// Package api defines the shared domain and wire types for the dispatch
// orchestrator: shipment requests and quotes, workflow run state, approval
// interrupts, and the HTTP request/response shapes exposed by the server.
package api

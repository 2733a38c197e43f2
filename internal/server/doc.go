// Package server implements the HTTP API for the dispatch agent
//
// This package provides the prompt endpoints (synchronous and NDJSON
// streaming), the approval admin endpoints, agent discovery, and WebSocket
// run-event streaming
package server

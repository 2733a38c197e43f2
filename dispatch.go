// Package dispatch identifies the application for logging and discovery
package dispatch

const (
	// Name is the service identifier used in logs and the agent card
	Name = "dispatch-agent"

	// Version is the application version
	Version = "0.3.0"
)

// Package logging builds the zap logger shared by the CLI and the HTTP server.
package logging

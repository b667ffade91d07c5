// Package storage holds the configuration snapshot served over HTTP.
package storage

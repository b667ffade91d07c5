// Package flatten turns nested YAML structures into a flat map keyed by
// joined paths ("server.ports.0"). Composite values are kept at their own
// path as well, so callers can fetch a whole subtree or a single leaf.
package flatten

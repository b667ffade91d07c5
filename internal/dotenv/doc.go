// Package dotenv reads NAME=value files. It reports names declared more
// than once instead of silently overwriting them; deciding whether that is
// fatal is left to the caller.
package dotenv

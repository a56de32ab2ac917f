// Package observability builds the zap loggers shared by the binaries.
package observability

// Package log provides structured logging via zerolog: a global logger
// configured once with log.Init, plus component- and entity-scoped child
// loggers for the handful of IDs that show up across a scheduling pass
// (node, resource, action).
package log

// Package log is the structured logging surface shared by stagehand packages.
//
// Library code logs through the Logger interface only. The zerolog adapter
// is what the CLI wires in; NoopLogger is the default when nothing is set.
//
//	logger := log.NewZerologAdapter(log.ParseLevel("debug"))
//	child := logger.With(log.String("manager", "api"))
//	child.Info("stage committed", log.Stringer("stage", stage))
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package log

// Package logger provides structured logging for dbkit components,
// built on zerolog. Components tag their output with WithComponent so
// log lines can be filtered per subsystem.
package logger

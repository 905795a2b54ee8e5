// Package app contains the core application logic. It wires the logger, the
// engine and the built-in modules together and runs the command-line
// directives, decoupled from any specific entrypoint.
package app

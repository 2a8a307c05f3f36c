// Package app contains the core application logic: configuration, logger
// setup, and the one-shot lifecycle that builds a module registry and
// exercises the configured invocations against it, decoupled from any
// specific entrypoint like the CLI.
package app

// Package commands defines the wellcome CLI and wires dependencies for subcommands.
//
// Commands
//
//   - create    Walk through the four wizard steps and publish a meal event
//   - feed      List the upcoming meal events
//   - catalog   Print or export the selectable catalogs
//
// # Implementation
//
// The root command loads the configuration and the catalogs before any
// subcommand runs. The NATS connection, embedded or remote, is only opened by
// the commands that read or write events.
package commands

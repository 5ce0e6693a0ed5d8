// Package cmd implements the fetchform CLI commands using Cobra.
//
// Available commands:
//   - send: Send the requests described by request documents
//   - validate: Check request documents against the schema without sending
//   - list: Show method, target and body encoding of each document
//   - init: Create a config file and an example request document
//   - completion: Generate shell completion scripts
//   - version: Show fetchform version information
//
// Flags default to FETCHFORM_* environment variables and override values
// from the config file.
package cmd

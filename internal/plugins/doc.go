// Package plugins loads the project plugin manifest and adapts each
// entry into subprocess-backed hook handlers.
//
// The manifest (.vibed/plugins.toml) declares exec hooks: a command,
// optional arguments, the hook points to attach to, and an optional
// timeout. A missing manifest means no plugins; a malformed one is a
// startup error.
//
// Subprocess protocol: the hook payload is written to stdin as JSON.
// Exit 0 succeeds, and non-empty stdout replaces the value under
// inspection. Exit 2 is a validation failure whose stderr is surfaced
// verbatim to the caller. Any other failure, including a timeout, is
// infrastructure: logged and skipped.
package plugins

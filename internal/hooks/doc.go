// Package hooks dispatches extension callbacks at fixed points in the
// orchestration lifecycle.
//
// Extensions register a HookSet under a name. The registry invokes every
// handler for a hook point in registration order, threading a value
// (instruction text, plan content) through the chain so a handler can
// replace what its successors see. Failures are classified by HookError
// kind: validation failures abort the triggering operation, infrastructure
// failures are logged and skipped.
//
// The registry knows nothing about any concrete extension; subprocess
// plugins, in-process handlers, and test doubles all register through the
// same HookSet surface.
package hooks

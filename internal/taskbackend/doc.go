// Package taskbackend detects which task-tracking surface is active for
// a project: inline plan-file checklists (the default) or an external
// CLI issue tracker.
//
// Detection is a local probe. The configured backend selects the
// candidate; for the tracker backend the external command is looked up
// and asked for its version under a timeout. Results are memoized, and
// a failed tracker probe falls back to the plan backend. Failed probes
// are retried at most once per probe interval, so installing the tool
// later does not require a server restart.
package taskbackend

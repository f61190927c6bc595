// Package runner drives one automation run from acquisition to report.
//
// A run walks these stages in order:
//
//	acquire → classify → decode → validate → snapshot before →
//	execute → snapshot after → report
//
// Any stage failure short-circuits the remaining stages. The before snapshot
// is only taken once bounds validation has passed, and the after snapshot
// only once execution has started. Every run yields a Report; the Run*
// methods never return an error and never panic.
//
// After the run, the Runner records an audit.Run, writes run and step
// metrics, and publishes a completion event. Each of these sinks is
// optional, and a failing sink is logged without changing the Report.
//
// The Runner holds no state between runs. Callers serialise runs.
package runner

// Package audit keeps the one-way trail of automation runs: a Run row per
// attempt in SQLite, and before/after screen captures written as PNG files.
//
// Nothing in the automation pipeline reads these back; they exist for the
// operator (`qrauto history`) and for post-incident review.
package audit

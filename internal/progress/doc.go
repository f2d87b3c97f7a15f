// Package progress displays build progress while the status loop runs.
//
// Two reporters are provided:
//   - LineReporter redraws one line in place with a carriage return
//   - AppendReporter prints each update on a new line
//
// New picks between them from the preserve-log setting and whether the
// output is a terminal.
//
// # Output Format
//
//	[00:00:00] Stage: Queued
//	[00:00:15] Stage: Step 2/7: fetching sources
//	[00:01:30] Stage: Step 5/7: signing
package progress

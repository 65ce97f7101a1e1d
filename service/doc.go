// Package service runs the badge pipeline: fetch upstream jobs, filter,
// normalize, aggregate and hand the result to the badge assembler.
//
// Every method returns a badge. Upstream failures are logged, traced and
// counted through the observe middleware and then rendered as the error
// badge; empty results render as the unknown badge.
package service

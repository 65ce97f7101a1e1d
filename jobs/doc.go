// Package jobs normalizes upstream test and build jobs into records keyed by
// canonical browser and version.
//
// Records come from two places: job listings returned by a CI or test
// service, narrowed with a Filter and passed through Normalize, or inline
// version lists such as "!8,-9,10" parsed by ParseInline.
package jobs

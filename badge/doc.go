// Package badge turns statuses and browser matrices into SVG badges.
//
// An Assembler always produces bytes: an empty matrix becomes the
// "browsers | unknown" badge and a failing renderer becomes an "error"
// badge, so callers never have to map errors to responses themselves.
package badge

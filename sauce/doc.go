// Package sauce reads cross-browser test jobs from the Sauce Labs REST API.
package sauce

// Package aggregate folds normalized job records into a browser/version
// matrix and reduces job lists to one overall status.
package aggregate

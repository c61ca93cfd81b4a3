// Package errors provides structured runtime errors with stable codes.
//
// Every diagnostic the runtime emits, from programmer-error warnings
// to fatal scheduler diagnostics, is built
// from a registered template so that messages stay consistent and
// searchable. Errors carry a code ("E010"), a category, a short
// message, and an optional longer detail with a fix suggestion.
package errors

// Package services contains the streaming chat clients for the supported language-model
// providers. Each provider yields the raw text fragments of exactly one completion stream, in
// arrival order; accumulating them into the transcript is the caller's job.
package services

import "errors"

// ErrNoProvider is returned when no language-model provider is configured. It is a
// configuration error and is raised before any network call is attempted.
var ErrNoProvider = errors.New("no language model provider configured")

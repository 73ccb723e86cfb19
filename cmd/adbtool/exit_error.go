package main

import "fmt"

// Exit codes returned by adbtool.
const (
	exitFailure = 1 // validation failed or input could not be processed
	exitUsage   = 2 // bad configuration, flags or pattern file location
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

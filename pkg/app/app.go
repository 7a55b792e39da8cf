// Package app defines common runtime contracts shared by executable
// entrypoints, so cmd/* binaries can start application components without
// depending on their concrete implementations.
package app

// Runner represents a runnable application component.
type Runner interface {
	Run() error
}

package monitor

import "errors"

var (
	// ErrSourceRequired is returned when a service is created without its
	// domain or renewal source.
	ErrSourceRequired = errors.New("monitor: source is required")

	// ErrWorkerRequired is returned when a service is created without the
	// component doing the actual work.
	ErrWorkerRequired = errors.New("monitor: worker is required")
)

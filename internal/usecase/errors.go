package usecase

import "errors"

// Error classes returned by the services. Callers match with errors.Is; the
// HTTP layer maps each class onto a status code.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrRuleViolation         = errors.New("rule violation")
	ErrStateConflict         = errors.New("state conflict")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

var clientErrors = []error{ErrInvalidInput, ErrRuleViolation, ErrStateConflict, ErrNotFound, ErrUnauthorized}

// isClientError reports errors caused by the request rather than the service.
func isClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

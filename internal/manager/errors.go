package manager

// modelNotFoundError signals a model id absent from the registry.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

// ErrModelNotFound constructs a modelNotFoundError.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// modelUnavailableError signals a failed load or exhausted memory budget.
// Clients may retry later; the gateway never retries within the request.
type modelUnavailableError struct {
	modelID string
	reason  string
}

func (e modelUnavailableError) Error() string {
	return "model unavailable: " + e.modelID + ": " + e.reason
}

// ErrModelUnavailable constructs a modelUnavailableError.
func ErrModelUnavailable(modelID, reason string) error {
	return modelUnavailableError{modelID: modelID, reason: reason}
}

// IsModelUnavailable reports whether err indicates an unusable model (load
// failure or resource exhaustion).
func IsModelUnavailable(err error) bool {
	_, ok := err.(modelUnavailableError)
	return ok
}

// IsResourceExhausted reports whether err is specifically the
// nothing-evictable case.
func IsResourceExhausted(err error) bool {
	e, ok := err.(modelUnavailableError)
	return ok && e.reason == reasonResourceExhausted
}

const reasonResourceExhausted = "resource exhausted"

// tooBusyError signals queue overflow for 429 mapping.
type tooBusyError struct{ modelID string }

func (e tooBusyError) Error() string { return "too busy: " + e.modelID }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	_, ok := err.(tooBusyError)
	return ok
}

// waitTimeoutError signals that an admitted entry waited past its deadline
// without reaching an execution slot. Safe to retry.
type waitTimeoutError struct{ modelID string }

func (e waitTimeoutError) Error() string { return "admission wait timed out: " + e.modelID }

// IsWaitTimeout reports whether err indicates an expired admission wait.
func IsWaitTimeout(err error) bool {
	_, ok := err.(waitTimeoutError)
	return ok
}

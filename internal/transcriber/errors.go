package transcriber

import (
	"errors"
	"fmt"
)

// ErrUnintelligible means the engine ran but could not map the audio to text.
// It is expected for silence and noise and is not a failure.
var ErrUnintelligible = errors.New("could not understand audio")

// ServiceError marks a failure to reach or use the recognition backend.
type ServiceError struct {
	Engine string
	Err    error
}

func (e *ServiceError) Error() string {
	if e == nil || e.Err == nil {
		return "recognition service error"
	}
	return fmt.Sprintf("%s: %v", e.Engine, e.Err)
}

func (e *ServiceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func NewServiceError(engine string, err error) error {
	if err == nil {
		return nil
	}
	return &ServiceError{Engine: engine, Err: err}
}

func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

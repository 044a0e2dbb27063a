package scanner

import "fmt"

// DecodeError indicates that input bytes could not be interpreted as a valid
// pick image, or that a pixel's color was rejected by the decode rule.
// A scan that returns a DecodeError produced no partial result.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "pick image decode: " + e.Reason
}

func decodeErrorf(format string, args ...interface{}) *DecodeError {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}

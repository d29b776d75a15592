package tempest

import "fmt"

// ErrorKind categorizes a decode failure. Every failure the package
// returns is a *DecodeError carrying exactly one kind.
type ErrorKind int

const (
	// KindMalformed: the input is not a well-formed JSON object.
	KindMalformed ErrorKind = iota + 1
	// KindMissingDiscriminator: the envelope has no non-empty "type" field.
	KindMissingDiscriminator
	// KindMissingField: a required header or variant field is absent.
	KindMissingField
	// KindTypeMismatch: a present value has the wrong shape for its slot.
	KindTypeMismatch
	// KindArityTooSmall: an array payload is shorter than the variant's
	// required prefix.
	KindArityTooSmall
)

// String returns a stable lowercase label, suitable as a metric label value.
func (k ErrorKind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindMissingDiscriminator:
		return "missing_discriminator"
	case KindMissingField:
		return "missing_field"
	case KindTypeMismatch:
		return "type_mismatch"
	case KindArityTooSmall:
		return "arity_too_small"
	default:
		return "unknown"
	}
}

// DecodeError describes why an envelope could not be decoded. All
// failures are local and recoverable by the caller; the decoder never
// retries, never logs, and never returns a partial record alongside
// an error.
type DecodeError struct {
	Kind ErrorKind

	// Field is the header field or slot name involved, for
	// KindMissingField and KindTypeMismatch.
	Field string
	// Expected and Actual describe the shape conflict for KindTypeMismatch.
	Expected string
	Actual   string
	// Minimum and Length describe the arity violation for KindArityTooSmall.
	Minimum int
	Length  int

	cause error
}

func (e *DecodeError) Error() string {
	switch e.Kind {
	case KindMalformed:
		return fmt.Sprintf("malformed envelope: %v", e.cause)
	case KindMissingDiscriminator:
		return "envelope has no type discriminator"
	case KindMissingField:
		return fmt.Sprintf("missing required field %q", e.Field)
	case KindTypeMismatch:
		return fmt.Sprintf("field %q: expected %s, got %s", e.Field, e.Expected, e.Actual)
	case KindArityTooSmall:
		return fmt.Sprintf("array payload has %d elements, need at least %d", e.Length, e.Minimum)
	default:
		return "decode error"
	}
}

func (e *DecodeError) Unwrap() error { return e.cause }

func errMalformed(cause error) *DecodeError {
	return &DecodeError{Kind: KindMalformed, cause: cause}
}

func errMissingDiscriminator() *DecodeError {
	return &DecodeError{Kind: KindMissingDiscriminator}
}

func errMissingField(name string) *DecodeError {
	return &DecodeError{Kind: KindMissingField, Field: name}
}

func errTypeMismatch(name, expected, actual string) *DecodeError {
	return &DecodeError{Kind: KindTypeMismatch, Field: name, Expected: expected, Actual: actual}
}

func errArityTooSmall(minimum, length int) *DecodeError {
	return &DecodeError{Kind: KindArityTooSmall, Minimum: minimum, Length: length}
}

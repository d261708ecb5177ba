package convert

import "fmt"

// ErrorType categorizes conversion pipeline failures.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeValidation
	ErrorTypeConverterNotFound
	ErrorTypeConverterExecution
	ErrorTypeConversionTimeout
	ErrorTypeConverterOutput
	ErrorTypeExtraction
	ErrorTypeXMLGeneration
	ErrorTypeSchemaViolation
)

// String returns the wire name of the ErrorType.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeConverterNotFound:
		return "CONVERTER_NOT_FOUND"
	case ErrorTypeConverterExecution:
		return "CONVERTER_EXECUTION_ERROR"
	case ErrorTypeConversionTimeout:
		return "CONVERSION_TIMEOUT"
	case ErrorTypeConverterOutput:
		return "CONVERTER_OUTPUT_ERROR"
	case ErrorTypeExtraction:
		return "EXTRACTION_ERROR"
	case ErrorTypeXMLGeneration:
		return "XML_GENERATION_ERROR"
	case ErrorTypeSchemaViolation:
		return "SCHEMA_VIOLATION"
	default:
		return "UNKNOWN"
	}
}

// UserCorrectable reports whether the failure is something the uploader can
// fix, as opposed to an environment or tooling problem for the operator.
func (et ErrorType) UserCorrectable() bool {
	switch et {
	case ErrorTypeValidation:
		return true
	default:
		return false
	}
}

// ConvertError is a pipeline failure with its category and optional cause.
type ConvertError struct {
	Type     ErrorType
	Message  string
	FilePath string
	Cause    error
}

// Error implements the error interface.
func (e *ConvertError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *ConvertError) Unwrap() error {
	return e.Cause
}

// NewError creates a ConvertError without an underlying cause.
func NewError(errorType ErrorType, message string) *ConvertError {
	return &ConvertError{Type: errorType, Message: message}
}

// NewErrorf creates a ConvertError with a formatted message.
func NewErrorf(errorType ErrorType, format string, args ...any) *ConvertError {
	return &ConvertError{Type: errorType, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates a ConvertError wrapping an underlying cause.
func WrapError(errorType ErrorType, message string, cause error) *ConvertError {
	return &ConvertError{Type: errorType, Message: message, Cause: cause}
}

// WithFile attaches the input file path the error relates to.
func (e *ConvertError) WithFile(filePath string) *ConvertError {
	e.FilePath = filePath
	return e
}

package httputil

import (
	"context"
	"errors"
	"net/http"
)

// HTTPErrorInfo contains the HTTP status code and message for an error.
type HTTPErrorInfo struct {
	Status  int
	Message string
}

// ErrorMapping represents a single error to HTTP status/message mapping.
// When Format is set it builds the message from the concrete error instead of Message.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string
	Format  func(err error) string
}

func (m ErrorMapping) info(err error) HTTPErrorInfo {
	if m.Format != nil {
		return HTTPErrorInfo{Status: m.Status, Message: m.Format(err)}
	}
	return HTTPErrorInfo{Status: m.Status, Message: m.Message}
}

// ErrorMapper maps domain errors to HTTP status codes and messages.
// Mappings are checked in registration order with errors.Is.
type ErrorMapper struct {
	mappings       []ErrorMapping
	defaultStatus  int
	defaultMessage string
}

// NewErrorMapper creates a new ErrorMapper with default settings.
func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{
		mappings:       make([]ErrorMapping, 0),
		defaultStatus:  http.StatusInternalServerError,
		defaultMessage: "internal server error",
	}
}

// WithMapping adds a fixed-message error mapping to the mapper.
func (m *ErrorMapper) WithMapping(err error, status int, message string) *ErrorMapper {
	m.mappings = append(m.mappings, ErrorMapping{Error: err, Status: status, Message: message})
	return m
}

// WithFormattedMapping adds a mapping whose message is derived from the error.
func (m *ErrorMapper) WithFormattedMapping(err error, status int, format func(error) string) *ErrorMapper {
	m.mappings = append(m.mappings, ErrorMapping{Error: err, Status: status, Format: format})
	return m
}

// WithDefault sets the default status and message for unmatched errors.
func (m *ErrorMapper) WithDefault(status int, message string) *ErrorMapper {
	m.defaultStatus = status
	m.defaultMessage = message
	return m
}

// Map converts an error to HTTP status and message.
func (m *ErrorMapper) Map(err error) HTTPErrorInfo {
	if err == nil {
		return HTTPErrorInfo{Status: http.StatusOK, Message: ""}
	}

	for _, mapping := range m.mappings {
		if errors.Is(err, mapping.Error) {
			return mapping.info(err)
		}
	}

	// Context errors only apply when no domain mapping claimed the error.
	if errors.Is(err, context.DeadlineExceeded) {
		return HTTPErrorInfo{Status: http.StatusGatewayTimeout, Message: "request timeout"}
	}
	if errors.Is(err, context.Canceled) {
		return HTTPErrorInfo{Status: http.StatusServiceUnavailable, Message: "request cancelled"}
	}

	return HTTPErrorInfo{Status: m.defaultStatus, Message: m.defaultMessage}
}

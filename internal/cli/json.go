package cli

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"strings"

	"github.com/rileyhilliard/vitals/internal/agentapi"
	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/settings"
)

// Machine mode flag - when true, outputs JSON and suppresses human-friendly decorations
var machineMode bool

// MachineMode returns true if machine-readable output is enabled
func MachineMode() bool {
	return machineMode
}

// JSONEnvelope wraps command output in a consistent structure for machine parsing.
// All --json output should use this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

// Error codes for machine-readable output.
const (
	ErrCodeConfigNotFound   = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    = "CONFIG_INVALID"
	ErrCodeAgentUnreachable = "AGENT_UNREACHABLE"
	ErrCodeAgentTimeout     = "AGENT_TIMEOUT"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeBadResponse      = "BAD_RESPONSE"
	ErrCodeValidation       = "VALIDATION_FAILED"
	ErrCodeChannel          = "CHANNEL_FAILED"
	ErrCodeSSHConnection    = "SSH_CONNECTION_FAILED"
	ErrCodeUnknown          = "UNKNOWN"
)

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	env := JSONEnvelope{
		Success: true,
		Data:    data,
	}
	return writeJSONEnvelope(w, env)
}

// WriteJSONError writes an error response to the writer.
func WriteJSONError(w io.Writer, code, message, suggestion string, details interface{}) error {
	env := JSONEnvelope{
		Success: false,
		Error: &JSONError{
			Code:       code,
			Message:    message,
			Suggestion: suggestion,
			Details:    details,
		},
	}
	return writeJSONEnvelope(w, env)
}

// WriteJSONFromError converts a Go error to a JSON error response.
func WriteJSONFromError(w io.Writer, err error) error {
	env := JSONEnvelope{
		Success: false,
		Error:   ErrorToJSON(err),
	}
	return writeJSONEnvelope(w, env)
}

func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts a Go error to a JSONError with appropriate code mapping.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	var vErr *errors.Error
	if !stderrors.As(err, &vErr) {
		return &JSONError{
			Code:    ErrCodeUnknown,
			Message: err.Error(),
		}
	}

	out := &JSONError{
		Code:       mapErrorCode(err, vErr.Code, vErr.Message),
		Message:    vErr.Message,
		Suggestion: vErr.Suggestion,
	}

	// Field-level validation failures are worth surfacing to automation.
	var invalid *settings.ValidationError
	if stderrors.As(err, &invalid) {
		fields := make(map[string]string, len(invalid.Fields))
		for _, f := range invalid.Fields {
			fields[f.Field] = f.String()
		}
		out.Details = map[string]interface{}{"fields": fields}
	}

	var status *agentapi.StatusError
	if stderrors.As(err, &status) {
		out.Details = map[string]interface{}{"status": status.Code}
	}
	return out
}

// mapErrorCode maps internal error codes to machine-readable codes.
func mapErrorCode(err error, internalCode, message string) string {
	switch internalCode {
	case errors.ErrConfig:
		msgLower := strings.ToLower(message)
		if strings.Contains(msgLower, "not found") || strings.Contains(msgLower, "couldn't find") {
			return ErrCodeConfigNotFound
		}
		return ErrCodeConfigInvalid
	case errors.ErrFetch:
		switch {
		case agentapi.IsNotFound(err):
			return ErrCodeNotFound
		case agentapi.IsTimeout(err):
			return ErrCodeAgentTimeout
		}
		return ErrCodeAgentUnreachable
	case errors.ErrParse:
		return ErrCodeBadResponse
	case errors.ErrValidation:
		return ErrCodeValidation
	case errors.ErrChannel:
		return ErrCodeChannel
	case errors.ErrSSH:
		return ErrCodeSSHConnection
	}

	return ErrCodeUnknown
}

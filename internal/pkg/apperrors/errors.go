package apperrors

import (
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrWalletNotConnected   ErrorType = "WALLET_NOT_CONNECTED"
	ErrUnsupportedNetwork   ErrorType = "UNSUPPORTED_NETWORK"
	ErrConfigurationMissing ErrorType = "CONFIGURATION_MISSING"
	ErrInvalidInput         ErrorType = "INVALID_INPUT"
	ErrInsufficientFunds    ErrorType = "INSUFFICIENT_FUNDS"
	ErrSigningRejected      ErrorType = "SIGNING_REJECTED"
	ErrBackend              ErrorType = "BACKEND_ERROR"
	ErrConfirmationTimeout  ErrorType = "CONFIRMATION_TIMEOUT"
	ErrSessionBusy          ErrorType = "SESSION_BUSY"
	ErrInternal             ErrorType = "INTERNAL_ERROR"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewWalletNotConnected() *AppError {
	return New(ErrWalletNotConnected, "no signing key available", nil)
}

func NewUnsupportedNetwork(chainID int64) *AppError {
	return New(ErrUnsupportedNetwork, fmt.Sprintf("chain %d is not supported", chainID), nil)
}

func NewConfigurationMissing(what string, chainID int64) *AppError {
	return New(ErrConfigurationMissing, fmt.Sprintf("%s address not configured for chain %d", what, chainID), nil)
}

func NewInvalidInput(msg string) *AppError {
	return New(ErrInvalidInput, msg, nil)
}

func NewInsufficientFunds(msg string) *AppError {
	return New(ErrInsufficientFunds, msg, nil)
}

func NewSigningRejected(cause error) *AppError {
	return New(ErrSigningRejected, "signature request was rejected", cause)
}

func NewBackend(msg string, cause error) *AppError {
	return New(ErrBackend, msg, cause)
}

func NewConfirmationTimeout(msg string) *AppError {
	return New(ErrConfirmationTimeout, msg, nil)
}

func NewSessionBusy(msg string) *AppError {
	return New(ErrSessionBusy, msg, nil)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

// Is reports whether err is an AppError of the given type.
func Is(err error, t ErrorType) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == t
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrInvalidInput:
		return http.StatusBadRequest
	case ErrWalletNotConnected:
		return http.StatusUnauthorized
	case ErrSigningRejected:
		return http.StatusForbidden
	case ErrUnsupportedNetwork, ErrConfigurationMissing:
		return http.StatusPreconditionFailed
	case ErrInsufficientFunds:
		return http.StatusUnprocessableEntity
	case ErrSessionBusy:
		return http.StatusConflict
	case ErrBackend:
		return http.StatusBadGateway
	case ErrConfirmationTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrWalletNotConnected:
		return "Connect a wallet before trading."
	case ErrUnsupportedNetwork:
		return "Switch the wallet to a supported network."
	case ErrInsufficientFunds:
		return "Top up the collateral balance and retry."
	case ErrSigningRejected:
		return "Approve the signature request in the wallet."
	case ErrSessionBusy:
		return "Wait for the in-flight operation to finish."
	case ErrBackend:
		return "Check backend availability and retry."
	case ErrConfirmationTimeout:
		return "The chain may be congested. Retry the confirmation."
	default:
		return ""
	}
}

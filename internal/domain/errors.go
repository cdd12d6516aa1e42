package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	// ErrProgramNotFound signals that a referenced program id does not
	// exist in the catalog. Distinct from a successful empty match.
	ErrProgramNotFound = fmt.Errorf("program not found")
	// ErrCandidateNotFound signals that a referenced person id does not
	// exist in the catalog.
	ErrCandidateNotFound = fmt.Errorf("candidate not found")
	// ErrInvalidCriteria signals a criterion value outside its expected
	// domain. Raised at catalog-load time, never per-query.
	ErrInvalidCriteria = fmt.Errorf("invalid criteria")
	// ErrNoNameMatch signals that no catalog entry scored above the name
	// matcher's threshold (or contained the query substring).
	ErrNoNameMatch = fmt.Errorf("no name match")

	ErrToolNotFound   = fmt.Errorf("tool not found")
	ErrStateNotFound  = fmt.Errorf("task state not found")
	ErrStateDuplicate = fmt.Errorf("task state already exists")
	ErrCatalogLoad    = fmt.Errorf("failed to load catalog")
	ErrConfigLoad     = fmt.Errorf("failed to load configuration")

	// Provider errors, mapped from HTTP status codes by the LLM adapters.
	ErrRateLimit       = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid     = fmt.Errorf("authentication failed")
	ErrContextOverflow = fmt.Errorf("context window exceeded")
	ErrProviderError   = fmt.Errorf("provider error")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Matcher.EligibleCandidates")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsNotFound reports whether err is one of the catalog NotFound
// sentinels. Callers use it to distinguish an unknown id from a valid
// empty match set.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProgramNotFound) || errors.Is(err, ErrCandidateNotFound)
}

// IsRetryableError reports whether err is a transient provider error
// that may succeed on retry.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrProviderError)
}

// ErrorCode is a machine-parseable error category for monitoring.
type ErrorCode string

// Error codes. Every sentinel error maps to exactly one code.
const (
	CodeUnknown           ErrorCode = "UNKNOWN"
	CodeProgramNotFound   ErrorCode = "PROGRAM_NOT_FOUND"
	CodeCandidateNotFound ErrorCode = "CANDIDATE_NOT_FOUND"
	CodeInvalidCriteria   ErrorCode = "INVALID_CRITERIA"
	CodeNoNameMatch       ErrorCode = "NO_NAME_MATCH"
	CodeToolNotFound      ErrorCode = "TOOL_NOT_FOUND"
	CodeStateNotFound     ErrorCode = "STATE_NOT_FOUND"
	CodeStateDuplicate    ErrorCode = "STATE_DUPLICATE"
	CodeCatalogLoad       ErrorCode = "CATALOG_LOAD"
	CodeConfigLoad        ErrorCode = "CONFIG_LOAD"
	CodeRateLimit         ErrorCode = "RATE_LIMIT"
	CodeAuthInvalid       ErrorCode = "AUTH_INVALID"
	CodeContextOverflow   ErrorCode = "CONTEXT_OVERFLOW"
	CodeProviderError     ErrorCode = "PROVIDER_ERROR"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrProgramNotFound:   CodeProgramNotFound,
	ErrCandidateNotFound: CodeCandidateNotFound,
	ErrInvalidCriteria:   CodeInvalidCriteria,
	ErrNoNameMatch:       CodeNoNameMatch,
	ErrToolNotFound:      CodeToolNotFound,
	ErrStateNotFound:     CodeStateNotFound,
	ErrStateDuplicate:    CodeStateDuplicate,
	ErrCatalogLoad:       CodeCatalogLoad,
	ErrConfigLoad:        CodeConfigLoad,
	ErrRateLimit:         CodeRateLimit,
	ErrAuthInvalid:       CodeAuthInvalid,
	ErrContextOverflow:   CodeContextOverflow,
	ErrProviderError:     CodeProviderError,
}

// ErrorCodeOf returns the machine-parseable error code for the given
// error. It unwraps DomainError and uses errors.Is to match sentinels.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}

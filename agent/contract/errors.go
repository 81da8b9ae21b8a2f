package contract

import "errors"

var (
	ErrModelInvoke        = errors.New("model invoke failed")
	ErrSchemaViolation    = errors.New("model response violates schema")
	ErrPromptMissing      = errors.New("required prompt is missing")
	ErrValidation         = errors.New("validation failed")
	ErrProtocolViolation  = errors.New("oracle named an unknown worker")
	ErrStepBudgetExceeded = errors.New("router step budget exceeded")
	ErrWorkerFailure      = errors.New("worker failed")
)

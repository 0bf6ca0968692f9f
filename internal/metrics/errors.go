package metrics

import "codeberg.org/mutker/bard/internal/errors"

const (
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidAddr   = errors.ErrorCode("metrics_invalid_addr")
	ErrRegister      = errors.ErrInitMetrics
	ErrServe         = errors.ErrorCode("metrics_serve_failed")
	ErrShutdown      = errors.ErrShutdownFailed
)

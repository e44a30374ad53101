package outbound

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Operational log codes. Stable identifiers so log based alerting survives
// message rewording.
const (
	logCodeSendStart            = "OPS-SA-001"
	logCodeSendBatchUnsupported = "OPS-SA-002"
	logCodeSendInvalidConfig    = "OPS-SA-003"
	logCodeSendNoop             = "OPS-SA-004"
	logCodeSendNoValidMapping   = "OPS-SA-005"
	logCodeSendSkipFinal        = "OPS-SA-006"
	logCodeSendSuccess          = "OPS-SA-007"
	logCodeStatusStart          = "OPS-ST-001"
	logCodeStatusSuccess        = "OPS-ST-002"
	logCodeAuthCodeStart        = "OPS-AC-001"
	logCodeAuthCodeSuccess      = "OPS-AC-002"
	logCodeMetaStart            = "OPS-MS-001"
	logCodeMetaSuccess          = "OPS-MS-002"

	logCodeErrDescribeFailed = "ERR-SA-001"
	logCodeErrInsertFailed   = "ERR-SA-002"
	logCodeErrPersistFailed  = "ERR-SA-003"
	logCodeErrUnhandled      = "ERR-SA-004"
	logCodeErrStatusPut      = "ERR-ST-001"
	logCodeErrAuthCode       = "ERR-AC-001"
	logCodeErrMetaRetrieve   = "ERR-MS-001"
)

// NewLogger builds the connector's structured logger. Levels follow zap's
// names ("debug", "info", "warn", "error").
func NewLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

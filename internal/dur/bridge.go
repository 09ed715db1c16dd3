package dur

import (
	"context"
	"errors"
	"fmt"
)

// ErrLegacyUnavailable is returned by bridges that have no component behind
// them. RunLegacy reports it as an unconfigured bridge, not a bridge fault.
var ErrLegacyUnavailable = errors.New("dur: legacy bridge unavailable")

const legacyNotConfigured = "legacy bridge not configured"

// LegacyMethod names an operation of the legacy lookup component.
type LegacyMethod string

const (
	LegacyHistory     LegacyMethod = "CheckMediHistory"
	LegacyHistoryList LegacyMethod = "CheckMediHistoryList"
	LegacyDataList    LegacyMethod = "CheckMediDataList"
)

// LegacyBridge is the capability surface of the legacy lookup component. It
// is an alternative path to the same lookups and shares nothing with the
// broker protocol.
type LegacyBridge interface {
	LookupHistory(ctx context.Context, identifier string) (Result, error)
	LookupHistoryList(ctx context.Context, identifier string) (Result, error)
	LookupDataList(ctx context.Context, identifier string) (Result, error)
}

// RunLegacy invokes method on the configured bridge. Bridge faults become an
// ERROR result; this never returns an error.
func (s *Service) RunLegacy(ctx context.Context, method LegacyMethod, identifier string) Result {
	if s.legacy == nil {
		return failed(FailureBridge, legacyNotConfigured)
	}

	var (
		res Result
		err error
	)
	switch method {
	case LegacyHistory:
		res, err = s.legacy.LookupHistory(ctx, identifier)
	case LegacyHistoryList:
		res, err = s.legacy.LookupHistoryList(ctx, identifier)
	case LegacyDataList:
		res, err = s.legacy.LookupDataList(ctx, identifier)
	default:
		return failed(FailureInput, fmt.Sprintf("unknown legacy method %q", method))
	}
	if errors.Is(err, ErrLegacyUnavailable) {
		return failed(FailureBridge, legacyNotConfigured)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("method", string(method)).Msg("legacy bridge fault")
		return Result{
			ResultType: ResultError,
			Failure:    FailureBridge,
			Message:    fmt.Sprintf("legacy bridge error (%s): %v", method, err),
			DataList:   []string{},
		}
	}
	if res.DataList == nil {
		res.DataList = []string{}
	}
	return res
}

package dur

import (
	"context"
	"fmt"

	"github.com/danmuck/durctl/internal/protocol/packet"
)

// TestType is one of the harness scenarios.
type TestType string

const (
	TestLegacyHistory  TestType = "COM_History"
	TestLegacyList     TestType = "COM_List"
	TestLegacyDataList TestType = "COM_DataList"
	TestNormalB        TestType = "NORMAL_B"
	TestNormalS        TestType = "NORMAL_S"
	TestEmergencyB     TestType = "EMERG_B"
	TestEmergencyS     TestType = "EMERG_S"
)

// TestTypes lists every scenario in display order.
func TestTypes() []TestType {
	return []TestType{
		TestLegacyHistory, TestLegacyList, TestLegacyDataList,
		TestNormalB, TestNormalS, TestEmergencyB, TestEmergencyS,
	}
}

// RunTest dispatches one scenario. Emergency lookups never carry an auth code.
func (s *Service) RunTest(ctx context.Context, tt TestType, identifier, authCode string) Result {
	switch tt {
	case TestLegacyHistory:
		return s.RunLegacy(ctx, LegacyHistory, identifier)
	case TestLegacyList:
		return s.RunLegacy(ctx, LegacyHistoryList, identifier)
	case TestLegacyDataList:
		return s.RunLegacy(ctx, LegacyDataList, identifier)
	case TestNormalB:
		return s.RunLookup(ctx, identifier, authCode, packet.RequestNormal, packet.ModuleB)
	case TestNormalS:
		return s.RunLookup(ctx, identifier, authCode, packet.RequestNormal, packet.ModuleS)
	case TestEmergencyB:
		return s.RunLookup(ctx, identifier, "", packet.RequestEmergency, packet.ModuleB)
	case TestEmergencyS:
		return s.RunLookup(ctx, identifier, "", packet.RequestEmergency, packet.ModuleS)
	default:
		return failed(FailureInput, fmt.Sprintf("unknown test type %q", tt))
	}
}

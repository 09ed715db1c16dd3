package dur

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/danmuck/durctl/internal/broker"
	"github.com/danmuck/durctl/internal/protocol/codec"
	"github.com/danmuck/durctl/internal/protocol/packet"
	"github.com/danmuck/durctl/internal/testutil/testlog"
)

type stubBridge struct {
	calls []string
	res   Result
	err   error
}

func (b *stubBridge) LookupHistory(_ context.Context, id string) (Result, error) {
	b.calls = append(b.calls, "history:"+id)
	return b.res, b.err
}

func (b *stubBridge) LookupHistoryList(_ context.Context, id string) (Result, error) {
	b.calls = append(b.calls, "list:"+id)
	return b.res, b.err
}

func (b *stubBridge) LookupDataList(_ context.Context, id string) (Result, error) {
	b.calls = append(b.calls, "data:"+id)
	return b.res, b.err
}

func TestRunTestDispatchesLookups(t *testing.T) {
	testlog.Start(t)

	tests := []struct {
		tt     TestType
		code   packet.RequestCode
		module packet.ModuleType
		auth   string
	}{
		{TestNormalB, packet.RequestNormal, packet.ModuleB, "12345"},
		{TestNormalS, packet.RequestNormal, packet.ModuleS, "12345"},
		{TestEmergencyB, packet.RequestEmergency, packet.ModuleB, "     "},
		{TestEmergencyS, packet.RequestEmergency, packet.ModuleS, "     "},
	}
	for _, tt := range tests {
		ex := &stubExchanger{reply: broker.Reply{Body: "N"}}
		svc, err := NewService(ex, codec.Default())
		if err != nil {
			t.Fatalf("new service: %v", err)
		}
		res := svc.RunTest(context.Background(), tt.tt, "900101-1234567", "12345")
		if res.ResultType != ResultRejected {
			t.Fatalf("%s: unexpected result %+v", tt.tt, res)
		}
		if len(ex.packets) != 1 {
			t.Fatalf("%s: expected one packet, got %d", tt.tt, len(ex.packets))
		}
		req, err := packet.Parse(codec.Default(), ex.packets[0])
		if err != nil {
			t.Fatalf("%s: parse: %v", tt.tt, err)
		}
		if req.RequestCode != tt.code || req.ModuleType != tt.module || req.AuthCode != tt.auth {
			t.Fatalf("%s: unexpected request %+v", tt.tt, req)
		}
	}
}

func TestRunTestDispatchesLegacy(t *testing.T) {
	testlog.Start(t)

	bridge := &stubBridge{res: ClassifyLegacy("http://popup")}
	svc, err := NewService(&stubExchanger{}, codec.Default(), WithLegacyBridge(bridge))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	for _, tt := range []TestType{TestLegacyHistory, TestLegacyList, TestLegacyDataList} {
		res := svc.RunTest(context.Background(), tt, "9001011234567", "")
		if res.ResultType != ResultURL || !res.Success {
			t.Fatalf("%s: unexpected result %+v", tt, res)
		}
	}
	want := []string{"history:9001011234567", "list:9001011234567", "data:9001011234567"}
	if len(bridge.calls) != len(want) {
		t.Fatalf("unexpected calls: %v", bridge.calls)
	}
	for i := range want {
		if bridge.calls[i] != want[i] {
			t.Fatalf("call %d = %q, want %q", i, bridge.calls[i], want[i])
		}
	}
}

func TestRunLegacyFaults(t *testing.T) {
	testlog.Start(t)

	svc, err := NewService(&stubExchanger{}, codec.Default())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if res := svc.RunTest(context.Background(), TestLegacyHistory, "1", ""); res.Failure != FailureBridge {
		t.Fatalf("expected unconfigured bridge failure, got %+v", res)
	}

	unavailable := &stubBridge{err: fmt.Errorf("wrapped: %w", ErrLegacyUnavailable)}
	svc, err = NewService(&stubExchanger{}, codec.Default(), WithLegacyBridge(unavailable))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	res := svc.RunTest(context.Background(), TestLegacyList, "1", "")
	if res.Failure != FailureBridge || res.ResultType != "" || res.Success {
		t.Fatalf("unavailable bridge should report as unconfigured, got %+v", res)
	}
	if res.Message != "legacy bridge not configured" {
		t.Fatalf("unexpected message: %q", res.Message)
	}

	bridge := &stubBridge{err: errors.New("component missing")}
	svc, err = NewService(&stubExchanger{}, codec.Default(), WithLegacyBridge(bridge))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	res = svc.RunLegacy(context.Background(), LegacyDataList, "1")
	if res.ResultType != ResultError || res.Failure != FailureBridge || res.Success {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Message != "legacy bridge error (CheckMediDataList): component missing" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
}

func TestRunTestUnknownType(t *testing.T) {
	testlog.Start(t)

	svc, err := NewService(&stubExchanger{}, codec.Default())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	res := svc.RunTest(context.Background(), TestType("BOGUS"), "1", "")
	if res.Success || res.Failure != FailureInput {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(TestTypes()) != 7 {
		t.Fatalf("unexpected test type count: %d", len(TestTypes()))
	}
}

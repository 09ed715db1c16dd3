package legacy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/durctl/internal/broker"
	"github.com/danmuck/durctl/internal/dur"
	"github.com/danmuck/durctl/internal/protocol/codec"
	"github.com/danmuck/durctl/internal/testutil/testlog"
)

const helperEnv = "DURCTL_WANT_LEGACY_HELPER=1"

// TestHelperProcess stands in for the legacy component when re-executed by
// the bridge under test.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("DURCTL_WANT_LEGACY_HELPER") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "missing method")
		os.Exit(2)
	}
	method, rest := args[1], args[2:]
	switch method {
	case "CheckMediHistory":
		fmt.Printf("http://dur.example/popup?id=%s&inst=%s\n", rest[0], rest[1])
	case "CheckMediHistoryList":
		if rest[0] == "fail" {
			fmt.Fprintln(os.Stderr, "component not registered")
			os.Exit(3)
		}
		fmt.Print("")
	case "CheckMediDataList":
		fmt.Printf("%d:%s\r\n", len(rest), strings.Join(rest, ","))
	case "Sleep":
		time.Sleep(5 * time.Second)
	}
	os.Exit(0)
}

func helperBridge(t *testing.T, timeout time.Duration) *CommandBridge {
	t.Helper()
	b, err := NewCommandBridge(Config{
		Command: os.Args[0],
		Args:    []string{"-test.run=TestHelperProcess", "--"},
		Env:     []string{helperEnv},
		Timeout: timeout,
	})
	if err != nil {
		t.Fatalf("new bridge: %v", err)
	}
	return b
}

func TestCommandBridgeHistoryIsURL(t *testing.T) {
	testlog.Start(t)

	res, err := helperBridge(t, 0).LookupHistory(context.Background(), "9001011234567")
	if err != nil {
		t.Fatalf("lookup history: %v", err)
	}
	if res.ResultType != dur.ResultURL || !res.Success {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Content != "http://dur.example/popup?id=9001011234567&inst=10160044" {
		t.Fatalf("unexpected content: %q", res.Content)
	}
}

func TestCommandBridgeDataListArgumentShape(t *testing.T) {
	testlog.Start(t)

	res, err := helperBridge(t, 0).LookupDataList(context.Background(), "9001011234567")
	if err != nil {
		t.Fatalf("lookup data list: %v", err)
	}
	if res.ResultType != dur.ResultData {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Content != "5:,9001011234567,10160044,123456," {
		t.Fatalf("unexpected content: %q", res.Content)
	}
}

func TestCommandBridgeEmptyOutputIsNull(t *testing.T) {
	testlog.Start(t)

	res, err := helperBridge(t, 0).LookupHistoryList(context.Background(), "1")
	if err != nil {
		t.Fatalf("lookup history list: %v", err)
	}
	if res.ResultType != dur.ResultData || res.Content != "null" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestCommandBridgeFailureCarriesStderr(t *testing.T) {
	testlog.Start(t)

	_, err := helperBridge(t, 0).LookupHistoryList(context.Background(), "fail")
	if err == nil || !strings.Contains(err.Error(), "component not registered") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestCommandBridgeTimeout(t *testing.T) {
	testlog.Start(t)

	b := helperBridge(t, 100*time.Millisecond)
	_, err := b.invoke(context.Background(), dur.LegacyMethod("Sleep"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestNewWithoutCommandIsUnavailable(t *testing.T) {
	testlog.Start(t)

	b, err := New(Config{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := b.LookupHistory(context.Background(), "1"); !errors.Is(err, ErrBridgeUnavailable) {
		t.Fatalf("expected ErrBridgeUnavailable, got %v", err)
	}
	if _, err := New(Config{Command: "durctl-no-such-legacy-command"}); !errors.Is(err, ErrBridgeUnavailable) {
		t.Fatalf("expected ErrBridgeUnavailable for missing command, got %v", err)
	}
}

type nopExchanger struct{}

func (nopExchanger) Exchange(context.Context, []byte) (broker.Reply, error) {
	return broker.Reply{}, nil
}

func TestServiceReportsUnconfiguredBridge(t *testing.T) {
	testlog.Start(t)

	b, err := New(Config{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	svc, err := dur.NewService(nopExchanger{}, codec.Default(), dur.WithLegacyBridge(b))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	for _, tt := range []dur.TestType{dur.TestLegacyHistory, dur.TestLegacyList, dur.TestLegacyDataList} {
		res := svc.RunTest(context.Background(), tt, "900101-1234567", "")
		if res.Message != "legacy bridge not configured" || res.Failure != dur.FailureBridge || res.ResultType != "" {
			t.Fatalf("%s: unexpected result %+v", tt, res)
		}
	}
}

package dur

// ResultType is the classification of a broker or bridge reply.
type ResultType string

const (
	ResultURL      ResultType = "URL"
	ResultData     ResultType = "DATA"
	ResultError    ResultType = "ERROR"
	ResultRejected ResultType = "REJECTED"
)

// FailureKind names why an exchange produced no classifiable reply.
type FailureKind string

const (
	FailureNone           FailureKind = ""
	FailureConnectTimeout FailureKind = "connect_timeout"
	FailureNoResponse     FailureKind = "no_response"
	FailureTransport      FailureKind = "transport"
	FailureBridge         FailureKind = "bridge"
	FailureInput          FailureKind = "input"
)

// Result is the outcome of one lookup. Transport failures leave ResultType
// empty and set Failure; bridge faults set both ERROR and FailureBridge.
type Result struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	ResultType ResultType  `json:"resultType,omitempty"`
	Content    string      `json:"content,omitempty"`
	DataList   []string    `json:"dataList"`
	Failure    FailureKind `json:"failure,omitempty"`
	Truncated  bool        `json:"truncated,omitempty"`
}

// Outcome is a low-cardinality label for metrics and logs.
func (r Result) Outcome() string {
	if r.Failure != FailureNone {
		return string(r.Failure)
	}
	if r.ResultType == "" {
		return "unknown"
	}
	return string(r.ResultType)
}

func failed(kind FailureKind, msg string) Result {
	return Result{Success: false, Message: msg, Failure: kind, DataList: []string{}}
}

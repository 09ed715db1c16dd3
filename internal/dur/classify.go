package dur

import (
	"strings"

	"github.com/danmuck/durctl/internal/protocol/packet"
)

const (
	errorMarker = "오류"
	errorPrefix = "Error"
	dataSep     = " | "
)

var fieldSep = string(rune(packet.FS))

// Classify turns a decoded reply body into a Result. Rules apply in order and
// the first match wins: server error, popup URL, data record, rejection.
func Classify(body string) Result {
	if strings.Contains(body, errorMarker) || strings.HasPrefix(body, errorPrefix) {
		return Result{
			ResultType: ResultError,
			Message:    "server error: " + body,
			Content:    body,
			DataList:   []string{},
		}
	}

	fields := strings.Split(body, fieldSep)
	for _, f := range fields {
		if strings.Contains(f, "http") {
			return Result{
				Success:    true,
				ResultType: ResultURL,
				Message:    "popup URL received",
				Content:    strings.TrimSpace(f),
				DataList:   []string{},
			}
		}
	}

	if len(fields) > 4 && strings.TrimSpace(fields[0]) != "N" {
		values := dataValues(fields)
		return Result{
			Success:    true,
			ResultType: ResultData,
			Message:    "text data received",
			Content:    strings.Join(values, dataSep),
			DataList:   values,
		}
	}

	return Result{
		ResultType: ResultRejected,
		Message:    "lookup failed/rejected (response: " + body + ")",
		Content:    body,
		DataList:   []string{},
	}
}

// dataValues drops structural markers: one-character fields, "00" codes and
// the S/B module tags.
func dataValues(fields []string) []string {
	values := make([]string, 0, len(fields))
	for _, f := range fields {
		v := strings.TrimSpace(f)
		if len([]rune(v)) <= 1 || strings.HasPrefix(v, "00") || v == "S" || v == "B" {
			continue
		}
		values = append(values, v)
	}
	return values
}

// ClassifyLegacy classifies bridge output, which carries no field structure:
// anything mentioning "http" is a popup URL, everything else is data.
func ClassifyLegacy(out string) Result {
	if strings.Contains(out, "http") {
		return Result{Success: true, ResultType: ResultURL, Message: "popup URL returned", Content: out, DataList: []string{}}
	}
	return Result{Success: true, ResultType: ResultData, Message: "data received", Content: out, DataList: []string{}}
}

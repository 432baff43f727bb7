package trace

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// Event is one pause-point payload from the tracer. Its shape is a contract
// between the tracer tool and the frontend; this layer passes it through
// without inspecting fields.
type Event = json.RawMessage

// pythonFailureRe matches the closing line of an interpreter traceback, e.g.
// "ValueError: bad input" or "module.CustomException: boom".
var pythonFailureRe = regexp.MustCompile(`^[A-Za-z_][\w.]*(Error|Exception)\b`)

// looksLikeFailureReport decides whether a non-JSON line is the tracer
// surfacing its own crash rather than a protocol bug on our side.
func looksLikeFailureReport(line string) bool {
	if strings.HasPrefix(line, "Traceback") {
		return true
	}
	return pythonFailureRe.MatchString(line)
}

// DecodeEvent turns one raw line from the event channel into an Event or a
// typed failure. Trailing whitespace is trimmed first; the line's newline
// terminator is never part of the event.
func DecodeEvent(line []byte, flow FlowIdentity, stopLine int) (Event, error) {
	trimmed := bytes.TrimRight(line, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, &EmptyEventError{EntryID: flow.EntryID, StopLine: stopLine}
	}

	var ev Event
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		text := string(trimmed)
		if looksLikeFailureReport(text) {
			return nil, &ProcessReportedError{EntryID: flow.EntryID, StopLine: stopLine, Text: text}
		}
		return nil, &MalformedEventError{EntryID: flow.EntryID, StopLine: stopLine, Line: text, Err: err}
	}
	return ev, nil
}

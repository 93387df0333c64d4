package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// ReservedPrefix namespaces the variables the bridge injects.
const ReservedPrefix = "_WRAPPER_"

// Reserved variable names.
const (
	MethodKey       = ReservedPrefix + "HTTP_METHOD"
	BodyKey         = ReservedPrefix + "JSON_BODY"
	ErrorKey        = ReservedPrefix + "ERROR"
	ErrorCodeKey    = ReservedPrefix + "ERROR_CODE"
	WorkflowNameKey = ReservedPrefix + "WORKFLOW_NAME"
)

// CallerKey is the query parameter naming the calling user.
const CallerKey = "userid"

// Params are the process variables gathered from one HTTP call.
type Params map[string]any

// GatherParams collects the first value of every query parameter (blank
// values included), the raw JSON body under BodyKey when there is one, and
// method under MethodKey.
func GatherParams(query url.Values, method string, body []byte) (Params, error) {
	params := make(Params, len(query)+2)

	for key, values := range query {
		if strings.HasPrefix(key, ReservedPrefix) {
			return nil, fmt.Errorf("%w: %q", ErrReservedKey, key)
		}
		value := ""
		if len(values) > 0 {
			value = values[0]
		}
		params[key] = value
	}

	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 {
		var compact bytes.Buffer
		if err := json.Compact(&compact, trimmed); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		params[BodyKey] = compact.String()
	}

	params[MethodKey] = method
	return params, nil
}

// Caller returns the calling user named in params, or "".
func (p Params) Caller() string {
	s, _ := p[CallerKey].(string)
	return s
}

// strip removes from result every key of p and every reserved key.
func (p Params) strip(result map[string]any) map[string]any {
	out := make(map[string]any, len(result))
	for key, value := range result {
		if _, sent := p[key]; sent {
			continue
		}
		if strings.HasPrefix(key, ReservedPrefix) {
			continue
		}
		out[key] = value
	}
	return out
}

package bridge

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
)

// FormFields decodes a form submission. JSON bodies must hold an object;
// url-encoded bodies contribute the first value of each field.
func FormFields(contentType string, body []byte) (map[string]any, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMediaType, contentType)
	}

	switch mediaType {
	case "application/json":
		fields := map[string]any{}
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		return fields, nil

	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		fields := make(map[string]any, len(values))
		for key, v := range values {
			if len(v) > 0 {
				fields[key] = v[0]
			}
		}
		return fields, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMediaType, mediaType)
	}
}

// formVariables wraps every field as {"value": v}, the shape form-driven
// processes read.
func formVariables(fields map[string]any) map[string]any {
	vars := make(map[string]any, len(fields))
	for key, value := range fields {
		vars[key] = map[string]any{"value": value}
	}
	return vars
}

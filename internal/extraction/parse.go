package extraction

import (
	"encoding/json"
	"errors"
	"strings"
)

// extractJSONObject strips markdown fences and surrounding chatter from the
// model's text and returns just the JSON object. The schema request should
// make this unnecessary, but models occasionally wrap output anyway.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", errors.New("no JSON object found in response")
	}
	return text[start : end+1], nil
}

// parseReceiptJSON parses the model's response for a full receipt
// extraction. A failure is reported as ErrKindInvalidModelOutput with the
// raw text preserved for the caller.
func parseReceiptJSON(text string) (*ReceiptFields, error) {
	obj, err := extractJSONObject(text)
	if err != nil {
		return nil, &Error{Kind: ErrKindInvalidModelOutput, RawText: text, Err: err}
	}

	var fields ReceiptFields
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return nil, &Error{Kind: ErrKindInvalidModelOutput, RawText: text, Err: err}
	}

	fields.Datetime = strings.TrimSpace(fields.Datetime)
	fields.StoreBrand = strings.TrimSpace(fields.StoreBrand)
	fields.StoreAddress = strings.TrimSpace(fields.StoreAddress)
	return &fields, nil
}

// parseOdometerJSON parses the model's response for an odometer-only
// extraction.
func parseOdometerJSON(text string) (*OdometerFields, error) {
	obj, err := extractJSONObject(text)
	if err != nil {
		return nil, &Error{Kind: ErrKindInvalidModelOutput, RawText: text, Err: err}
	}

	var fields OdometerFields
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return nil, &Error{Kind: ErrKindInvalidModelOutput, RawText: text, Err: err}
	}
	return &fields, nil
}

package tracker

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"whereis/internal/domain"
)

// envelope is the provider's response wrapper. Data is kept raw because the
// record may arrive as an object, an array of objects, or null. Error is
// only decoded for unsuccessful responses.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

type providerError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *providerError) Error() string {
	return fmt.Sprintf("code %d: %s", e.Code, e.Message)
}

var errNoRecord = errors.New("no position record")

func (c *Client) classify(assetID string, body []byte) domain.Outcome {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.Unavailable(fmt.Errorf("%w: %v", ErrMalformed, err))
	}

	if !env.Success {
		return c.classifyFailure(env.Error)
	}

	rec, err := firstRecord(env.Data)
	if err != nil {
		return domain.NoData(err)
	}

	lat, okLat := number(rec["lat"])
	lon, okLon := number(rec["lon"])
	if !okLat || !okLon {
		return domain.NoData(fmt.Errorf("%w: missing or non-numeric coordinates", ErrMalformed))
	}

	fixTime, _ := rec["fix_time"].(string)
	pos, err := domain.NewPosition(assetID, lat, lon, fixTime, c.now())
	if err != nil {
		return domain.NoData(err)
	}
	return domain.OK(pos)
}

func (c *Client) classifyFailure(raw json.RawMessage) domain.Outcome {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return domain.Unavailable(fmt.Errorf("%w: unsuccessful response without error", ErrProviderError))
	}

	var pe providerError
	if err := json.Unmarshal(raw, &pe); err != nil {
		return domain.Unavailable(fmt.Errorf("%w: undecodable error object: %v", ErrProviderError, err))
	}
	err := fmt.Errorf("%w: %v", ErrProviderError, &pe)
	if pe.Code == c.rateLimitCode {
		return domain.RateLimited(err)
	}
	return domain.Unavailable(err)
}

// firstRecord extracts the record object from data, taking the first element
// when data is an array.
func firstRecord(data json.RawMessage) (map[string]any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, errNoRecord
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return nil, errNoRecord
		}
		v = arr[0]
	}
	rec, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: record is %T", ErrMalformed, v)
	}
	return rec, nil
}

func number(v any) (float64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

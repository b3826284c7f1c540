package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/conduit-labs/conduit/plugin"
)

// Do executes a call and decodes the response payload into T. A nil body
// sends no payload; any other body is JSON-encoded. Typed service methods
// are thin wrappers over this helper.
func Do[T any](ctx context.Context, p *Protocol, method plugin.Method, path string, body any, query url.Values) (T, error) {
	var out T

	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return out, fmt.Errorf("encode request body: %w", err)
		}
	}

	res, err := p.Execute(ctx, method, path, raw, query)
	if err != nil {
		return out, err
	}
	if len(res.Data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(res.Data, &out); err != nil {
		return out, fmt.Errorf("decode response body: %w", err)
	}
	return out, nil
}

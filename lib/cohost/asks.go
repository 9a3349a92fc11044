package cohost

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type askList struct {
	Asks []Ask `json:"asks"`
}

// ListAsks returns the pending asks in the project's inbox.
func (c *Client) ListAsks(ctx context.Context, handle string) ([]Ask, error) {
	ctx, span := tracer.Start(ctx, "client:ListAsks")
	defer span.End()

	input := fmt.Sprintf(`{"0":{"projectHandle":%q}}`, handle)
	query := url.Values{}
	query.Set("batch", "1")
	query.Set("input", input)

	res, err := c.Execute(ctx, http.MethodGet, "/api/v1/trpc/asks.listPending?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	list, err := decodeBatchSingle[askList](res.Body())
	if err != nil {
		return nil, err
	}
	return list.Asks, nil
}

// RejectAsk discards an ask from the inbox.
func (c *Client) RejectAsk(ctx context.Context, askID string) error {
	ctx, span := tracer.Start(ctx, "client:RejectAsk")
	defer span.End()

	body := map[string]any{
		"0": map[string]any{"askId": askID},
	}
	_, err := c.Execute(ctx, http.MethodPost, "/api/v1/trpc/asks.reject?batch=1", body)
	return err
}

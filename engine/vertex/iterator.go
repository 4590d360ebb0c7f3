package vertex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hupe1980/agentgate/engine"
)

// eventIterator walks a session's event log page by page, lazily. Items stay
// raw mappings; normalization is the caller's decision so skipped items are
// never converted.
type eventIterator struct {
	c         *Client
	listURL   string
	pageToken string
	started   bool
	buf       []map[string]any
}

// Next returns the next raw event in append order, or engine.Done.
func (it *eventIterator) Next(ctx context.Context) (any, error) {
	for len(it.buf) == 0 {
		if it.started && it.pageToken == "" {
			return nil, engine.Done
		}
		if err := it.fetch(ctx); err != nil {
			return nil, err
		}
	}
	ev := it.buf[0]
	it.buf = it.buf[1:]
	return ev, nil
}

func (it *eventIterator) fetch(ctx context.Context) error {
	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(listEventsPageSize))
	if it.pageToken != "" {
		q.Set("pageToken", it.pageToken)
	}
	data, err := it.c.do(ctx, http.MethodGet, it.listURL+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	var payload struct {
		SessionEvents []map[string]any `json:"sessionEvents"`
		NextPageToken string           `json:"nextPageToken"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode event list: %w", err)
	}
	it.started = true
	it.pageToken = payload.NextPageToken
	it.buf = payload.SessionEvents
	if len(it.buf) == 0 && it.pageToken == "" {
		return nil
	}
	return nil
}

package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const xTextLimit = 280

type xAdapter struct {
	api apiClient
}

func newXAdapter(client *http.Client, baseURL string, _ *Credential) Adapter {
	return &xAdapter{api: apiClient{platform: X, http: client, baseURL: baseURL}}
}

func (a *xAdapter) Platform() string { return X }

// Publish posts the text with media URLs appended as links.
func (a *xAdapter) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	text := composeText(req, xTextLimit)
	if len(req.Media) > 0 {
		links := " " + strings.Join(req.Media, " ")
		if room := xTextLimit - utf8.RuneCountInString(links); room > 1 {
			text = strings.TrimSpace(composeText(req, room) + links)
		}
	}

	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := a.api.do(ctx, http.MethodPost, "/2/tweets", map[string]any{"text": text}, &resp); err != nil {
		return nil, err
	}
	return &PublishResult{
		Success:   true,
		PostID:    resp.Data.ID,
		Permalink: "https://x.com/i/web/status/" + resp.Data.ID,
	}, nil
}

func (a *xAdapter) Update(context.Context, string, PublishRequest) (*PublishResult, error) {
	return nil, fmt.Errorf("%w: x posts cannot be edited through the api", ErrNotSupported)
}

func (a *xAdapter) Delete(ctx context.Context, externalID string) (bool, error) {
	var resp struct {
		Data struct {
			Deleted bool `json:"deleted"`
		} `json:"data"`
	}
	err := a.api.do(ctx, http.MethodDelete, "/2/tweets/"+url.PathEscape(externalID), nil, &resp)
	if errors.Is(err, ErrPostNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return resp.Data.Deleted, nil
}

func (a *xAdapter) Metrics(ctx context.Context, externalID string) (*Metrics, error) {
	var resp struct {
		Data struct {
			PublicMetrics struct {
				RetweetCount    int64 `json:"retweet_count"`
				ReplyCount      int64 `json:"reply_count"`
				LikeCount       int64 `json:"like_count"`
				QuoteCount      int64 `json:"quote_count"`
				ImpressionCount int64 `json:"impression_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}

	q := url.Values{"tweet.fields": {"public_metrics"}}
	if err := a.api.do(ctx, http.MethodGet, "/2/tweets/"+url.PathEscape(externalID)+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	m := resp.Data.PublicMetrics
	return &Metrics{
		Likes:       m.LikeCount,
		Comments:    m.ReplyCount,
		Shares:      m.RetweetCount + m.QuoteCount,
		Impressions: m.ImpressionCount,
		FetchedAt:   time.Now(),
	}, nil
}

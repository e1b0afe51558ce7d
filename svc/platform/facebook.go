package platform

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"
)

type facebookAdapter struct {
	api    apiClient
	pageID string
}

func newFacebookAdapter(client *http.Client, baseURL string, cred *Credential) Adapter {
	page := cred.AccountID
	if page == "" {
		page = "me"
	}
	return &facebookAdapter{
		api:    apiClient{platform: Facebook, http: client, baseURL: baseURL},
		pageID: page,
	}
}

func (a *facebookAdapter) Platform() string { return Facebook }

func (a *facebookAdapter) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	text := composeText(req, 0)

	var resp struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	var err error
	if len(req.Media) > 0 {
		err = a.api.do(ctx, http.MethodPost, "/"+url.PathEscape(a.pageID)+"/photos", map[string]any{
			"url":     req.Media[0],
			"caption": text,
		}, &resp)
	} else {
		err = a.api.do(ctx, http.MethodPost, "/"+url.PathEscape(a.pageID)+"/feed", map[string]any{
			"message": text,
		}, &resp)
	}
	if err != nil {
		return nil, err
	}

	id := resp.PostID
	if id == "" {
		id = resp.ID
	}
	return &PublishResult{
		Success:   true,
		PostID:    id,
		Permalink: "https://www.facebook.com/" + id,
	}, nil
}

func (a *facebookAdapter) Update(ctx context.Context, externalID string, req PublishRequest) (*PublishResult, error) {
	var resp struct {
		Success bool `json:"success"`
	}
	if err := a.api.do(ctx, http.MethodPost, "/"+url.PathEscape(externalID), map[string]any{
		"message": composeText(req, 0),
	}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return &PublishResult{PostID: externalID, Error: "facebook did not apply the update"}, nil
	}
	return &PublishResult{Success: true, PostID: externalID, Permalink: "https://www.facebook.com/" + externalID}, nil
}

func (a *facebookAdapter) Delete(ctx context.Context, externalID string) (bool, error) {
	var resp struct {
		Success bool `json:"success"`
	}
	err := a.api.do(ctx, http.MethodDelete, "/"+url.PathEscape(externalID), nil, &resp)
	if errors.Is(err, ErrPostNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return resp.Success, nil
}

func (a *facebookAdapter) Metrics(ctx context.Context, externalID string) (*Metrics, error) {
	type summary struct {
		Summary struct {
			TotalCount int64 `json:"total_count"`
		} `json:"summary"`
	}
	var resp struct {
		Reactions summary `json:"reactions"`
		Comments  summary `json:"comments"`
		Shares    struct {
			Count int64 `json:"count"`
		} `json:"shares"`
	}

	q := url.Values{"fields": {"reactions.summary(total_count),comments.summary(total_count),shares"}}
	if err := a.api.do(ctx, http.MethodGet, "/"+url.PathEscape(externalID)+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &Metrics{
		Likes:     resp.Reactions.Summary.TotalCount,
		Comments:  resp.Comments.Summary.TotalCount,
		Shares:    resp.Shares.Count,
		FetchedAt: time.Now(),
	}, nil
}

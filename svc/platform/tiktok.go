package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

const tiktokTitleLimit = 90

var videoExtensions = map[string]bool{".mp4": true, ".mov": true, ".webm": true}

type tiktokAdapter struct {
	api apiClient
}

func newTikTokAdapter(client *http.Client, baseURL string, _ *Credential) Adapter {
	return &tiktokAdapter{api: apiClient{platform: TikTok, http: client, baseURL: baseURL}}
}

type tiktokError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	LogID   string `json:"log_id"`
}

func (e tiktokError) err() error {
	if e.Code == "" || e.Code == "ok" {
		return nil
	}
	return fmt.Errorf("%w: tiktok %s: %s", ErrRejected, e.Code, e.Message)
}

func (a *tiktokAdapter) Platform() string { return TikTok }

// Publish posts photos or a single video pulled from the media URLs.
// TikTok cannot post text alone.
func (a *tiktokAdapter) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if len(req.Media) == 0 {
		return nil, fmt.Errorf("%w: tiktok posts need at least one media url", ErrInvalidRequest)
	}

	title := composeText(PublishRequest{Title: req.Title}, tiktokTitleLimit)
	description := composeText(PublishRequest{Body: req.Body, Hashtags: req.Hashtags, Mentions: req.Mentions}, 4000)

	var (
		endpoint string
		payload  map[string]any
	)
	if isVideo(req.Media[0]) {
		endpoint = "/v2/post/publish/video/init/"
		payload = map[string]any{
			"post_info": map[string]any{
				"title":         strings.TrimSpace(title + "\n\n" + description),
				"privacy_level": "PUBLIC_TO_EVERYONE",
			},
			"source_info": map[string]any{
				"source":    "PULL_FROM_URL",
				"video_url": req.Media[0],
			},
		}
	} else {
		endpoint = "/v2/post/publish/content/init/"
		payload = map[string]any{
			"post_info": map[string]any{
				"title":         title,
				"description":   description,
				"privacy_level": "PUBLIC_TO_EVERYONE",
			},
			"source_info": map[string]any{
				"source":            "PULL_FROM_URL",
				"photo_cover_index": 0,
				"photo_images":      req.Media,
			},
			"post_mode":  "DIRECT_POST",
			"media_type": "PHOTO",
		}
	}

	var resp struct {
		Data struct {
			PublishID string `json:"publish_id"`
		} `json:"data"`
		Error tiktokError `json:"error"`
	}
	if err := a.api.do(ctx, http.MethodPost, endpoint, payload, &resp); err != nil {
		return nil, err
	}
	if err := resp.Error.err(); err != nil {
		return nil, err
	}
	return &PublishResult{Success: true, PostID: resp.Data.PublishID}, nil
}

func (a *tiktokAdapter) Update(context.Context, string, PublishRequest) (*PublishResult, error) {
	return nil, fmt.Errorf("%w: tiktok posts cannot be edited", ErrNotSupported)
}

func (a *tiktokAdapter) Delete(context.Context, string) (bool, error) {
	return false, fmt.Errorf("%w: tiktok posts cannot be deleted through the api", ErrNotSupported)
}

func (a *tiktokAdapter) Metrics(ctx context.Context, externalID string) (*Metrics, error) {
	var resp struct {
		Data struct {
			Videos []struct {
				ID           string `json:"id"`
				LikeCount    int64  `json:"like_count"`
				CommentCount int64  `json:"comment_count"`
				ShareCount   int64  `json:"share_count"`
				ViewCount    int64  `json:"view_count"`
			} `json:"videos"`
		} `json:"data"`
		Error tiktokError `json:"error"`
	}

	q := url.Values{"fields": {"id,like_count,comment_count,share_count,view_count"}}
	err := a.api.do(ctx, http.MethodPost, "/v2/video/query/?"+q.Encode(), map[string]any{
		"filters": map[string]any{"video_ids": []string{externalID}},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if err := resp.Error.err(); err != nil {
		return nil, err
	}
	if len(resp.Data.Videos) == 0 {
		return nil, fmt.Errorf("%w: tiktok video %q", ErrPostNotFound, externalID)
	}

	v := resp.Data.Videos[0]
	return &Metrics{
		Likes:     v.LikeCount,
		Comments:  v.CommentCount,
		Shares:    v.ShareCount,
		Views:     v.ViewCount,
		FetchedAt: time.Now(),
	}, nil
}

func isVideo(mediaURL string) bool {
	u, err := url.Parse(mediaURL)
	if err != nil {
		return false
	}
	return videoExtensions[strings.ToLower(path.Ext(u.Path))]
}

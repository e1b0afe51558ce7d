package post_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/shopflow/svc/post"
)

func TestMergePlatforms(t *testing.T) {
	t.Parallel()

	now := time.Now()
	current := []post.PlatformMetadata{
		{Platform: "facebook", Status: post.StatusScheduled},
		{Platform: "tiktok", Status: post.StatusScheduled},
	}
	fb := post.PlatformMetadata{Platform: "facebook", Status: post.StatusPublished, PostID: "fb_1", PublishedAt: &now}
	tt := post.PlatformMetadata{Platform: "tiktok", Status: post.StatusFailed, Error: "boom"}
	x := post.PlatformMetadata{Platform: "x", Status: post.StatusPublished, PostID: "x_1"}

	a := post.MergePlatforms(current, []post.PlatformMetadata{fb, tt, x})
	b := post.MergePlatforms(current, []post.PlatformMetadata{x, tt, fb})

	assert.Equal(t, []post.PlatformMetadata{fb, tt, x}, a)
	assert.ElementsMatch(t, a, b)
	assert.Equal(t, post.StatusScheduled, current[0].Status, "input must not be modified")
}

func TestWithStatus(t *testing.T) {
	t.Parallel()

	now := time.Now()
	in := []post.PlatformMetadata{
		{Platform: "facebook", Status: post.StatusFailed, Error: "expired token"},
		{Platform: "tiktok", Status: post.StatusPublished, PostID: "tt_1", PublishedAt: &now},
		{Platform: "x", Status: post.StatusDraft},
	}

	out := post.WithStatus(in, post.StatusScheduled)
	assert.Equal(t, []post.PlatformMetadata{
		{Platform: "facebook", Status: post.StatusScheduled},
		in[1],
		{Platform: "x", Status: post.StatusScheduled},
	}, out)
}

func TestPost_Platform(t *testing.T) {
	t.Parallel()

	p := &post.Post{Platforms: []post.PlatformMetadata{{Platform: "x", Status: post.StatusDraft}}}

	m, ok := p.Platform("x")
	assert.True(t, ok)
	assert.Equal(t, post.StatusDraft, m.Status)

	_, ok = p.Platform("facebook")
	assert.False(t, ok)
}

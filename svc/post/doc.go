// Package post holds the post entity and its per-platform publication state.
//
// A post targets several platforms and each entry in Platforms moves on its
// own: draft, scheduled, then published or failed. Partial success is a
// normal outcome. MergePlatforms combines results by platform name so
// concurrent results can be applied in any order.
package post

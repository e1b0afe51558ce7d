package platform

import (
	"strings"
	"unicode/utf8"
)

// composeText renders the post as plain text. limit caps the result in
// runes; zero means unlimited.
func composeText(req PublishRequest, limit int) string {
	var paragraphs []string
	if t := strings.TrimSpace(req.Title); t != "" {
		paragraphs = append(paragraphs, t)
	}
	if b := strings.TrimSpace(req.Body); b != "" {
		paragraphs = append(paragraphs, b)
	}

	var tags []string
	for _, m := range req.Mentions {
		if m = strings.TrimPrefix(strings.TrimSpace(m), "@"); m != "" {
			tags = append(tags, "@"+m)
		}
	}
	for _, h := range req.Hashtags {
		if h = strings.TrimPrefix(strings.TrimSpace(h), "#"); h != "" {
			tags = append(tags, "#"+h)
		}
	}
	if len(tags) > 0 {
		paragraphs = append(paragraphs, strings.Join(tags, " "))
	}

	text := strings.Join(paragraphs, "\n\n")
	if limit > 0 && utf8.RuneCountInString(text) > limit {
		runes := []rune(text)
		text = string(runes[:limit-1]) + "…"
	}
	return text
}

func validateRequest(req PublishRequest) error {
	if strings.TrimSpace(req.Title) == "" && strings.TrimSpace(req.Body) == "" && len(req.Media) == 0 {
		return ErrInvalidRequest
	}
	return nil
}

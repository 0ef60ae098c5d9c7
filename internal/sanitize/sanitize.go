package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richPolicy  = bluemonday.UGCPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

// HTML keeps user-generated formatting (paragraphs, links, images) and drops scripts.
func HTML(input string) string {
	return strings.TrimSpace(richPolicy.Sanitize(input))
}

// Text strips every tag.
func Text(input string) string {
	return strings.TrimSpace(plainPolicy.Sanitize(input))
}

// TrimPtr trims an optional plain value such as a URL.
func TrimPtr(input *string) *string {
	if input == nil {
		return nil
	}
	out := strings.TrimSpace(*input)
	return &out
}

// TextPtr sanitizes an optional field in place.
func TextPtr(input *string) *string {
	if input == nil {
		return nil
	}
	out := Text(*input)
	return &out
}

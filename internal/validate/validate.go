package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// Text field length limits, shared with the page-side maxlength attributes.
const (
	MaxSubmitterNameLength = 20
	MaxVideoURLLength      = 500
)

var (
	// Matches the 11-character video ID in every common YouTube URL shape:
	// watch, embed, v, shorts and the youtu.be short form.
	youtubeURLPattern = regexp.MustCompile(`(?:youtube\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?|shorts)/|.*[?&]v=)|youtu\.be/)([A-Za-z0-9_-]{11})`)
	youtubeIDPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// YouTubeID extracts the video ID from a locator string. A raw 11-character
// ID is accepted as-is. ok is false when the reference is not recognizable.
func YouTubeID(reference string) (id string, ok bool) {
	reference = strings.TrimSpace(reference)
	if youtubeIDPattern.MatchString(reference) {
		return reference, true
	}
	if m := youtubeURLPattern.FindStringSubmatch(reference); m != nil {
		return m[1], true
	}
	return "", false
}

// ThumbnailURL returns the public preview image for a video ID.
func ThumbnailURL(id string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/mqdefault.jpg", id)
}

func checkLen(value string, max int, field string) string {
	if len(value) > max {
		return fmt.Sprintf("%s must be %d characters or fewer", field, max)
	}
	return ""
}

func SubmitterName(s string) string { return checkLen(s, MaxSubmitterNameLength, "name") }
func VideoURL(s string) string      { return checkLen(s, MaxVideoURLLength, "video link") }

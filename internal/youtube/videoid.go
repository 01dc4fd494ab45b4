package youtube

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/errors"
)

// Matches watch?v=, youtu.be/, embed/, v/, e/ and /<segment>/<segment>/
// style links. The capture is the 11-character video id.
var videoIDPattern = regexp.MustCompile(
	`(?:https?://)?(?:www\.)?(?:youtube\.com/(?:[^/\n\s]+/\S+/|(?:v|e(?:mbed)?)/|\S*?[?&]v=)|youtu\.be/)([a-zA-Z0-9_-]{11})`,
)

// ExtractVideoID returns the video id embedded in a YouTube URL.
func ExtractVideoID(url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", fmt.Errorf("%w: url is empty", apperrors.ErrInvalidVideoURL)
	}
	m := videoIDPattern.FindStringSubmatch(url)
	if m == nil {
		return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidVideoURL, url)
	}
	return m[1], nil
}

package youtube

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/errors"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtube.com/watch?feature=share&v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"http://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"youtu.be/dQw4w9WgXcQ?t=42", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/e/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/user/someone/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"  www.youtube.com/watch?v=a_b-c1234_Z  ", "a_b-c1234_Z"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := ExtractVideoID(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractVideoIDRejects(t *testing.T) {
	for _, url := range []string{
		"",
		"not a url",
		"https://vimeo.com/123456789",
		"https://www.youtube.com/watch?v=short",
		"https://www.youtube.com/",
	} {
		_, err := ExtractVideoID(url)
		assert.ErrorIs(t, err, apperrors.ErrInvalidVideoURL, url)
	}
}

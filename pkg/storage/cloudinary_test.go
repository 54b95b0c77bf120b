package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPublicID(t *testing.T) {
	cases := map[string]string{
		"https://res.cloudinary.com/demo/image/upload/v123456789/alumni/profile_pics/sample.webp": "alumni/profile_pics/sample",
		"https://res.cloudinary.com/demo/image/upload/alumni/sample.jpg":                          "alumni/sample",
		"https://res.cloudinary.com/demo/image/upload/videos/clip.png":                            "videos/clip",
		"https://example.com/no-upload-segment/sample.jpg":                                        "",
		"https://res.cloudinary.com/demo/image/upload/":                                           "",
	}

	for in, want := range cases {
		assert.Equal(t, want, ExtractPublicID(in), in)
	}
}

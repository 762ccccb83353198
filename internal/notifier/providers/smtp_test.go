package providers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage(t *testing.T) {
	msg := buildMessage(
		"promopost@propline.example",
		"ops@propline.example",
		"Promotion run - 2 published - Aug 28",
		"promopost-abc123",
		"plain summary",
		"<html>summary</html>",
	)

	assert.True(t, strings.HasPrefix(msg, "From: promopost@propline.example\r\n"))
	assert.Contains(t, msg, "To: ops@propline.example\r\n")
	assert.Contains(t, msg, "Subject: Promotion run - 2 published - Aug 28\r\n")
	assert.Contains(t, msg, `Content-Type: multipart/alternative; boundary="promopost-abc123"`)

	// Plain part precedes the HTML part so clients prefer HTML.
	plainAt := strings.Index(msg, "Content-Type: text/plain")
	htmlAt := strings.Index(msg, "Content-Type: text/html")
	require.NotEqual(t, -1, plainAt)
	require.NotEqual(t, -1, htmlAt)
	assert.Less(t, plainAt, htmlAt)

	assert.Contains(t, msg, "plain summary")
	assert.Contains(t, msg, "<html>summary</html>")

	assert.Equal(t, 2, strings.Count(msg, "--promopost-abc123\r\n"))
	assert.True(t, strings.HasSuffix(msg, "--promopost-abc123--\r\n"))
}

func TestMimeBoundaryIsUniquePerMessage(t *testing.T) {
	a, err := mimeBoundary()
	require.NoError(t, err)
	b, err := mimeBoundary()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, "promopost-"))
	assert.NotEqual(t, a, b)
}

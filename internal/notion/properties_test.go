package notion

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func marshal(t *testing.T, v any) string {
	out, err := json.Marshal(v)
	require.NoError(t, err)
	return string(out)
}

func TestPropertyValueJSON(t *testing.T) {
	n := 42.0
	require.JSONEq(t, `{"number":42}`, marshal(t, NumberProperty(&n)))
	require.JSONEq(t, `{"number":null}`, marshal(t, NumberProperty(nil)))
	require.JSONEq(t, `{"title":[]}`, marshal(t, TitleProperty("")))
	require.JSONEq(t,
		`{"rich_text":[{"type":"text","text":{"content":"a"}},{"type":"text","text":{"content":"b"}}]}`,
		marshal(t, RichTextProperty("a", "b")),
	)
	require.JSONEq(t, `{"date":{"start":"2018-03-14"}}`, marshal(t, DateProperty("2018-03-14")))
	require.JSONEq(t, `{"date":null}`, marshal(t, DateProperty("")))
	require.JSONEq(t,
		`{"files":[{"name":"cover","type":"external","external":{"url":"https://example.com/a.jpg"}}]}`,
		marshal(t, ExternalFileProperty("cover", "https://example.com/a.jpg")),
	)

	_, err := json.Marshal(PropertyValue{Type: "formula"})
	require.Error(t, err)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	d, ok := parseRetryAfter("2", now)
	require.True(t, ok)
	require.Equal(t, 2*time.Second, d)

	d, ok = parseRetryAfter("0.5", now)
	require.True(t, ok)
	require.Equal(t, 500*time.Millisecond, d)

	d, ok = parseRetryAfter(now.Add(3*time.Second).Format(http1123), now)
	require.True(t, ok)
	require.Equal(t, 3*time.Second, d)

	_, ok = parseRetryAfter("", now)
	require.False(t, ok)
	_, ok = parseRetryAfter("soon", now)
	require.False(t, ok)
}

const http1123 = "Mon, 02 Jan 2006 15:04:05 GMT"

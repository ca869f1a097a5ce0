package telegram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "123456:SECRET-TOKEN"

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// fakeTelegram answers getMe and getFile and hands file downloads to download.
func fakeTelegram(download roundTripFunc) *http.Client {
	return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/file/"):
			return download(r)
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			return jsonResponse(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Invoice","username":"invoicebot"}}`), nil
		case strings.HasSuffix(r.URL.Path, "/getFile"):
			return jsonResponse(`{"ok":true,"result":{"file_id":"f1","file_unique_id":"u1","file_path":"photos/file_1.png"}}`), nil
		}
		return nil, errors.New("unexpected request")
	})}
}

func TestDownloadFile(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	client, err := New(Options{
		Token: testToken,
		HTTPClient: fakeTelegram(func(r *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{"Content-Type": []string{"image/png"}},
				Body:       io.NopCloser(strings.NewReader(string(png))),
			}, nil
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, "invoicebot", client.Username())

	up, err := client.DownloadFile(context.Background(), "f1", "")
	require.NoError(t, err)
	assert.Equal(t, "file_1.png", up.Filename)
	assert.Equal(t, "image/png", up.ContentType)
	assert.Equal(t, png, up.Data)
}

func TestDownloadFile_ErrorHidesToken(t *testing.T) {
	client, err := New(Options{
		Token: testToken,
		HTTPClient: fakeTelegram(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		}),
	})
	require.NoError(t, err)

	_, err = client.DownloadFile(context.Background(), "f1", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NotContains(t, err.Error(), "SECRET-TOKEN")
}

func TestSplitByBytes(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitByBytes("short", 10))
	assert.Equal(t, []string{""}, splitByBytes("", 10))

	parts := splitByBytes(strings.Repeat("a", 25), 10)
	assert.Equal(t, []string{strings.Repeat("a", 10), strings.Repeat("a", 10), strings.Repeat("a", 5)}, parts)

	// Multi-byte runes are never cut in half and joining restores the input.
	text := strings.Repeat("€", 7)
	parts = splitByBytes(text, 10)
	for _, p := range parts {
		assert.LessOrEqual(t, len(p), 10)
	}
	assert.Equal(t, text, strings.Join(parts, ""))
}

func TestFilenameFromURL(t *testing.T) {
	assert.Equal(t, "file_12.jpg", filenameFromURL("https://api.telegram.org/file/botTOKEN/photos/file_12.jpg"))
	assert.Equal(t, "", filenameFromURL("https://api.telegram.org/"))
}

// SPDX-License-Identifier: MIT

package spotify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

// encodeCanvasResponse builds a wire-format response with the given canvas
// URLs, mimicking the canvaz endpoint.
func encodeCanvasResponse(urls ...string) []byte {
	var out []byte
	for i, url := range urls {
		var entry []byte
		entry = protowire.AppendTag(entry, 1, protowire.BytesType)
		entry = protowire.AppendString(entry, "canvas-id")
		if url != "" {
			entry = protowire.AppendTag(entry, 2, protowire.BytesType)
			entry = protowire.AppendString(entry, url)
		}
		// Unknown trailing field the decoder must skip.
		entry = protowire.AppendTag(entry, 9, protowire.VarintType)
		entry = protowire.AppendVarint(entry, uint64(i))

		out = protowire.AppendTag(out, 1, protowire.BytesType)
		out = protowire.AppendBytes(out, entry)
	}
	return out
}

func TestEncodeCanvasRequestRoundTrip(t *testing.T) {
	data := encodeCanvasRequest("spotify:track:abc")

	num, typ, n := protowire.ConsumeTag(data)
	require.Positive(t, n)
	assert.Equal(t, protowire.Number(1), num)
	assert.Equal(t, protowire.BytesType, typ)

	track, n := protowire.ConsumeBytes(data[n:])
	require.Positive(t, n)

	num, typ, n = protowire.ConsumeTag(track)
	require.Positive(t, n)
	assert.Equal(t, protowire.Number(1), num)
	assert.Equal(t, protowire.BytesType, typ)

	uri, n := protowire.ConsumeString(track[n:])
	require.Positive(t, n)
	assert.Equal(t, "spotify:track:abc", uri)
}

func TestDecodeCanvasResponse(t *testing.T) {
	url, err := decodeCanvasResponse(encodeCanvasResponse("https://cdn.example/canvas.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/canvas.mp4", url)
}

func TestDecodeCanvasResponseEmpty(t *testing.T) {
	url, err := decodeCanvasResponse(nil)
	require.NoError(t, err)
	assert.Empty(t, url)

	url, err = decodeCanvasResponse(encodeCanvasResponse(""))
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestCanvasURLFromEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/protobuf", r.Header.Get("Accept"))
		_, _ = w.Write(encodeCanvasResponse("https://cdn.example/v.mp4"))
	}))
	defer srv.Close()

	c := NewClient(srv.Client())
	url, err := c.canvasURL(context.Background(), srv.URL, "spotify:track:abc")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/v.mp4", url)
}

func TestCanvasURLUnavailableStatusIsNotError(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		c := NewClient(srv.Client())
		url, err := c.canvasURL(context.Background(), srv.URL, "spotify:track:abc")
		srv.Close()

		require.NoError(t, err, "status %d", status)
		assert.Empty(t, url)
	}
}

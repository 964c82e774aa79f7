// SPDX-License-Identifier: MIT

package spotify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/mabrink/busybeat/internal/log"
	"google.golang.org/protobuf/encoding/protowire"
)

const defaultCanvasURL = "https://spclient.wg.spotify.com/canvaz-cache/v0/canvases"

// The canvaz endpoint speaks a tiny protobuf schema:
//
//	message CanvasRequest {
//	  message Track { string track_uri = 1; }
//	  repeated Track tracks = 1;
//	}
//	message CanvasResponse {
//	  message Canvas { string id = 1; string canvas_url = 2; ... }
//	  repeated Canvas canvases = 1;
//	}
//
// The messages are assembled with protowire directly; generating bindings
// for two fields would be more ceremony than schema.

func encodeCanvasRequest(trackURI string) []byte {
	track := protowire.AppendTag(nil, 1, protowire.BytesType)
	track = protowire.AppendString(track, trackURI)

	req := protowire.AppendTag(nil, 1, protowire.BytesType)
	req = protowire.AppendBytes(req, track)
	return req
}

// decodeCanvasResponse extracts the first canvas URL, or "" when the
// response carries none.
func decodeCanvasResponse(data []byte) (string, error) {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return "", fmt.Errorf("malformed canvas response tag")
		}
		data = data[n:]

		if num == 1 && typ == protowire.BytesType {
			canvas, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return "", fmt.Errorf("malformed canvas entry")
			}
			if url := canvasURLFromEntry(canvas); url != "" {
				return url, nil
			}
			data = data[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return "", fmt.Errorf("malformed canvas response field %d", num)
		}
		data = data[n:]
	}
	return "", nil
}

func canvasURLFromEntry(data []byte) string {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return ""
		}
		data = data[n:]

		if num == 2 && typ == protowire.BytesType {
			url, m := protowire.ConsumeString(data)
			if m < 0 {
				return ""
			}
			return url
		}

		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return ""
		}
		data = data[n:]
	}
	return ""
}

// CanvasURL looks up the companion video for a track. An empty string with
// a nil error means the track has no canvas; that is a normal outcome.
func (c *Client) CanvasURL(ctx context.Context, trackURI string) (string, error) {
	return c.canvasURL(ctx, defaultCanvasURL, trackURI)
}

func (c *Client) canvasURL(ctx context.Context, endpoint, trackURI string) (string, error) {
	logger := log.WithComponentFromContext(ctx, "spotify")

	body := encodeCanvasRequest(trackURI)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build canvas request: %w", err)
	}
	req.Header.Set("Accept", "application/protobuf")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("canvas request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		// handled below
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		// The canvaz endpoint rejects plenty of perfectly valid tokens.
		// Treat it the same as "track has no canvas".
		logger.Debug().Int("status", resp.StatusCode).Msg("canvas lookup unavailable")
		return "", nil
	default:
		return "", fmt.Errorf("canvas lookup: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read canvas response: %w", err)
	}
	url, err := decodeCanvasResponse(data)
	if err != nil {
		return "", err
	}
	if url == "" {
		logger.Debug().Str("track_uri", trackURI).Msg("track has no canvas")
	}
	return url, nil
}

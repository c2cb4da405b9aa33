package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"

	"github.com/HaydarovAkbar/HikVision/internal/config"
	"github.com/HaydarovAkbar/HikVision/internal/xmltree"
)

// AlertHandler receives one flattened alert document. Returning an error stops the stream.
type AlertHandler func(*xmltree.Map) error

// WatchAlerts subscribes to the event notification alert stream and calls fn for every XML
// part until ctx is cancelled, the device closes the stream, or fn fails. Non-XML parts
// (picture attachments, JSON alerts) are skipped.
func (c *HikvisionClient) WatchAlerts(ctx context.Context, fn AlertHandler) error {
	var r request
	u, err := c.resolve(config.ResourceEventNotification, &r)
	if err != nil {
		return err
	}
	entry := c.log.WithField("url", u)
	entry.Debug("opening alert stream")

	resp, err := c.stream.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(u)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return &TransportError{Cause: err}
	}
	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		return &RequestFailedError{StatusCode: resp.StatusCode(), URL: u}
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header().Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		// Some firmware answers with a single document instead of a stream.
		data, err := io.ReadAll(body)
		if err != nil {
			return &TransportError{Cause: err}
		}
		doc, err := xmltree.Parse(data)
		if err != nil {
			return &MalformedResponseError{Cause: err}
		}
		return fn(doc)
	}

	reader := multipart.NewReader(body, params["boundary"])
	for {
		part, err := reader.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				entry.Debug("alert stream closed")
				return nil
			}
			return &TransportError{Cause: err}
		}
		if !isXMLPart(part) {
			entry.WithField("content_type", part.Header.Get("Content-Type")).Debug("skipping alert part")
			continue
		}
		data, err := io.ReadAll(part)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return &TransportError{Cause: err}
		}
		doc, err := xmltree.Parse(data)
		if err != nil {
			entry.WithError(err).Warn("dropping malformed alert")
			continue
		}
		if err := fn(doc); err != nil {
			return fmt.Errorf("alert handler: %w", err)
		}
	}
}

func isXMLPart(part *multipart.Part) bool {
	ct := part.Header.Get("Content-Type")
	if ct == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return strings.HasSuffix(mediaType, "/xml")
}


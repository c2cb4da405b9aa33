package client

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/HaydarovAkbar/HikVision/internal/config"
	"github.com/HaydarovAkbar/HikVision/internal/xmltree"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/icholy/digest"
	"github.com/sirupsen/logrus"
)

// HikvisionClient talks ISAPI to a single device.
type HikvisionClient struct {
	HTTP   *resty.Client
	Config *config.Config

	stream     *resty.Client
	log        *logrus.Logger
	newBackOff func() backoff.BackOff
}

// Option customizes a client at construction.
type Option func(*options)

type options struct {
	transport  http.RoundTripper
	logger     *logrus.Logger
	newBackOff func() backoff.BackOff
}

// WithTransport replaces the underlying round tripper. Digest authentication still wraps it.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

func WithLogger(l *logrus.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBackOff sets the policy used between retries of transport failures.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(o *options) { o.newBackOff = f }
}

func New(cfg *config.Config, opts ...Option) *HikvisionClient {
	o := options{
		logger: logrus.StandardLogger(),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(&o)
	}

	base := o.transport
	if base == nil {
		// Access controllers ship self-signed certificates.
		base = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	transport := &digest.Transport{
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: base,
	}

	r := resty.New()
	r.SetTransport(transport)
	r.SetBaseURL(cfg.BaseURL())
	r.SetTimeout(cfg.Timeout)
	r.SetHeader("Accept", "application/xml")
	r.SetLogger(o.logger)

	// The alert stream stays open indefinitely, so it gets a client without a timeout.
	stream := resty.New()
	stream.SetTransport(transport)
	stream.SetBaseURL(cfg.BaseURL())
	stream.SetLogger(o.logger)

	return &HikvisionClient{
		HTTP:       r,
		Config:     cfg,
		stream:     stream,
		log:        o.logger,
		newBackOff: o.newBackOff,
	}
}

type request struct {
	segments []string
	query    url.Values
	body     []byte
}

// RequestOption shapes a single ISAPI request.
type RequestOption func(*request)

// WithPathSegment appends a segment to the resource path. Empty segments are ignored.
func WithPathSegment(seg string) RequestOption {
	return func(r *request) {
		if seg = strings.Trim(seg, "/"); seg != "" {
			r.segments = append(r.segments, url.PathEscape(seg))
		}
	}
}

// WithQuery adds a query parameter. Empty values are ignored.
func WithQuery(key, value string) RequestOption {
	return func(r *request) {
		if value == "" {
			return
		}
		if r.query == nil {
			r.query = url.Values{}
		}
		r.query.Add(key, value)
	}
}

// WithXMLBody sends body with Content-Type application/xml.
func WithXMLBody(body []byte) RequestOption {
	return func(r *request) { r.body = body }
}

// Request issues method against the logical resource and returns the flattened response
// document.
func (c *HikvisionClient) Request(ctx context.Context, method, resource string, opts ...RequestOption) (*xmltree.Map, error) {
	resp, err := c.do(ctx, method, resource, opts...)
	if err != nil {
		return nil, err
	}
	doc, err := xmltree.Parse(resp.Body())
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"method":   method,
			"resource": resource,
		}).WithError(err).Error("could not parse isapi response")
		return nil, &MalformedResponseError{Cause: err}
	}
	return doc, nil
}

func (c *HikvisionClient) resolve(resource string, r *request) (string, error) {
	path, ok := c.Config.Endpoint(resource)
	if !ok {
		return "", ErrUnknownResource
	}
	u := c.Config.URL(strings.Join(append([]string{path}, r.segments...), "/"))
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	return u, nil
}

// do sends the request, retrying transport failures up to the configured retry count.
// Non-2xx answers are returned at once as *RequestFailedError.
func (c *HikvisionClient) do(ctx context.Context, method, resource string, opts ...RequestOption) (*resty.Response, error) {
	var r request
	for _, opt := range opts {
		opt(&r)
	}
	u, err := c.resolve(resource, &r)
	if err != nil {
		return nil, err
	}
	entry := c.log.WithFields(logrus.Fields{"method": method, "url": u})

	attempt := func() (*resty.Response, error) {
		req := c.HTTP.R().SetContext(ctx)
		if r.body != nil {
			req.SetHeader("Content-Type", "application/xml").SetBody(r.body)
		}
		entry.Debug("isapi request")
		resp, err := req.Execute(method, u)
		if err != nil {
			terr := &TransportError{Cause: err}
			if ctx.Err() != nil {
				return nil, backoff.Permanent(terr)
			}
			entry.WithError(err).Warn("isapi transport failure")
			return nil, terr
		}
		if !resp.IsSuccess() {
			return nil, backoff.Permanent(&RequestFailedError{StatusCode: resp.StatusCode(), URL: u})
		}
		return resp, nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.Config.RetryCount)), ctx)
	resp, err := backoff.RetryWithData(attempt, policy)
	if err != nil {
		var failed *RequestFailedError
		var transport *TransportError
		if !errors.As(err, &failed) && !errors.As(err, &transport) {
			err = &TransportError{Cause: err}
		}
		entry.WithError(err).Error("isapi request failed")
		return nil, err
	}
	entry.WithField("status", resp.StatusCode()).Debug("isapi response")
	return resp, nil
}

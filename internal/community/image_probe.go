package community

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"

	"go-amadeus/internal/models"
)

const defaultProbeTimeout = 5 * time.Second

// ImageProbe checks that a welcome image URL answers with an image.
type ImageProbe struct {
	client  *fasthttp.Client
	timeout time.Duration
}

// NewImageProbe uses client when given, otherwise a small client suited to
// one-off checks.
func NewImageProbe(client *fasthttp.Client) *ImageProbe {
	if client == nil {
		client = &fasthttp.Client{
			Name:                "amadeus",
			ReadTimeout:         defaultProbeTimeout,
			WriteTimeout:        defaultProbeTimeout,
			MaxResponseBodySize: 8 * 1024 * 1024,
			MaxConnsPerHost:     4,
		}
	}
	return &ImageProbe{client: client, timeout: defaultProbeTimeout}
}

// Check sends a HEAD request (falling back to GET when HEAD is not allowed)
// and requires a 2xx answer with an image content type.
func (p *ImageProbe) Check(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Wrap(models.ErrInvalidArgument, "image url must be an http(s) link")
	}

	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return errors.Wrap(models.ErrTransient, "image check timed out")
	}

	status, contentType, err := p.do(fasthttp.MethodHead, rawURL, timeout)
	if err == nil && status == fasthttp.StatusMethodNotAllowed {
		status, contentType, err = p.do(fasthttp.MethodGet, rawURL, timeout)
	}
	if err != nil {
		return errors.Wrapf(models.ErrTransient, "image url unreachable: %v", err)
	}
	if status < 200 || status >= 300 {
		return errors.Wrapf(models.ErrInvalidArgument, "image url answered with status %d", status)
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return errors.Wrapf(models.ErrInvalidArgument, "image url is not an image (%s)", contentType)
	}
	return nil
}

func (p *ImageProbe) do(method, rawURL string, timeout time.Duration) (int, string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(rawURL)
	req.Header.SetMethod(method)

	if err := p.client.DoTimeout(req, resp, timeout); err != nil {
		return 0, "", err
	}
	return resp.StatusCode(), string(resp.Header.ContentType()), nil
}

package httpclient

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"time"
)

const defaultUserAgent = "invoice-extractor/1.0"

// Telegram puts the bot token in the path: /bot<id>:<secret>/method and
// /file/bot<id>:<secret>/path.
var botTokenPattern = regexp.MustCompile(`bot\d+:[A-Za-z0-9_-]+`)

// RedactPath hides Telegram bot tokens in a URL path or an error string.
func RedactPath(s string) string {
	return botTokenPattern.ReplaceAllString(s, "bot<redacted>")
}

type Options struct {
	PreferIPv4 bool
	Timeout    time.Duration
	UserAgent  string
	Logger     *slog.Logger
}

// New returns the client shared by every outbound call. It never retries;
// a failed round trip is returned to the caller as is.
func New(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	dialer := &net.Dialer{
		Timeout:   15 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if opts.PreferIPv4 {
				return dialer.DialContext(ctx, "tcp4", addr)
			}
			return dialer.DialContext(ctx, network, addr)
		},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &loggingTransport{
			next:      transport,
			userAgent: userAgent,
			logger:    logger,
		},
	}
}

type loggingTransport struct {
	next      http.RoundTripper
	userAgent string
	logger    *slog.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		// RoundTrippers must not modify the caller's request.
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		t.logger.Warn("outbound request failed",
			"method", req.Method,
			"host", req.URL.Host,
			"path", RedactPath(req.URL.Path),
			"dur_ms", time.Since(start).Milliseconds(),
			"err", RedactPath(err.Error()),
		)
		return nil, err
	}

	t.logger.Debug("outbound request",
		"method", req.Method,
		"host", req.URL.Host,
		"path", RedactPath(req.URL.Path),
		"status", resp.StatusCode,
		"dur_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

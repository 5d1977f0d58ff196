package adapter

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"protscope/internal/domain"
)

// Option is a functional option shared by the HTTP-backed adapters.
// Options that do not apply to an adapter are ignored by it.
type Option func(*options)

type options struct {
	baseURL        string
	client         *http.Client
	timeout        time.Duration
	breaker        BreakerSettings
	logger         *zap.Logger
	format         domain.FormatKind
	limit          int
	callerIdentity string
	maxBody        int64
}

func defaultOptions(baseURL string) options {
	return options{
		baseURL: baseURL,
		client:  &http.Client{},
		timeout: 15 * time.Second,
		breaker: DefaultBreakerSettings(),
		logger:  zap.NewNop(),
		format:  domain.FormatXML,
		limit:   50,
		maxBody: 32 << 20,
	}
}

func applyOptions(baseURL string, opts []Option) options {
	o := defaultOptions(baseURL)
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithBaseURL overrides the service root, e.g. an httptest server URL
func WithBaseURL(u string) Option {
	return func(o *options) {
		if u != "" {
			o.baseURL = u
		}
	}
}

// WithHTTPClient sets the client used for outbound requests
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.client = c
		}
	}
}

// WithTimeout bounds each outbound request; expiry surfaces as a TRANSIENT error
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithBreaker configures the circuit breaker
func WithBreaker(s BreakerSettings) Option {
	return func(o *options) {
		o.breaker = s
	}
}

// WithLogger sets the structured logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDefaultFormat sets the wire format Resolve asks UniProt for
func WithDefaultFormat(kind domain.FormatKind) Option {
	return func(o *options) {
		if kind.Valid() {
			o.format = kind
		}
	}
}

// WithLimit caps the number of interaction partners requested from STRING
func WithLimit(n int) Option {
	return func(o *options) {
		o.limit = n
	}
}

// WithCallerIdentity sets the caller_identity parameter STRING asks clients to send
func WithCallerIdentity(id string) Option {
	return func(o *options) {
		o.callerIdentity = id
	}
}

// WithMaxBodySize caps how many response bytes are read
func WithMaxBodySize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBody = n
		}
	}
}

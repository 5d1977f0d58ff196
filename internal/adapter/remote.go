package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"protscope/internal/domain"
)

// fetch performs one GET and returns the body of a 2xx response.
// Every failure it reports is TRANSIENT: the remote, not the input, is at fault.
func fetch(ctx context.Context, o options, rawURL, accept string) ([]byte, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.NewTransient("request timed out", err)
		}
		return nil, domain.NewTransient("request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		o.logger.Debug("remote returned non-success status",
			zap.String("url", rawURL),
			zap.Int("status", resp.StatusCode))
		return nil, domain.NewTransient(fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, o.maxBody+1))
	if err != nil {
		return nil, domain.NewTransient("read response body", err)
	}
	if int64(len(body)) > o.maxBody {
		return nil, domain.NewFormatError(fmt.Sprintf("response exceeds %d bytes", o.maxBody))
	}
	return body, nil
}

package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protscope/internal/domain"
)

// fakeUniProt serves testdata files as {id}.{format}
func fakeUniProt(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		name := strings.TrimPrefix(r.URL.Path, "/")
		raw, err := os.ReadFile(filepath.Join("testdata", name))
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		_, _ = w.Write(raw)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestUniProtResolveFixture(t *testing.T) {
	var hits atomic.Int32
	srv := fakeUniProt(t, &hits)
	u := NewUniProtAdapter(WithBaseURL(srv.URL + "/"))

	for _, kind := range []domain.FormatKind{domain.FormatXML, domain.FormatFASTA, domain.FormatJSON} {
		t.Run(string(kind), func(t *testing.T) {
			rec, err := u.ResolveAs(context.Background(), "P04637", kind)
			require.NoError(t, err)
			assert.Contains(t, rec.Description, "Cellular tumor antigen p53")
			assert.Equal(t, 393, rec.Length())
			assert.NotContains(t, rec.Sequence, " ")
			assert.Equal(t, strings.ToUpper(rec.Sequence), rec.Sequence)
		})
	}
	assert.Equal(t, int32(3), hits.Load(), "one request per resolution")
}

func TestUniProtResolveDefaultFormat(t *testing.T) {
	var path, accept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, accept = r.URL.Path, r.Header.Get("Accept")
		raw, _ := os.ReadFile(filepath.Join("testdata", "P04637.json"))
		_, _ = w.Write(raw)
	}))
	defer srv.Close()

	u := NewUniProtAdapter(WithBaseURL(srv.URL), WithDefaultFormat(domain.FormatJSON))
	first, err := u.Resolve(context.Background(), " P04637 ")
	require.NoError(t, err)
	assert.Equal(t, "/P04637.json", path)
	assert.Equal(t, "application/json", accept)

	second, err := u.Resolve(context.Background(), "P04637")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestUniProtErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, "boom", domain.ErrTransient},
		{"unavailable", http.StatusServiceUnavailable, "", domain.ErrTransient},
		{"remote 404", http.StatusNotFound, "", domain.ErrTransient},
		{"empty body", http.StatusOK, "", domain.ErrNotFound},
		{"no entry", http.StatusOK, `<uniprot xmlns="http://uniprot.org/uniprot"/>`, domain.ErrNotFound},
		{"html page", http.StatusOK, "<html><body>maintenance</body></html>", domain.ErrFormat},
		{"garbage", http.StatusOK, "\x00\x01", domain.ErrFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewUniProtAdapter(WithBaseURL(srv.URL)).Resolve(context.Background(), "P04637")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUniProtMissingSequence(t *testing.T) {
	var hits atomic.Int32
	srv := fakeUniProt(t, &hits)

	_, err := NewUniProtAdapter(WithBaseURL(srv.URL)).Resolve(context.Background(), "no_sequence")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFormat)
	assert.Contains(t, err.Error(), "missing sequence")
}

func TestUniProtBlankIdentifier(t *testing.T) {
	var hits atomic.Int32
	srv := fakeUniProt(t, &hits)

	_, err := NewUniProtAdapter(WithBaseURL(srv.URL)).Resolve(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, hits.Load())
}

func TestUniProtTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	u := NewUniProtAdapter(WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	_, err := u.Resolve(context.Background(), "P04637")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Contains(t, err.Error(), "timed out")
}

func TestUniProtBreaker(t *testing.T) {
	settings := BreakerSettings{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}

	t.Run("opens after transient failures", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		u := NewUniProtAdapter(WithBaseURL(srv.URL), WithBreaker(settings))
		for i := 0; i < 2; i++ {
			_, err := u.Resolve(context.Background(), "P04637")
			require.ErrorIs(t, err, domain.ErrTransient)
		}

		_, err := u.Resolve(context.Background(), "P04637")
		require.ErrorIs(t, err, domain.ErrTransient)
		assert.Contains(t, err.Error(), "circuit open")
		assert.Equal(t, int32(2), hits.Load())
	})

	t.Run("not found does not count", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
		}))
		defer srv.Close()

		u := NewUniProtAdapter(WithBaseURL(srv.URL), WithBreaker(settings))
		for i := 0; i < 4; i++ {
			_, err := u.Resolve(context.Background(), "P00000")
			require.ErrorIs(t, err, domain.ErrNotFound)
		}
		assert.Equal(t, int32(4), hits.Load())
	})
}

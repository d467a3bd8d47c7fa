package tracker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"whereis/internal/domain"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, status int, body string) (*Client, *http.Request) {
	t.Helper()
	var seen http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = *r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Options{
		BaseURL:       srv.URL + "/",
		APIVersion:    "v2",
		Login:         "acme",
		APIKey:        "secret",
		RateLimitCode: 14,
		Now:           func() time.Time { return fixedNow },
	})
	return c, &seen
}

func TestQueryLatestClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   domain.OutcomeKind
	}{
		{"single object", 200, `{"success":true,"data":{"lat":34.05,"lon":-118.25,"fix_time":"2026-03-01 11:59"}}`, domain.OutcomeOK},
		{"collection takes first", 200, `{"success":true,"data":[{"lat":1.5,"lon":2.5},{"lat":9,"lon":9}]}`, domain.OutcomeOK},
		{"empty collection", 200, `{"success":true,"data":[]}`, domain.OutcomeNoData},
		{"null data", 200, `{"success":true,"data":null}`, domain.OutcomeNoData},
		{"missing data", 200, `{"success":true}`, domain.OutcomeNoData},
		{"string latitude", 200, `{"success":true,"data":{"lat":"34.05","lon":-118.25}}`, domain.OutcomeNoData},
		{"missing longitude", 200, `{"success":true,"data":{"lat":34.05}}`, domain.OutcomeNoData},
		{"out of range", 200, `{"success":true,"data":{"lat":123,"lon":0}}`, domain.OutcomeNoData},
		{"record not an object", 200, `{"success":true,"data":[42]}`, domain.OutcomeNoData},
		{"rate limit code", 200, `{"success":false,"error":{"code":14,"message":"too many requests for object"}}`, domain.OutcomeRateLimited},
		{"other provider code", 200, `{"success":false,"error":{"code":7,"message":"access denied"}}`, domain.OutcomeUnavailable},
		{"failure without error", 200, `{"success":false}`, domain.OutcomeUnavailable},
		{"success with odd error field", 200, `{"success":true,"error":"none","data":{"lat":34.05,"lon":-118.25}}`, domain.OutcomeOK},
		{"success with empty error object", 200, `{"success":true,"error":{},"data":{"lat":34.05,"lon":-118.25}}`, domain.OutcomeOK},
		{"failure with non-object error", 200, `{"success":false,"error":"throttled"}`, domain.OutcomeUnavailable},
		{"server error", 502, `bad gateway`, domain.OutcomeUnavailable},
		{"not json", 200, `<html>maintenance</html>`, domain.OutcomeUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, tc.status, tc.body)
			out := c.QueryLatest(context.Background(), "TRK-01")
			if out.Kind != tc.want {
				t.Fatalf("got %v (err=%v), want %v", out.Kind, out.Err, tc.want)
			}
		})
	}
}

func TestQueryLatestBuildsPosition(t *testing.T) {
	c, req := newTestClient(t, 200, `{"success":true,"data":[{"lat":34.05,"lon":-118.25,"fix_time":"11:59"},{"lat":0,"lon":0}]}`)

	out := c.QueryLatest(context.Background(), "TRK-01")
	if out.Kind != domain.OutcomeOK {
		t.Fatalf("expected ok, got %v: %v", out.Kind, out.Err)
	}
	p := out.Position
	if p.AssetID != "TRK-01" || p.Latitude != 34.05 || p.Longitude != -118.25 || p.FixTime != "11:59" {
		t.Errorf("unexpected position: %+v", p)
	}
	if !p.FetchedAt.Equal(fixedNow) || !p.ObservedAt.Equal(fixedNow) {
		t.Errorf("expected timestamps at %v, got %+v", fixedNow, p)
	}

	if req.URL.Path != "/api/v2/tracker/latest" {
		t.Errorf("unexpected path: %s", req.URL.Path)
	}
	if req.URL.Query().Get("asset") != "TRK-01" {
		t.Errorf("unexpected asset param: %s", req.URL.RawQuery)
	}
	if req.Header.Get("X-Api-Login") != "acme" || req.Header.Get("X-Api-Key") != "secret" {
		t.Errorf("credentials not forwarded: %v", req.Header)
	}
}

func TestQueryLatestErrorsAreWrapped(t *testing.T) {
	c, _ := newTestClient(t, 503, `down`)
	out := c.QueryLatest(context.Background(), "TRK-01")
	if !errors.Is(out.Err, ErrHTTPStatus) {
		t.Errorf("expected ErrHTTPStatus, got %v", out.Err)
	}

	c, _ = newTestClient(t, 200, `{"success":false,"error":{"code":14,"message":"slow down"}}`)
	out = c.QueryLatest(context.Background(), "TRK-01")
	if !errors.Is(out.Err, ErrProviderError) {
		t.Errorf("expected ErrProviderError, got %v", out.Err)
	}
}

func TestQueryLatestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, APIVersion: "v2", Timeout: time.Second})
	out := c.QueryLatest(context.Background(), "TRK-01")
	if out.Kind != domain.OutcomeUnavailable {
		t.Errorf("expected unavailable, got %v", out.Kind)
	}
}

func TestQueryLatestLimiterHonoursContext(t *testing.T) {
	c, _ := newTestClient(t, 200, `{"success":true,"data":{"lat":1,"lon":1}}`)
	c2 := NewClient(Options{BaseURL: c.baseURL, APIVersion: "v2", RPS: 0.001, Burst: 1})

	if out := c2.QueryLatest(context.Background(), "TRK-01"); out.Kind != domain.OutcomeOK {
		t.Fatalf("first call should pass the limiter, got %v: %v", out.Kind, out.Err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if out := c2.QueryLatest(ctx, "TRK-01"); out.Kind != domain.OutcomeUnavailable {
		t.Errorf("expected unavailable while throttled, got %v", out.Kind)
	}
}

func TestQueryLatestLimiterBoundedByTimeout(t *testing.T) {
	c, _ := newTestClient(t, 200, `{"success":true,"data":{"lat":1,"lon":1}}`)
	c2 := NewClient(Options{
		BaseURL:    c.baseURL,
		APIVersion: "v2",
		Timeout:    200 * time.Millisecond,
		RPS:        0.5,
		Burst:      1,
	})

	if out := c2.QueryLatest(context.Background(), "TRK-01"); out.Kind != domain.OutcomeOK {
		t.Fatalf("first call should pass the limiter, got %v: %v", out.Kind, out.Err)
	}

	start := time.Now()
	out := c2.QueryLatest(context.Background(), "TRK-01")
	elapsed := time.Since(start)
	if out.Kind != domain.OutcomeUnavailable {
		t.Errorf("expected unavailable when the limiter delay exceeds the timeout, got %v", out.Kind)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("throttled query took %v, want it bounded by the 200ms timeout", elapsed)
	}
}

package webclient_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/webgrade/webgrade/internal/webclient"
)

func newTestClient(t *testing.T, ts *httptest.Server) webclient.Client {
	t.Helper()
	client := webclient.NewNetHTTPClient(ts.Client(), zap.NewNop())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// ─── Fetch: round-trip fields ───────────────────────────────────────────

func TestNetHTTPClient_Fetch_PopulatesResult(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Add("Set-Cookie", "session=abc; Secure; HttpOnly")
		w.Header().Add("Set-Cookie", "theme=dark")
		_, _ = io.WriteString(w, "<html><body>hello</body></html>")
	}))
	defer ts.Close()

	client := newTestClient(t, ts)

	res, err := client.Fetch(context.Background(), ts.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if res.StatusCode != 200 {
		t.Errorf("expected 200, got %d", res.StatusCode)
	}
	if string(res.Body) != "<html><body>hello</body></html>" {
		t.Errorf("unexpected body %q", res.Body)
	}
	if res.BodySizeBytes != len(res.Body) {
		t.Errorf("BodySizeBytes=%d, body is %d bytes", res.BodySizeBytes, len(res.Body))
	}
	if res.ElapsedSeconds <= 0 {
		t.Errorf("ElapsedSeconds should be positive, got %f", res.ElapsedSeconds)
	}
	if res.FinalURL != ts.URL {
		t.Errorf("expected final URL %q, got %q", ts.URL, res.FinalURL)
	}
	if res.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}
}

func TestNetHTTPClient_Fetch_LowercasesHeaders(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Strict-Transport-Security", "max-age=63072000")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := newTestClient(t, ts)

	res, err := client.Fetch(context.Background(), ts.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if got := res.Header("x-frame-options"); got != "DENY" {
		t.Errorf("x-frame-options=%q, want DENY", got)
	}
	if got := res.Header("X-Frame-Options"); got != "DENY" {
		t.Errorf("Header lookup should be case-insensitive, got %q", got)
	}
	if got := res.Header("strict-transport-security"); got != "max-age=63072000" {
		t.Errorf("strict-transport-security=%q", got)
	}
	if _, ok := res.Headers["X-Frame-Options"]; ok {
		t.Error("header map should hold lowercase keys only")
	}
}

func TestNetHTTPClient_Fetch_SeparatesSetCookie(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Add("Set-Cookie", "a=1; Secure")
		w.Header().Add("Set-Cookie", "b=2; HttpOnly")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := newTestClient(t, ts)

	res, err := client.Fetch(context.Background(), ts.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(res.SetCookies) != 2 {
		t.Fatalf("expected 2 Set-Cookie values, got %d: %v", len(res.SetCookies), res.SetCookies)
	}
	if _, ok := res.Headers["set-cookie"]; ok {
		t.Error("set-cookie must not be folded into the header map")
	}
}

func TestNetHTTPClient_Fetch_SendsUserAgent(t *testing.T) {
	t.Parallel()
	var gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := newTestClient(t, ts)

	if _, err := client.Fetch(context.Background(), ts.URL, 5*time.Second); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotUA != webclient.UserAgent {
		t.Errorf("User-Agent=%q, want %q", gotUA, webclient.UserAgent)
	}
}

func TestNetHTTPClient_Fetch_FollowsRedirects(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/landed", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/landed", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "destination")
	})

	client := newTestClient(t, ts)

	res, err := client.Fetch(context.Background(), ts.URL+"/start", 5*time.Second)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.FinalURL != ts.URL+"/landed" {
		t.Errorf("FinalURL=%q, want %q", res.FinalURL, ts.URL+"/landed")
	}
	if string(res.Body) != "destination" {
		t.Errorf("body=%q, want destination", res.Body)
	}
}

// ─── Fetch: status codes are data, not errors ───────────────────────────

func TestNetHTTPClient_Fetch_Non2xxIsNotAnError(t *testing.T) {
	t.Parallel()
	for _, code := range []int{404, 500, 503} {
		code := code
		t.Run(http.StatusText(code), func(t *testing.T) {
			t.Parallel()
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(code)
			}))
			defer ts.Close()

			client := newTestClient(t, ts)

			res, err := client.Fetch(context.Background(), ts.URL, 5*time.Second)
			if err != nil {
				t.Fatalf("Fetch should surface %d as data, got error %v", code, err)
			}
			if res.StatusCode != code {
				t.Errorf("StatusCode=%d, want %d", res.StatusCode, code)
			}
		})
	}
}

// ─── Fetch: failure classification ──────────────────────────────────────

func TestNetHTTPClient_Fetch_TimeoutKind(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := newTestClient(t, ts)

	_, err := client.Fetch(context.Background(), ts.URL, 50*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if kind := webclient.KindOf(err); kind != webclient.KindTimeout {
		t.Errorf("KindOf=%q, want %q (err=%v)", kind, webclient.KindTimeout, err)
	}
}

func TestNetHTTPClient_Fetch_ConnectionKind(t *testing.T) {
	t.Parallel()
	// Grab a port that is guaranteed closed by listening and releasing it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	deadURL := "http://" + ln.Addr().String()
	_ = ln.Close()

	client := webclient.NewNetHTTPClient(nil, zap.NewNop())
	defer client.Close()

	_, err = client.Fetch(context.Background(), deadURL, 2*time.Second)
	if err == nil {
		t.Fatal("expected connection error")
	}
	if kind := webclient.KindOf(err); kind != webclient.KindConnection {
		t.Errorf("KindOf=%q, want %q (err=%v)", kind, webclient.KindConnection, err)
	}
}

func TestNetHTTPClient_Fetch_InvalidURLIsOtherKind(t *testing.T) {
	t.Parallel()
	client := webclient.NewNetHTTPClient(nil, zap.NewNop())
	defer client.Close()

	_, err := client.Fetch(context.Background(), "http://exa mple.com/", 2*time.Second)
	if err == nil {
		t.Fatal("expected error for malformed URL")
	}
	if kind := webclient.KindOf(err); kind != webclient.KindOther {
		t.Errorf("KindOf=%q, want %q", kind, webclient.KindOther)
	}
}

func TestKindOf_PlainErrorDefaultsToOther(t *testing.T) {
	t.Parallel()
	if kind := webclient.KindOf(io.EOF); kind != webclient.KindOther {
		t.Errorf("KindOf(plain error)=%q, want %q", kind, webclient.KindOther)
	}
}

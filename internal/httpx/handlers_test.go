package httpx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"memory-arena-server/kernel"
	"memory-arena-server/kernel/kernelerr"
)

// fakeKernel is a hand-rolled double for the Kernel interface, used to
// stand up a real mux against a fake collaborator rather than mocking
// the transport itself.
type fakeKernel struct {
	flipErr   error
	flipBoard kernel.Board
	lookBoard kernel.Board
	watchCh   chan struct{}
	mapCalls  []func(string) string
}

func (f *fakeKernel) Flip(ctx context.Context, player string, row, col int) (kernel.Board, error) {
	if f.flipErr != nil {
		return kernel.Board{}, f.flipErr
	}
	return f.flipBoard, nil
}

func (f *fakeKernel) Look(player string) kernel.Board {
	return f.lookBoard
}

func (f *fakeKernel) Watch(ctx context.Context, player string, timeout time.Duration) kernel.Board {
	if f.watchCh != nil {
		select {
		case <-f.watchCh:
		case <-time.After(timeout):
		case <-ctx.Done():
		}
	}
	return f.lookBoard
}

func (f *fakeKernel) Map(transform func(string) string) {
	f.mapCalls = append(f.mapCalls, transform)
}

func setupTestServer(t *testing.T, k *fakeKernel) (*httptest.Server, func()) {
	t.Helper()
	h := NewHandler(k, 2*time.Second, nil)
	mux := http.NewServeMux()
	h.Routes(mux)
	server := httptest.NewServer(mux)
	return server, server.Close
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestLookRoute(t *testing.T) {
	k := &fakeKernel{lookBoard: kernel.Board{Rows: 1, Cols: 1, Cards: []kernel.CardView{{Kind: "down"}}}}
	server, cleanup := setupTestServer(t, k)
	defer cleanup()

	status, body := get(t, server.URL+"/look/alice")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body != "1x1\ndown" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestFlipRouteSuccess(t *testing.T) {
	k := &fakeKernel{flipBoard: kernel.Board{Rows: 1, Cols: 1, Cards: []kernel.CardView{{Kind: "my", Label: "A"}}}}
	server, cleanup := setupTestServer(t, k)
	defer cleanup()

	status, body := get(t, server.URL+"/flip/alice/0,0")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(body, "my A") {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestFlipRouteBadCoordSyntax(t *testing.T) {
	k := &fakeKernel{}
	server, cleanup := setupTestServer(t, k)
	defer cleanup()

	status, body := get(t, server.URL+"/flip/alice/notacoord")
	if status != http.StatusConflict {
		t.Fatalf("expected 409, got %d", status)
	}
	if !strings.Contains(body, "bad-coord") {
		t.Fatalf("expected bad-coord reason, got %q", body)
	}
}

func TestFlipRouteKernelRejection(t *testing.T) {
	k := &fakeKernel{flipErr: kernelerr.ErrControlled}
	server, cleanup := setupTestServer(t, k)
	defer cleanup()

	status, body := get(t, server.URL+"/flip/alice/0,0")
	if status != http.StatusConflict {
		t.Fatalf("expected 409, got %d", status)
	}
	if !strings.Contains(body, "controlled") {
		t.Fatalf("expected controlled reason, got %q", body)
	}
}

func TestWatchRouteReturnsCurrentBoard(t *testing.T) {
	k := &fakeKernel{lookBoard: kernel.Board{Rows: 1, Cols: 1, Cards: []kernel.CardView{{Kind: "none"}}}}
	server, cleanup := setupTestServer(t, k)
	defer cleanup()

	status, body := get(t, server.URL+"/watch/alice?timeout_ms=50")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body != "1x1\nnone" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestReplaceRouteAppliesTransform(t *testing.T) {
	k := &fakeKernel{lookBoard: kernel.Board{Rows: 1, Cols: 1, Cards: []kernel.CardView{{Kind: "down"}}}}
	server, cleanup := setupTestServer(t, k)
	defer cleanup()

	status, _ := get(t, server.URL+"/replace/alice/A/Z")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(k.mapCalls) != 1 {
		t.Fatalf("expected exactly one Map call, got %d", len(k.mapCalls))
	}
	if got := k.mapCalls[0]("A"); got != "Z" {
		t.Fatalf("expected transform(A) == Z, got %q", got)
	}
	if got := k.mapCalls[0]("B"); got != "B" {
		t.Fatalf("expected transform(B) to pass through unchanged, got %q", got)
	}
}

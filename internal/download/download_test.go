package download

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

func TestOneDownloadsAndSkips(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		_, _ = w.Write([]byte("binary payload"))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "raw")
	url := srv.URL + "/DataFiles/DEMO_L.xpt"

	status, err := One(srv.Client(), url, dir)
	if err != nil {
		t.Fatalf("One: %v", err)
	}
	if status != StatusDownloaded {
		t.Fatalf("status = %v, want StatusDownloaded", status)
	}
	dest := filepath.Join(dir, "DEMO_L.xpt")
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(got) != "binary payload" {
		t.Fatalf("downloaded bytes = %q", got)
	}

	// Second run: file exists, no request goes out, bytes untouched.
	if err := os.WriteFile(dest, []byte("local edit"), 0o644); err != nil {
		t.Fatalf("rewrite file: %v", err)
	}
	status, err = One(srv.Client(), url, dir)
	if err != nil {
		t.Fatalf("One second run: %v", err)
	}
	if status != StatusSkipped {
		t.Fatalf("status = %v, want StatusSkipped", status)
	}
	if n := atomic.LoadInt64(&hits); n != 1 {
		t.Fatalf("server hits = %d, want 1", n)
	}
	got, _ = os.ReadFile(dest)
	if string(got) != "local edit" {
		t.Fatalf("existing bytes changed: %q", got)
	}
}

func TestAllContinuesPastFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad.xpt" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	urls := []string{srv.URL + "/a.xpt", srv.URL + "/bad.xpt", srv.URL + "/b.xpt"}

	st := All(srv.Client(), urls, dir, zap.NewNop())

	if st.Downloaded != 2 || st.Failed != 1 || st.Skipped != 0 {
		t.Fatalf("stats = %+v", st)
	}
	for _, name := range []string{"a.xpt", "b.xpt"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.xpt")); err == nil {
		t.Fatal("failed download should not leave a file behind")
	}
}

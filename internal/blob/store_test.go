package blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

func TestLocalStore_PutAndOpen(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost:8080/")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	url, err := store.Put(context.Background(), "abc.mp4", strings.NewReader("video bytes"))
	if err != nil {
		t.Fatalf("Failed to put blob: %v", err)
	}
	if url != "http://localhost:8080/blob/abc.mp4" {
		t.Errorf("Unexpected blob url: %s", url)
	}

	f, err := store.Open("abc.mp4")
	if err != nil {
		t.Fatalf("Failed to open blob: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("Failed to read blob: %v", err)
	}
	if string(data) != "video bytes" {
		t.Errorf("Unexpected blob content: %s", data)
	}
}

func TestLocalStore_InvalidKey(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	for _, key := range []string{"", "../escape.mp4", "a/b.mp4", "..\\b.mp4"} {
		if _, err := store.Put(context.Background(), key, strings.NewReader("x")); err == nil {
			t.Errorf("Expected error for key %q, got nil", key)
		}
	}
}

func TestLocalStore_Delete(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if _, err := store.Put(context.Background(), "gone.mp4", strings.NewReader("x")); err != nil {
		t.Fatalf("Failed to put blob: %v", err)
	}
	if err := store.Delete("gone.mp4"); err != nil {
		t.Fatalf("Failed to delete blob: %v", err)
	}
	if _, err := store.Open("gone.mp4"); err == nil {
		t.Error("Expected error opening deleted blob, got nil")
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fetched content"))
	}))
	defer srv.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	path, cleanup, err := Fetch(context.Background(), client, srv.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	defer cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read fetched file: %v", err)
	}
	if string(data) != "fetched content" {
		t.Errorf("Unexpected fetched content: %s", data)
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected temp file removed by cleanup")
	}
}

func TestFetch_NonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	_, _, err := Fetch(context.Background(), client, srv.URL)
	if err == nil {
		t.Fatal("Expected error for non-success response, got nil")
	}
}

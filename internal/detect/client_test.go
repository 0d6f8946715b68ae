package detect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Infer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/infer" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("Failed to parse multipart form: %v", err)
		}
		if _, _, err := r.FormFile("frame"); err != nil {
			t.Errorf("Missing frame file: %v", err)
		}

		json.NewEncoder(w).Encode(inferResponse{Detections: []Detection{
			{Label: "person", Confidence: 0.92},
			{Label: "bicycle", Confidence: 0.41},
		}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	detections, err := client.Infer(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0xD9})
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}

	if len(detections) != 2 {
		t.Fatalf("Expected 2 detections, got %d", len(detections))
	}
	if detections[0].Label != "person" || detections[0].Confidence != 0.92 {
		t.Errorf("Unexpected first detection: %+v", detections[0])
	}
}

func TestClient_InferServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	if _, err := client.Infer(context.Background(), []byte{0x01}); err == nil {
		t.Error("Expected error for 500 response, got nil")
	}
}

func TestClient_InferEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(inferResponse{})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	detections, err := client.Infer(context.Background(), []byte{0x01})
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if len(detections) != 0 {
		t.Errorf("Expected no detections, got %d", len(detections))
	}
}

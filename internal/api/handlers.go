package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vidobj/vidobj/internal/blob"
	"github.com/vidobj/vidobj/internal/database"
	"github.com/vidobj/vidobj/internal/ingest"
	"github.com/vidobj/vidobj/internal/search"
	"github.com/vidobj/vidobj/internal/session"
)

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

type App struct {
	Ingest        *ingest.Service
	Videos        *database.VideoRepository
	Aggregates    *database.AggregateRepository
	Search        *search.Service
	Sessions      *session.Store
	Blobs         blob.Store
	MaxUploadSize int64
	Log           *zap.Logger
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func parseID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// UploadHandler accepts a multipart video upload and queues it for
// processing. Resubmitting identical content returns the existing record
// with duplicate set.
func (app *App) UploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)

	if err := r.ParseMultipartForm(app.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "File too large")
		return
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing video file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read video file")
		return
	}

	userID, _ := strconv.ParseInt(r.FormValue("user_id"), 10, 64)

	sub, err := app.Ingest.Submit(r.Context(), data, header.Filename, userID)
	if err != nil {
		app.Log.Error("Upload failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to store video")
		return
	}

	status := http.StatusCreated
	if sub.Duplicate {
		status = http.StatusOK
	}
	respondJSON(w, status, sub)
}

type submitURLRequest struct {
	URL    string `json:"url"`
	UserID int64  `json:"user_id"`
}

// SubmitURLHandler downloads a video from a remote link and queues it.
func (app *App) SubmitURLHandler(w http.ResponseWriter, r *http.Request) {
	var req submitURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		respondError(w, http.StatusBadRequest, "Missing video url")
		return
	}

	sub, err := app.Ingest.SubmitURL(r.Context(), req.URL, req.UserID)
	if err != nil {
		app.Log.Error("URL submission failed", zap.String("url", req.URL), zap.Error(err))
		respondError(w, http.StatusBadGateway, "Failed to fetch video")
		return
	}

	status := http.StatusCreated
	if sub.Duplicate {
		status = http.StatusOK
	}
	respondJSON(w, status, sub)
}

func (app *App) GetVideoHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid video id")
		return
	}

	video, err := app.Videos.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Video not found")
			return
		}
		app.Log.Error("Failed to load video", zap.Int64("video_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to load video")
		return
	}

	respondJSON(w, http.StatusOK, video)
}

func (app *App) ListObjectsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid video id")
		return
	}

	if _, err := app.Videos.Get(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Video not found")
			return
		}
		app.Log.Error("Failed to load video", zap.Int64("video_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to load video")
		return
	}

	aggregates, err := app.Aggregates.ListByVideo(r.Context(), id)
	if err != nil {
		app.Log.Error("Failed to load aggregates", zap.Int64("video_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to load detected objects")
		return
	}

	respondJSON(w, http.StatusOK, aggregates)
}

// ReprocessHandler resets a finished or stuck video back to pending and
// queues it again.
func (app *App) ReprocessHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid video id")
		return
	}

	if err := app.Ingest.Reprocess(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			respondError(w, http.StatusNotFound, "Video not found")
		case errors.Is(err, database.ErrInvalidTransition):
			respondError(w, http.StatusConflict, "Video is already pending")
		default:
			app.Log.Error("Reprocess failed", zap.Int64("video_id", id), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "Failed to reprocess video")
		}
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]int64{"id": id})
}

func (app *App) SearchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	results, err := app.Search.Search(r.Context(), query)
	if err != nil {
		app.Log.Error("Search failed", zap.String("query", query), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Search failed")
		return
	}

	respondJSON(w, http.StatusOK, results)
}

func (app *App) EnterSearchModeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(r, "userID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	app.Sessions.SetAwaiting(userID)
	respondJSON(w, http.StatusOK, map[string]bool{"awaiting": true})
}

func (app *App) SearchModeStatusHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(r, "userID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"awaiting": app.Sessions.Awaiting(userID)})
}

func (app *App) LeaveSearchModeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(r, "userID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	app.Sessions.Clear(userID)
	w.WriteHeader(http.StatusNoContent)
}

type searchModeQueryRequest struct {
	Query string `json:"query"`
}

// SearchModeQueryHandler runs the user's queued search query. The user must
// have entered search mode first; the flag is consumed either way.
func (app *App) SearchModeQueryHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(r, "userID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	if !app.Sessions.ConsumeAwaiting(userID) {
		respondError(w, http.StatusConflict, "User is not in search mode")
		return
	}

	var req searchModeQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Missing search query")
		return
	}

	results, err := app.Search.Search(r.Context(), req.Query)
	if err != nil {
		app.Log.Error("Search failed", zap.String("query", req.Query), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Search failed")
		return
	}

	respondJSON(w, http.StatusOK, results)
}

// ServeBlobHandler streams a stored video. ServeContent handles Range
// requests, so browsers can seek.
func (app *App) ServeBlobHandler(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		http.NotFound(w, r)
		return
	}

	file, err := app.Blobs.Open(key)
	if err != nil {
		http.Error(w, "Video file not found", http.StatusNotFound)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", "video/mp4")
	http.ServeContent(w, r, key, time.Time{}, file)
}

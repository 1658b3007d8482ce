package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/dayli-app/dayli"
	"github.com/dayli-app/dayli/authtoken"
	"github.com/dayli-app/dayli/gateway"
)

// Gateway authorizes and executes storage operations.
type Gateway interface {
	IssueUploadCredential(ctx context.Context, req gateway.UploadRequest) (gateway.UploadCredential, error)
	Delete(ctx context.Context, req gateway.DeleteRequest) error
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	CORS CORSConfig
}

// Handler provides the HTTP handlers for the storage API.
type Handler struct {
	config   HandlerConfig
	gateway  Gateway
	verifier authtoken.Verifier
	images   dayli.ImageRepo
}

// NewHandler creates a Handler. images may be nil when the deployment does
// not keep inline image records; the image route then answers 404.
func NewHandler(config *HandlerConfig, gw Gateway, verifier authtoken.Verifier, images dayli.ImageRepo) *Handler {
	return &Handler{
		config:   *config,
		gateway:  gw,
		verifier: verifier,
		images:   images,
	}
}

// Router returns an http.Handler with all routes configured.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Get("/healthz", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(BearerTokenMiddleware)
		r.Post("/storage/presigned-url", h.handlePresignedURL)
		r.Delete("/storage/delete", h.handleDelete)
		r.Get("/images/{imageID}", h.handleGetImage)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type presignedURLRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	UserID      string `json:"userId"`
	UploadType  string `json:"uploadType"`
}

func (h *Handler) handlePresignedURL(w http.ResponseWriter, r *http.Request) {
	var req presignedURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cred, err := h.gateway.IssueUploadCredential(r.Context(), gateway.UploadRequest{
		Token:       TokenFromContext(r.Context()),
		FileName:    req.FileName,
		ContentType: req.ContentType,
		UserID:      req.UserID,
		UploadType:  dayli.UploadType(req.UploadType),
	})
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, cred)
}

type deleteRequest struct {
	FilePath string `json:"filePath"`
	UserID   string `json:"userId"`
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.gateway.Delete(r.Context(), gateway.DeleteRequest{
		Token:    TokenFromContext(r.Context()),
		FilePath: req.FilePath,
		UserID:   req.UserID,
	})
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type imageResponse struct {
	Data     string `json:"data"`
	Filename string `json:"filename"`
	Mimetype string `json:"mimetype"`
	Size     int64  `json:"size"`
}

func (h *Handler) handleGetImage(w http.ResponseWriter, r *http.Request) {
	if h.images == nil {
		WriteError(w, http.StatusNotFound, "not found")
		return
	}

	callerID, err := h.verifier.Verify(TokenFromContext(r.Context()))
	if err != nil {
		HandleError(w, err)
		return
	}

	imageID, err := uuid.Parse(chi.URLParam(r, "imageID"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid image id")
		return
	}

	img, err := h.images.Get(r.Context(), imageID)
	if err != nil {
		HandleError(w, err)
		return
	}

	if img.UserID != callerID {
		WriteError(w, http.StatusForbidden, "not allowed")
		return
	}

	_ = WriteJSON(w, http.StatusOK, imageResponse{
		Data:     img.DataURI,
		Filename: img.Filename,
		Mimetype: img.MimeType,
		Size:     img.Size,
	})
}

package pass

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	domain "github.com/bitloom/mobile-barcode-pass/internal/domain/pass"
	"github.com/bitloom/mobile-barcode-pass/internal/logger"
	"github.com/bitloom/mobile-barcode-pass/internal/service/builder"
)

// Routes served by the handler.
const (
	PassesPath = "/api/mobile-barcode-passes"
	HealthPath = "/healthz"

	// RequestIDHeader carries the per-request correlation id.
	RequestIDHeader = "X-Request-ID"
)

// MaxRequestBodyBytes caps the JSON request body.
const MaxRequestBodyBytes = 1 << 20

// Service abstracts the pipeline the transport depends on.
type Service interface {
	Prepare(ctx context.Context, value string) (*builder.Package, error)
}

// Option configures the handler.
type Option func(*Handler)

// WithAllowedOrigins sets the origins allowed by CORS. Empty means any.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Handler) {
		h.allowedOrigins = append([]string(nil), origins...)
	}
}

// WithServerHeader sets the Server response header.
func WithServerHeader(value string) Option {
	return func(h *Handler) {
		h.serverHeader = value
	}
}

// Handler serves pass downloads.
type Handler struct {
	// service builds packages.
	service Service
	// allowedOrigins are passed to the CORS layer.
	allowedOrigins []string
	// serverHeader is sent with every response when not empty.
	serverHeader string
}

// createRequest is the JSON body of a pass request.
type createRequest struct {
	MobileBarcode *string `json:"mobile_barcode"`
}

// errorResponse is the JSON body of every error reply.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHandler wires service into a router wrapped with CORS.
func NewHandler(service Service, opts ...Option) http.Handler {
	h := &Handler{
		service: service,
	}

	for _, opt := range opts {
		opt(h)
	}

	router := mux.NewRouter()
	router.Use(h.requestID)
	router.HandleFunc(PassesPath, h.createPass).Methods(http.MethodPost)
	router.HandleFunc(HealthPath, h.health).Methods(http.MethodGet, http.MethodHead)

	//nolint:exhaustruct // Remaining CORS options keep library defaults.
	return cors.New(cors.Options{
		AllowedOrigins: h.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodHead},
		AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-Requested-With"},
		ExposedHeaders: []string{"Content-Disposition", RequestIDHeader},
	}).Handler(router)
}

// requestID tags the request context and response with a fresh id.
func (h *Handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()

		w.Header().Set(RequestIDHeader, id)

		if h.serverHeader != "" {
			w.Header().Set("Server", h.serverHeader)
		}

		ctx := logger.WithFields(r.Context(), zap.String("request_id", id))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// health reports liveness.
func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	_, _ = w.Write([]byte("ok"))
}

// createPass builds a pass for the posted credential value and streams it.
func (h *Handler) createPass(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	started := time.Now()

	var req createRequest

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge)

			return
		}

		logger.WarnKV(ctx, "Malformed pass request", "error", err)
		writeError(w, http.StatusBadRequest)

		return
	}

	if req.MobileBarcode == nil || *req.MobileBarcode == "" {
		logger.Warn(ctx, "Pass request without mobile_barcode")
		writeError(w, http.StatusBadRequest)

		return
	}

	pkg, err := h.service.Prepare(ctx, *req.MobileBarcode)
	if err != nil {
		logger.ErrorKV(ctx, "Pass build failed", "stage", domain.StageOf(err), "error", err)
		writeError(w, http.StatusInternalServerError)

		return
	}

	header := w.Header()
	header.Set("Content-Type", domain.PackageMediaType)
	header.Set("Content-Disposition", `attachment; filename="`+domain.PackageFilename+`"`)
	w.WriteHeader(http.StatusOK)

	written, err := pkg.WriteTo(w)
	if err != nil {
		logger.ErrorKV(ctx, "Pass stream interrupted",
			"stage", domain.StageOf(err),
			"written", written,
			"error", err,
		)

		// The status line is already out; drop the connection so the client
		// never sees a truncated archive as complete.
		panic(http.ErrAbortHandler)
	}

	logger.InfoKV(ctx, "Pass issued",
		"bytes", written,
		"elapsed", time.Since(started),
	)
}

// writeError replies with the generic JSON error body for status.
func writeError(w http.ResponseWriter, status int) {
	body, _ := json.Marshal(errorResponse{Error: http.StatusText(status)}) //nolint:errchkjson // Static shape.

	header := w.Header()
	header.Set("Content-Type", "application/json; charset=utf-8")
	header.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)

	_, _ = w.Write(body)
}

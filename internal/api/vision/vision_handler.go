package vision

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/facundoguellutn/mapsy/internal/api"
	"github.com/facundoguellutn/mapsy/internal/api/auth"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	DetectLandmark(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	detector       Detector
	logger         *slog.Logger
	maxUploadBytes int64
}

func NewVisionHandler(detector Detector, logger *slog.Logger, maxUploadBytes int64) *HandlerImpl {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &HandlerImpl{
		detector:       detector,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// ReadImageUpload extracts the "image" part of a multipart form, enforcing
// the size cap and an image/* content type. Errors are already written to w.
func ReadImageUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Image file is required")
		return nil, false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Image file is required")
		return nil, false
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		api.ErrorResponse(w, r, http.StatusBadRequest, "File must be an image")
		return nil, false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Failed to read image file")
		return nil, false
	}
	return data, true
}

func (h *HandlerImpl) DetectLandmark(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("VisionHandler").Start(r.Context(), "DetectLandmark", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/vision/detect-landmark"),
	))
	defer span.End()
	r = r.WithContext(ctx)

	l := h.logger.With(slog.String("handler", "DetectLandmark"))

	if _, ok := auth.RequireUserID(w, r); !ok {
		return
	}

	imageData, ok := ReadImageUpload(w, r, h.maxUploadBytes)
	if !ok {
		return
	}

	detection, err := h.detector.DetectImage(ctx, imageData)
	if err != nil {
		l.ErrorContext(ctx, "Image annotation failed", slog.Any("error", err))
		span.RecordError(err)
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to analyze image")
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, "", detection)
}

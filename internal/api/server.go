package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dunamismax/pixelpipe/internal/domain"
	"github.com/dunamismax/pixelpipe/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultMaxUploadBytes = 32 << 20
	defaultMaxOperations  = 64
	defaultRequestTimeout = 60 * time.Second

	multipartMemory = 8 << 20
)

type Config struct {
	MaxUploadBytes        int64
	MaxOperations         int
	MaxPixels             int
	RequestTimeout        time.Duration
	RateLimitUserIDHeader string
	CORSAllowedOrigins    []string
}

type Server struct {
	logger                *zap.SugaredLogger
	processor             *pipeline.Processor
	validate              *validator.Validate
	metrics               *metrics
	tracer                trace.Tracer
	rateLimiter           RateLimiter
	rateLimitUserIDHeader string
	maxUploadBytes        int64
	maxOperations         int
	requestTimeout        time.Duration
	corsOrigins           []string
	router                chi.Router
}

type Option func(*Server)

func WithRateLimiter(limiter RateLimiter) Option {
	return func(s *Server) {
		s.rateLimiter = limiter
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Server) {
		s.tracer = tracer
	}
}

func NewServer(logger *zap.SugaredLogger, cfg Config, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.MaxOperations <= 0 {
		cfg.MaxOperations = defaultMaxOperations
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if strings.TrimSpace(cfg.RateLimitUserIDHeader) == "" {
		cfg.RateLimitUserIDHeader = "X-User-ID"
	}

	s := &Server{
		logger:                logger,
		validate:              validator.New(validator.WithRequiredStructEnabled()),
		metrics:               newMetrics(),
		rateLimitUserIDHeader: cfg.RateLimitUserIDHeader,
		maxUploadBytes:        cfg.MaxUploadBytes,
		maxOperations:         cfg.MaxOperations,
		requestTimeout:        cfg.RequestTimeout,
		corsOrigins:           cfg.CORSAllowedOrigins,
	}
	for _, opt := range opts {
		opt(s)
	}

	processorOpts := []pipeline.ProcessorOption{pipeline.WithStepObserver(s.metrics.observeStep)}
	if s.tracer != nil {
		processorOpts = append(processorOpts, pipeline.WithTracer(s.tracer))
	}
	s.processor = pipeline.NewProcessor(pipeline.NewCodec(cfg.MaxPixels), nil, processorOpts...)

	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(withRequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.withCORS)
	r.Use(s.withTracing)
	r.Use(s.metrics.withHTTPMetrics)
	r.Use(s.withRequestLogging)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", s.metrics.metricsHandler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.requestTimeout))
		r.Post("/process", s.handleProcess)
		r.Post("/v1/process", s.handleProcess)
	})

	s.router = r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type processResponse struct {
	OriginalImage  string `json:"original_image"`
	ProcessedImage string `json:"processed_image"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	requestID := RequestIDFromContext(r.Context())

	source, ops, err := s.readProcessForm(w, r)
	if err != nil {
		s.writeRequestError(w, err)
		return
	}

	if !s.allowRequest(w, r, len(ops)) {
		return
	}

	out, err := s.processor.Process(r.Context(), pipeline.Request{
		ID:         requestID,
		Source:     source,
		Operations: ops,
	})
	if err != nil {
		s.writeProcessError(w, requestID, err)
		return
	}

	s.logger.Infow("image processed",
		"request_id", requestID,
		"operations", len(ops),
		"width", out.Width,
		"height", out.Height,
		"mode", out.Mode.String(),
	)
	writeJSON(w, http.StatusOK, processResponse{
		OriginalImage:  base64.StdEncoding.EncodeToString(out.OriginalPNG),
		ProcessedImage: base64.StdEncoding.EncodeToString(out.ProcessedPNG),
	})
}

// requestError is a problem with the shape of the request itself, reported to
// the caller verbatim.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string {
	return e.message
}

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, message: fmt.Sprintf(format, args...)}
}

func (s *Server) readProcessForm(w http.ResponseWriter, r *http.Request) ([]byte, []domain.Operation, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, &requestError{status: http.StatusRequestEntityTooLarge, message: "upload too large"}
		}
		return nil, nil, badRequest("invalid multipart form: %v", err)
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, nil, badRequest("file is required")
	}
	defer file.Close()

	source, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, badRequest("read upload: %v", err)
	}

	ops, err := operationsFromForm(r)
	if err != nil {
		return nil, nil, err
	}
	if err := s.validateOperations(ops); err != nil {
		return nil, nil, err
	}
	return source, ops, nil
}

func operationsFromForm(r *http.Request) ([]domain.Operation, error) {
	if values, ok := r.MultipartForm.Value["operations"]; ok && len(values) > 0 {
		ops, err := domain.ParseOperations(values[0])
		if err != nil {
			return nil, badRequest("%v", err)
		}
		return ops, nil
	}

	if values, ok := r.MultipartForm.Value["operation"]; ok && len(values) > 0 {
		name := strings.TrimSpace(values[0])
		if name == "" {
			return nil, badRequest("operation is empty")
		}
		return []domain.Operation{{Name: name}}, nil
	}

	return nil, badRequest("operations is required")
}

func (s *Server) validateOperations(ops []domain.Operation) error {
	if err := s.validate.Var(ops, "max="+strconv.Itoa(s.maxOperations)); err != nil {
		return badRequest("too many operations: %d exceeds limit of %d", len(ops), s.maxOperations)
	}
	for i, op := range ops {
		if err := s.validate.Struct(op); err != nil {
			return badRequest("operations[%d]: %s", i, validationMessage(err))
		}
	}
	return nil
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}

func (s *Server) writeRequestError(w http.ResponseWriter, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		s.metrics.pipelineFailures.WithLabelValues("bad_request").Inc()
		writeJSON(w, reqErr.status, map[string]string{"error": reqErr.message})
		return
	}
	s.logger.Errorw("read request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func (s *Server) writeProcessError(w http.ResponseWriter, requestID string, err error) {
	var unknown *pipeline.UnknownOperationError
	switch {
	case errors.Is(err, pipeline.ErrInvalidImage):
		s.metrics.pipelineFailures.WithLabelValues("invalid_image").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid image"})
	case errors.Is(err, pipeline.ErrImageTooLarge):
		s.metrics.pipelineFailures.WithLabelValues("image_too_large").Inc()
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "image too large"})
	case errors.As(err, &unknown):
		s.metrics.pipelineFailures.WithLabelValues("unknown_operation").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Unknown operation: " + unknown.Name})
	default:
		s.metrics.pipelineFailures.WithLabelValues("internal").Inc()
		s.logger.Errorw("process image failed", "request_id", requestID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to process image"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

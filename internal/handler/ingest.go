package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/The-Clarity-Projekt/chat-client/internal/model"
	"github.com/The-Clarity-Projekt/chat-client/internal/service"
	"github.com/The-Clarity-Projekt/chat-client/internal/store"
	"github.com/The-Clarity-Projekt/chat-client/pkg/response"
)

type IngestHandler struct {
	service   *service.IngestService
	validator *validator.Validate
}

func NewIngestHandler(svc *service.IngestService, v *validator.Validate) *IngestHandler {
	return &IngestHandler{
		service:   svc,
		validator: v,
	}
}

// Panopto handles POST /api/ingest/panopto
// @Summary      Start Panopto ingest
// @Description  Queue a batch that transcribes every new recording of a Panopto tenant or folder
// @Tags         Ingest
// @Accept       json
// @Produce      json
// @Param        request body model.PanoptoIngestRequest true "Panopto ingest request"
// @Success      202 {object} model.IngestStartResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Failure      503 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/ingest/panopto [post]
func (h *IngestHandler) Panopto(c *fiber.Ctx) error {
	var req model.PanoptoIngestRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return validationFailure(c, "Missing required Panopto credentials", err)
	}

	result, err := h.service.StartPanopto(c.UserContext(), &req)
	if err != nil {
		return startFailure(c, err)
	}

	return response.Accepted(c, result)
}

// Canvas handles POST /api/ingest/canvas
// @Summary      Start Canvas ingest
// @Description  Queue a batch over the Panopto folders and content of a Canvas tenant or course
// @Tags         Ingest
// @Accept       json
// @Produce      json
// @Param        request body model.CanvasIngestRequest true "Canvas ingest request"
// @Success      202 {object} model.IngestStartResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Failure      503 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/ingest/canvas [post]
func (h *IngestHandler) Canvas(c *fiber.Ctx) error {
	var req model.CanvasIngestRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return validationFailure(c, "Missing required Canvas credentials", err)
	}

	result, err := h.service.StartCanvas(c.UserContext(), &req)
	if err != nil {
		return startFailure(c, err)
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/ingest/status/:jobId
// @Summary      Get ingest job status
// @Tags         Ingest
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.IngestStatusResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/ingest/status/{jobId} [get]
func (h *IngestHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetStatus(c.UserContext(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Queue handles GET /api/ingest/queue
// @Summary      Transcription queue occupancy
// @Tags         Ingest
// @Produce      json
// @Success      200 {object} model.QueueStatusResponse
// @Security     BearerAuth
// @Router       /api/ingest/queue [get]
func (h *IngestHandler) Queue(c *fiber.Ctx) error {
	return response.OK(c, h.service.QueueStatus())
}

// validationFailure separates absent credentials from malformed fields
func validationFailure(c *fiber.Ctx, credentialsMessage string, err error) error {
	details := formatValidationErrors(err)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs {
			if e.Tag() == "required" && (e.Field() == "Tenant" || e.Field() == "AuthToken") {
				return response.ConfigurationMissing(c, fiber.StatusBadRequest, credentialsMessage, details)
			}
		}
	}
	return response.ValidationError(c, "Validation failed", details)
}

func startFailure(c *fiber.Ctx, err error) error {
	switch model.KindOf(err) {
	case model.KindConfigurationMissing:
		return response.ConfigurationMissing(c, fiber.StatusServiceUnavailable, err.Error(), nil)
	case model.KindSourceUnavailable:
		return response.SourceUnavailable(c, err.Error())
	default:
		return response.ServiceError(c, err.Error())
	}
}

func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}

package interview

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/interviews", h.StartInterview)
	api.GET("/interviews/:id", h.GetInterview)
	api.POST("/interviews/:id/answers", h.AnswerQuestion)
	api.POST("/interviews/:id/symptoms", h.AddSymptom)
	api.POST("/interviews/:id/triage", h.RequestTriage)
	api.POST("/interviews/:id/complete", h.CompleteInterview)
	api.POST("/interviews/:id/abandon", h.AbandonInterview)
	api.DELETE("/interviews/:id", h.ResetInterview)

	api.GET("/concepts/search", h.SearchConcepts)
	api.POST("/mentions", h.ExtractMentions)
}

type caseResponse struct {
	Case     *PatientCase `json:"case"`
	Progress int          `json:"progress"`
}

type answersRequest struct {
	Answers []Answer `json:"answers" validate:"required,min=1,dive"`
}

type symptomRequest struct {
	ConceptID string        `json:"concept_id" validate:"required"`
	State     EvidenceState `json:"state" validate:"required,oneof=present absent unknown"`
}

type mentionRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

func (h *Handler) StartInterview(c echo.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	var req StartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	res, err := h.svc.Start(c.Request().Context(), owner, req)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetInterview(c echo.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	pc, progress, err := h.svc.Get(c.Request().Context(), owner, c.Param("id"))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, caseResponse{Case: pc, Progress: progress})
}

func (h *Handler) AnswerQuestion(c echo.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	var req answersRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	pc, err := h.svc.Answer(c.Request().Context(), owner, c.Param("id"), req.Answers)
	if err != nil {
		return toHTTPError(c, err)
	}
	return h.respondCase(c, pc)
}

func (h *Handler) AddSymptom(c echo.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	var req symptomRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	pc, err := h.svc.AddSymptom(c.Request().Context(), owner, c.Param("id"), req.ConceptID, req.State)
	if err != nil {
		return toHTTPError(c, err)
	}
	return h.respondCase(c, pc)
}

func (h *Handler) RequestTriage(c echo.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	tr, err := h.svc.RequestTriage(c.Request().Context(), owner, c.Param("id"))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, tr)
}

func (h *Handler) CompleteInterview(c echo.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	pc, err := h.svc.Complete(c.Request().Context(), owner, c.Param("id"))
	if err != nil {
		return toHTTPError(c, err)
	}
	return h.respondCase(c, pc)
}

func (h *Handler) AbandonInterview(c echo.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	pc, err := h.svc.Abandon(c.Request().Context(), owner, c.Param("id"))
	if err != nil {
		return toHTTPError(c, err)
	}
	return h.respondCase(c, pc)
}

func (h *Handler) ResetInterview(c echo.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Reset(c.Request().Context(), owner, c.Param("id")); err != nil {
		return toHTTPError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SearchConcepts(c echo.Context) error {
	matches, err := h.svc.Search(c.Request().Context(), c.QueryParam("phrase"))
	if err != nil {
		return toHTTPError(c, err)
	}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil && limit > 0 && limit < len(matches) {
		matches = matches[:limit]
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"matches": matches,
	})
}

func (h *Handler) ExtractMentions(c echo.Context) error {
	var req mentionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	res, err := h.svc.Extract(c.Request().Context(), req.Text)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) respondCase(c echo.Context, pc *PatientCase) error {
	return c.JSON(http.StatusOK, caseResponse{Case: pc, Progress: progressOf(pc, h.svc.Limits())})
}

func ownerID(c echo.Context) (string, error) {
	uid := auth.UserIDFromContext(c.Request().Context())
	if uid == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing subject")
	}
	return uid, nil
}

// toHTTPError maps interview errors onto HTTP status codes.
func toHTTPError(c echo.Context, err error) error {
	var ve *ValidationError
	var ice *InvalidCaseError
	var rle *RateLimitError
	var te *TransportError

	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	case errors.As(err, &ice):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, ice.Error())
	case errors.Is(err, ErrCaseNotFound), errors.Is(err, ErrNotStarted):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.As(err, &rle):
		if secs := int(rle.RetryAfter.Seconds()); secs > 0 {
			c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
		}
		return echo.NewHTTPError(http.StatusTooManyRequests, rle.Error())
	case errors.As(err, &te):
		return echo.NewHTTPError(http.StatusBadGateway, te.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "reasoning timed out")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
}

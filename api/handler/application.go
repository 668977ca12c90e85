package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/kazilink/backend/api/transport"
	"github.com/kazilink/backend/domain"
	"github.com/kazilink/backend/pkg/httpcontext"
	"github.com/kazilink/backend/usecase/admission"
	"github.com/kazilink/backend/usecase/award"
	taskUC "github.com/kazilink/backend/usecase/task"
)

type ApplicationHandler struct {
	baseHandler
	admission *admission.Controller
	award     *award.Controller
	tasks     *taskUC.UseCase
}

func NewApplicationHandler(
	adm *admission.Controller,
	awd *award.Controller,
	tasks *taskUC.UseCase,
	adapter *httpcontext.Adapter,
	logger *zap.Logger,
) *ApplicationHandler {
	return &ApplicationHandler{
		baseHandler: newBaseHandler(adapter, logger),
		admission:   adm,
		award:       awd,
		tasks:       tasks,
	}
}

// @Summary Apply to a task
// @Tags applications
// @Router /api/v1/applications [post]
func (h *ApplicationHandler) Apply(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == "" {
		return
	}

	var req transport.ApplicationRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}
	if req.TaskID == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing task id", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	app, err := h.admission.Submit(stdCtx, req.TaskID, actorID, req.ProposedPrice, req.Message)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, app)
}

// @Summary Accept an application
// @Tags applications
// @Router /api/v1/applications/{id}/accept [post]
func (h *ApplicationHandler) Accept(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == "" {
		return
	}
	id, ok := h.applicationID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.award.Accept(stdCtx, id, actorID); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]string{"message": "application accepted"})
}

// @Summary Reject an application
// @Tags applications
// @Router /api/v1/applications/{id}/reject [post]
func (h *ApplicationHandler) Reject(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == "" {
		return
	}
	id, ok := h.applicationID(ctx)
	if !ok {
		return
	}

	var req transport.RejectRequest
	if len(ctx.PostBody()) > 0 {
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
			return
		}
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.award.Reject(stdCtx, id, actorID, req.RejectionMessage); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]string{"message": "application rejected"})
}

// @Summary List a task's applications
// @Tags applications
// @Router /api/v1/tasks/{id}/applications [get]
func (h *ApplicationHandler) ListByTask(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == "" {
		return
	}
	taskID, _ := ctx.UserValue("id").(string)
	if taskID == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing task id", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	apps, err := h.tasks.ListApplications(stdCtx, taskID, actorID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, apps)
}

// @Summary Live application count for a task
// @Tags applications
// @Router /api/v1/tasks/{id}/applications/count [get]
func (h *ApplicationHandler) CountByTask(ctx *fasthttp.RequestCtx) {
	if h.actorID(ctx) == "" {
		return
	}
	taskID, _ := ctx.UserValue("id").(string)
	if taskID == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing task id", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	count, err := h.tasks.ApplicationCount(stdCtx, taskID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]int{"count": count})
}

// @Summary List the caller's applications
// @Tags applications
// @Router /api/v1/applications/mine [get]
func (h *ApplicationHandler) ListMine(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	apps, err := h.tasks.ListTaskerApplications(stdCtx, actorID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, apps)
}

func (h *ApplicationHandler) applicationID(ctx *fasthttp.RequestCtx) (string, bool) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing application id", nil))
		return "", false
	}
	return id, true
}

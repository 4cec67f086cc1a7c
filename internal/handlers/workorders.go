package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ukydev/fleet-compliance/internal/middleware"
	"github.com/ukydev/fleet-compliance/internal/models"
)

// CreateWorkOrder raises a manual work order in draft.
func (h *Handler) CreateWorkOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateWorkOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	order, err := h.svc.CreateWorkOrder(r.Context(), req, middleware.GetActorFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, order)
}

// GetWorkOrder returns a single work order.
func (h *Handler) GetWorkOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.GetWorkOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

// ListWorkOrders lists orders filtered by ?equipment_id, ?template_id and
// ?status (comma separated).
func (h *Handler) ListWorkOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.WorkOrderFilter{
		EquipmentID: q.Get("equipment_id"),
		TemplateID:  q.Get("template_id"),
	}
	if raw := q.Get("status"); raw != "" {
		statuses, err := parseStatuses(raw)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		filter.Statuses = statuses
	}

	orders, err := h.svc.ListWorkOrders(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if orders == nil {
		orders = []models.WorkOrder{}
	}
	h.writeJSON(w, http.StatusOK, orders)
}

// TransitionWorkOrder moves an order to the requested status.
func (h *Handler) TransitionWorkOrder(w http.ResponseWriter, r *http.Request) {
	var req models.TransitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if !models.IsValidStatus(req.To) {
		h.writeError(w, r, fmt.Errorf("%w: unknown status %q", models.ErrInvalidArgument, req.To))
		return
	}

	order, err := h.svc.Transition(r.Context(), r.PathValue("id"), req.To, middleware.GetActorFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

func parseStatuses(raw string) ([]models.WorkOrderStatus, error) {
	var out []models.WorkOrderStatus
	for _, part := range strings.Split(raw, ",") {
		s := models.WorkOrderStatus(strings.TrimSpace(part))
		if s == "" {
			continue
		}
		if !models.IsValidStatus(s) {
			return nil, fmt.Errorf("%w: unknown status %q", models.ErrInvalidArgument, s)
		}
		out = append(out, s)
	}
	return out, nil
}

package handlers

import (
	"net/http"

	"github.com/ukydev/fleet-compliance/internal/models"
)

// RecordInspection accepts a roadside inspection and returns the work order
// it raised, if any.
func (h *Handler) RecordInspection(w http.ResponseWriter, r *http.Request) {
	var ev models.InspectionEvent
	if err := decodeJSON(w, r, &ev); err != nil {
		h.writeError(w, r, err)
		return
	}

	order, err := h.svc.OnInspectionRecorded(r.Context(), ev)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := workOrdersResponse{WorkOrders: []models.WorkOrder{}}
	if order != nil {
		resp.WorkOrders = append(resp.WorkOrders, *order)
	}
	h.writeJSON(w, http.StatusAccepted, resp)
}

// RecordUsage accepts a usage reading and returns the maintenance orders it raised.
func (h *Handler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	var obs models.UsageObservation
	if err := decodeJSON(w, r, &obs); err != nil {
		h.writeError(w, r, err)
		return
	}

	created, err := h.svc.RecordUsage(r.Context(), obs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if created == nil {
		created = []models.WorkOrder{}
	}
	h.writeJSON(w, http.StatusAccepted, workOrdersResponse{WorkOrders: created})
}

// UpsertTemplate stores a maintenance template.
func (h *Handler) UpsertTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl models.MaintenanceTemplate
	if err := decodeJSON(w, r, &tpl); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.UpsertTemplate(r.Context(), tpl); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tpl)
}

// ListTemplates lists templates, optionally for ?equipment_id.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.svc.ListTemplates(r.Context(), r.URL.Query().Get("equipment_id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if templates == nil {
		templates = []models.MaintenanceTemplate{}
	}
	h.writeJSON(w, http.StatusOK, templates)
}

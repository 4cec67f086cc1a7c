// Package handlers exposes the work order core over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-compliance/internal/models"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Service is the subset of the orchestrator the HTTP layer needs.
type Service interface {
	OnInspectionRecorded(ctx context.Context, ev models.InspectionEvent) (*models.WorkOrder, error)
	RecordUsage(ctx context.Context, obs models.UsageObservation) ([]models.WorkOrder, error)
	CreateWorkOrder(ctx context.Context, req models.CreateWorkOrderRequest, actor string) (*models.WorkOrder, error)
	GetWorkOrder(ctx context.Context, id string) (*models.WorkOrder, error)
	ListWorkOrders(ctx context.Context, filter models.WorkOrderFilter) ([]models.WorkOrder, error)
	Transition(ctx context.Context, orderID string, to models.WorkOrderStatus, actor string) (*models.WorkOrder, error)
	UpsertTemplate(ctx context.Context, tpl models.MaintenanceTemplate) error
	ListTemplates(ctx context.Context, equipmentID string) ([]models.MaintenanceTemplate, error)
	ListInspections(ctx context.Context) ([]models.InspectionEvent, error)
}

// Handler serves the API endpoints.
type Handler struct {
	svc Service
	log logrus.FieldLogger
	now func() time.Time
}

// NewHandler creates a handler backed by svc.
func NewHandler(svc Service, logger logrus.FieldLogger) *Handler {
	return &Handler{
		svc: svc,
		log: logger.WithField("component", "http"),
		now: time.Now,
	}
}

// workOrdersResponse wraps orders created by an intake call.
type workOrdersResponse struct {
	WorkOrders []models.WorkOrder `json:"work_orders"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", models.ErrInvalidArgument, err)
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Warn("Failed to encode response")
	}
}

// statusFor maps a domain error onto an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrConcurrentModify),
		errors.Is(err, models.ErrDuplicateTrigger):
		return http.StatusConflict
	case errors.Is(err, models.ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	entry := h.log.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
		if status == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", "5")
			http.Error(w, "Service temporarily unavailable", status)
			return
		}
		http.Error(w, "Internal server error", status)
		return
	}
	entry.Debug("Request rejected")
	http.Error(w, err.Error(), status)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ukydev/fleet-compliance/internal/models"
	"github.com/ukydev/fleet-compliance/internal/reporting"
)

const dateLayout = "2006-01-02"

// Summary returns KPIs for orders created within ?from..?to as of ?as_of.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	asOf, window, err := h.reportParams(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	orders, err := h.svc.ListWorkOrders(r.Context(), models.WorkOrderFilter{})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, reporting.Summarize(reporting.FilterCreatedWithin(orders, window), asOf))
}

// Watchlist returns the equipment and driver risk rows.
func (h *Handler) Watchlist(w http.ResponseWriter, r *http.Request) {
	asOf, window, err := h.reportParams(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	orders, err := h.svc.ListWorkOrders(r.Context(), models.WorkOrderFilter{})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	inspections, err := h.svc.ListInspections(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, reporting.BuildWatchlist(orders, inspections, asOf, window))
}

// reportParams reads as_of (default today), from and to. The window is
// [from, to+1 day) so both bounds are inclusive dates.
func (h *Handler) reportParams(q url.Values) (time.Time, reporting.Window, error) {
	asOf := h.now().UTC()
	var window reporting.Window

	if raw := q.Get("as_of"); raw != "" {
		d, err := parseDate("as_of", raw)
		if err != nil {
			return time.Time{}, window, err
		}
		asOf = d
	}
	if raw := q.Get("from"); raw != "" {
		d, err := parseDate("from", raw)
		if err != nil {
			return time.Time{}, window, err
		}
		window.From = d
	}
	if raw := q.Get("to"); raw != "" {
		d, err := parseDate("to", raw)
		if err != nil {
			return time.Time{}, window, err
		}
		window.To = d.AddDate(0, 0, 1)
	}
	if !window.From.IsZero() && !window.To.IsZero() && !window.From.Before(window.To) {
		return time.Time{}, window, fmt.Errorf("%w: from must not be after to", models.ErrInvalidArgument)
	}
	return asOf, window, nil
}

func parseDate(name, raw string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", models.ErrInvalidArgument, name)
	}
	return d, nil
}

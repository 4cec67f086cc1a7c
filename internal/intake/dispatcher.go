// Package intake accepts inspection and usage events from message transports.
//
// Every message is a JSON envelope:
//
//	{"kind": "inspection", "data": {...InspectionEvent...}}
//	{"kind": "usage",      "data": {...UsageObservation...}}
//
// The kind is read without decoding the whole payload; data is then decoded
// strictly into the matching record.
package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/ukydev/fleet-compliance/internal/models"
)

const (
	KindInspection = "inspection"
	KindUsage      = "usage"
)

// ErrUnknownKind is returned for envelopes whose kind is not handled.
var ErrUnknownKind = errors.New("unknown envelope kind")

// Handler receives decoded events.
type Handler interface {
	OnInspectionRecorded(ctx context.Context, ev models.InspectionEvent) (*models.WorkOrder, error)
	RecordUsage(ctx context.Context, obs models.UsageObservation) ([]models.WorkOrder, error)
}

// Dispatcher routes envelopes to a Handler.
type Dispatcher struct {
	handler Handler
	log     logrus.FieldLogger
}

// NewDispatcher creates a dispatcher feeding handler.
func NewDispatcher(handler Handler, logger logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{handler: handler, log: logger.WithField("component", "intake")}
}

// Dispatch decodes one envelope and hands it to the handler.
func (d *Dispatcher) Dispatch(ctx context.Context, payload []byte) error {
	if !gjson.ValidBytes(payload) {
		return fmt.Errorf("%w: envelope is not valid JSON", models.ErrInvalidArgument)
	}
	kind := gjson.GetBytes(payload, "kind").String()
	data := gjson.GetBytes(payload, "data")
	if !data.IsObject() {
		return fmt.Errorf("%w: envelope %q has no data object", models.ErrInvalidArgument, kind)
	}

	switch kind {
	case KindInspection:
		var ev models.InspectionEvent
		if err := decodeStrict(data.Raw, &ev); err != nil {
			return err
		}
		order, err := d.handler.OnInspectionRecorded(ctx, ev)
		if err != nil {
			return fmt.Errorf("inspection %s: %w", ev.ID, err)
		}
		entry := d.log.WithFields(logrus.Fields{"kind": kind, "inspection_id": ev.ID})
		if order != nil {
			entry = entry.WithField("work_order_id", order.ID)
		}
		entry.Info("Inspection processed")
		return nil

	case KindUsage:
		var obs models.UsageObservation
		if err := decodeStrict(data.Raw, &obs); err != nil {
			return err
		}
		created, err := d.handler.RecordUsage(ctx, obs)
		if err != nil {
			return fmt.Errorf("usage for %s: %w", obs.EquipmentID, err)
		}
		d.log.WithFields(logrus.Fields{
			"kind":         kind,
			"equipment_id": obs.EquipmentID,
			"created":      len(created),
		}).Info("Usage processed")
		return nil

	default:
		return fmt.Errorf("%w: %w %q", models.ErrInvalidArgument, ErrUnknownKind, kind)
	}
}

func decodeStrict(raw string, out interface{}) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidArgument, err)
	}
	return nil
}

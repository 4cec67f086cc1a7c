package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-compliance/internal/models"
)

type MockHandler struct {
	mock.Mock
}

func (m *MockHandler) OnInspectionRecorded(ctx context.Context, ev models.InspectionEvent) (*models.WorkOrder, error) {
	args := m.Called(ctx, ev)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WorkOrder), args.Error(1)
}

func (m *MockHandler) RecordUsage(ctx context.Context, obs models.UsageObservation) ([]models.WorkOrder, error) {
	args := m.Called(ctx, obs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WorkOrder), args.Error(1)
}

const inspectionEnvelope = `{
  "kind": "inspection",
  "data": {
    "id": "insp-1",
    "report_number": "MD0042",
    "vehicle_id": "truck-7",
    "driver_id": "drv-3",
    "inspection_date": "2026-03-01T00:00:00Z",
    "out_of_service": false,
    "violations": [{"code": "393.47", "type": "vehicle", "oos": true}]
  }
}`

func TestDispatch_Inspection(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := new(MockHandler)
	h.On("OnInspectionRecorded", mock.Anything, mock.MatchedBy(func(ev models.InspectionEvent) bool {
		return ev.ID == "insp-1" && ev.VehicleID == "truck-7" && len(ev.Violations) == 1 && ev.Violations[0].OOS &&
			ev.InspectionDate.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	})).Return(&models.WorkOrder{ID: "wo-1"}, nil)

	d := NewDispatcher(h, logger)
	require.NoError(t, d.Dispatch(context.Background(), []byte(inspectionEnvelope)))

	h.AssertExpectations(t)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "wo-1", hook.LastEntry().Data["work_order_id"])
}

func TestDispatch_Usage(t *testing.T) {
	logger, _ := test.NewNullLogger()
	h := new(MockHandler)
	h.On("RecordUsage", mock.Anything, mock.MatchedBy(func(obs models.UsageObservation) bool {
		return obs.EquipmentID == "truck-7" && obs.CurrentMiles != nil && *obs.CurrentMiles == 135000 && obs.CurrentHours == nil
	})).Return([]models.WorkOrder{{ID: "wo-2"}}, nil)

	d := NewDispatcher(h, logger)
	payload := `{"kind":"usage","data":{"equipment_id":"truck-7","current_date":"2026-03-02T00:00:00Z","current_miles":135000}}`
	require.NoError(t, d.Dispatch(context.Background(), []byte(payload)))
	h.AssertExpectations(t)
}

func TestDispatch_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		unknown bool
	}{
		{"not json", `{"kind":`, false},
		{"unknown kind", `{"kind":"trip","data":{}}`, true},
		{"missing kind", `{"data":{}}`, true},
		{"missing data", `{"kind":"usage"}`, false},
		{"data not an object", `{"kind":"usage","data":[1,2]}`, false},
		{"unknown field", `{"kind":"usage","data":{"equipment_id":"t","current_date":"2026-03-02T00:00:00Z","speed":40}}`, false},
		{"wrong type", `{"kind":"inspection","data":{"id":7}}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := test.NewNullLogger()
			h := new(MockHandler)
			d := NewDispatcher(h, logger)

			err := d.Dispatch(context.Background(), []byte(tt.payload))
			assert.ErrorIs(t, err, models.ErrInvalidArgument)
			assert.Equal(t, tt.unknown, errors.Is(err, ErrUnknownKind))
			h.AssertNotCalled(t, "OnInspectionRecorded", mock.Anything, mock.Anything)
			h.AssertNotCalled(t, "RecordUsage", mock.Anything, mock.Anything)
		})
	}
}

func TestDispatch_HandlerError(t *testing.T) {
	logger, _ := test.NewNullLogger()
	h := new(MockHandler)
	h.On("OnInspectionRecorded", mock.Anything, mock.Anything).Return(nil, models.ErrStoreUnavailable)

	d := NewDispatcher(h, logger)
	err := d.Dispatch(context.Background(), []byte(inspectionEnvelope))
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}

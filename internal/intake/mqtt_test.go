package intake

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/ukydev/fleet-compliance/internal/models"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 7 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func TestSubscriber_HandleMessageDispatches(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := new(MockHandler)
	h.On("OnInspectionRecorded", mock.Anything, mock.Anything).Return(nil, nil)

	s := NewSubscriber(context.Background(), MQTTConfig{Broker: "tcp://localhost:1883", Topics: []string{"fleet/inspections"}}, NewDispatcher(h, logger), logger)
	s.handleMessage(nil, &fakeMessage{topic: "fleet/inspections", payload: []byte(inspectionEnvelope)})

	h.AssertExpectations(t)
	for _, e := range hook.AllEntries() {
		assert.NotEqual(t, logrus.ErrorLevel, e.Level)
	}
}

func TestSubscriber_HandleMessageLogsBadPayload(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := new(MockHandler)

	s := NewSubscriber(context.Background(), MQTTConfig{Broker: "tcp://localhost:1883"}, NewDispatcher(h, logger), logger)
	s.handleMessage(nil, &fakeMessage{topic: "fleet/usage", payload: []byte("garbage")})

	entry := hook.LastEntry()
	if assert.NotNil(t, entry) {
		assert.Equal(t, logrus.ErrorLevel, entry.Level)
		assert.Equal(t, "fleet/usage", entry.Data["topic"])
		assert.ErrorIs(t, entry.Data[logrus.ErrorKey].(error), models.ErrInvalidArgument)
	}
}

func TestSubscriber_CloseWithoutConnect(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := NewSubscriber(context.Background(), MQTTConfig{}, NewDispatcher(new(MockHandler), logger), logger)
	s.Close()
}

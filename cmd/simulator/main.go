package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-compliance/internal/models"
)

// Truck is the simulated state of one piece of equipment.
type Truck struct {
	ID       string
	DriverID string
	Miles    float64
	Hours    float64
	// MilesPerDay is the average distance driven per simulated day.
	MilesPerDay float64
}

// violationCatalog is a small set of roadside violation codes.
var violationCatalog = []models.Violation{
	{Code: "393.47", Description: "Brakes out of adjustment", Type: models.ViolationVehicle, OOS: true},
	{Code: "393.9", Description: "Inoperable required lamp", Type: models.ViolationVehicle},
	{Code: "393.75", Description: "Tire tread depth", Type: models.ViolationVehicle, OOS: true},
	{Code: "396.3", Description: "Inspection and maintenance records", Type: models.ViolationVehicle},
	{Code: "395.8", Description: "Record of duty status", Type: models.ViolationDriver},
	{Code: "391.41", Description: "No medical certificate", Type: models.ViolationDriver, OOS: true},
}

// Sender delivers records to the service.
type Sender interface {
	SendTemplate(tpl models.MaintenanceTemplate) error
	SendUsage(obs models.UsageObservation) error
	SendInspection(ev models.InspectionEvent) error
}

// httpSender posts records to the REST API.
type httpSender struct {
	baseURL string
	actor   string
	client  *http.Client
}

func newHTTPSender(baseURL, actor string) *httpSender {
	return &httpSender{baseURL: baseURL, actor: actor, client: &http.Client{Timeout: 10 * time.Second}}
}

func (s *httpSender) post(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", path, err)
	}
	req, err := http.NewRequest(http.MethodPost, s.baseURL+path, bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.actor != "" {
		req.Header.Set("X-Actor-ID", s.actor)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s failed with status: %d", path, resp.StatusCode)
	}
	return nil
}

func (s *httpSender) SendTemplate(tpl models.MaintenanceTemplate) error {
	return s.post("/templates", tpl)
}

func (s *httpSender) SendUsage(obs models.UsageObservation) error {
	return s.post("/usage", obs)
}

func (s *httpSender) SendInspection(ev models.InspectionEvent) error {
	return s.post("/inspections", ev)
}

// envelope matches the intake message format.
type envelope struct {
	Kind string      `json:"kind"`
	Data interface{} `json:"data"`
}

// mqttSender publishes inspections and usage readings to the broker. Templates
// have no topic and still go over HTTP.
type mqttSender struct {
	client          mqtt.Client
	inspectionTopic string
	usageTopic      string
	templates       *httpSender
}

func newMQTTSender(broker, inspectionTopic, usageTopic string, templates *httpSender) (*mqttSender, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("fleet-simulator-" + uuid.NewString()[:8]).
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.WaitTimeout(10*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return &mqttSender{client: client, inspectionTopic: inspectionTopic, usageTopic: usageTopic, templates: templates}, nil
}

func (s *mqttSender) publish(topic, kind string, v interface{}) error {
	data, err := json.Marshal(envelope{Kind: kind, Data: v})
	if err != nil {
		return fmt.Errorf("failed to marshal %s envelope: %w", kind, err)
	}
	token := s.client.Publish(topic, 1, false, data)
	token.Wait()
	return token.Error()
}

func (s *mqttSender) SendTemplate(tpl models.MaintenanceTemplate) error {
	return s.templates.SendTemplate(tpl)
}

func (s *mqttSender) SendUsage(obs models.UsageObservation) error {
	return s.publish(s.usageTopic, "usage", obs)
}

func (s *mqttSender) SendInspection(ev models.InspectionEvent) error {
	return s.publish(s.inspectionTopic, "inspection", ev)
}

func (s *mqttSender) Close() {
	s.client.Disconnect(250)
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func newTruck(rng *rand.Rand, i int) *Truck {
	return &Truck{
		ID:          fmt.Sprintf("truck-%03d", i+1),
		DriverID:    fmt.Sprintf("drv-%03d", i+1),
		Miles:       20000 + float64(rng.Intn(180000)),
		Hours:       1000 + float64(rng.Intn(8000)),
		MilesPerDay: 250 + rng.Float64()*250,
	}
}

// templatesFor returns the maintenance plan for a truck. Baselines are set a
// random way into the interval so trucks come due at different times.
func templatesFor(rng *rand.Rand, t *Truck, today time.Time) []models.MaintenanceTemplate {
	lastOil := t.Miles - float64(rng.Intn(15000))
	lastPM := today.AddDate(0, 0, -rng.Intn(90))
	lastHours := t.Hours - float64(rng.Intn(500))
	return []models.MaintenanceTemplate{
		{
			ID:               t.ID + "-oil",
			Name:             "Oil and filter change",
			EquipmentID:      t.ID,
			IntervalMiles:    floatPtr(15000),
			LastServiceMiles: floatPtr(lastOil),
		},
		{
			ID:              t.ID + "-pm-a",
			Name:            "PM-A inspection",
			EquipmentID:     t.ID,
			IntervalDays:    intPtr(90),
			LastServiceDate: timePtr(lastPM),
		},
		{
			ID:               t.ID + "-reefer",
			Name:             "Reefer unit service",
			EquipmentID:      t.ID,
			IntervalHours:    floatPtr(500),
			LastServiceHours: floatPtr(lastHours),
			IntervalDays:     intPtr(180),
			LastServiceDate:  timePtr(lastPM),
		},
	}
}

// advance drives the truck for one simulated day and returns its reading.
func advance(rng *rand.Rand, t *Truck, day time.Time) models.UsageObservation {
	miles := t.MilesPerDay * (0.6 + rng.Float64()*0.8)
	t.Miles += miles
	t.Hours += miles / 45
	return models.UsageObservation{
		EquipmentID:  t.ID,
		CurrentDate:  day,
		CurrentMiles: floatPtr(t.Miles),
		CurrentHours: floatPtr(t.Hours),
	}
}

// maybeInspection returns a roadside inspection with probability rate.
func maybeInspection(rng *rand.Rand, t *Truck, day time.Time, rate float64) *models.InspectionEvent {
	if rng.Float64() >= rate {
		return nil
	}
	ev := &models.InspectionEvent{
		ID:             uuid.NewString(),
		ReportNumber:   fmt.Sprintf("SIM%06d", rng.Intn(1000000)),
		VehicleID:      t.ID,
		DriverID:       t.DriverID,
		InspectionDate: day,
		Violations:     []models.Violation{},
	}
	for n := rng.Intn(3); n > 0; n-- {
		ev.Violations = append(ev.Violations, violationCatalog[rng.Intn(len(violationCatalog))])
	}
	ev.OutOfService = len(ev.Violations) > 0 && rng.Float64() < 0.2
	return ev
}

// simulateDay sends one day of activity for every truck.
func simulateDay(rng *rand.Rand, sender Sender, trucks []*Truck, day time.Time, inspectionRate float64) {
	for _, t := range trucks {
		obs := advance(rng, t, day)
		if err := sender.SendUsage(obs); err != nil {
			log.WithError(err).WithField("equipment_id", t.ID).Error("Failed to send usage")
		}
		if ev := maybeInspection(rng, t, day, inspectionRate); ev != nil {
			if err := sender.SendInspection(*ev); err != nil {
				log.WithError(err).WithField("inspection_id", ev.ID).Error("Failed to send inspection")
				continue
			}
			log.WithFields(log.Fields{
				"vehicle_id":     ev.VehicleID,
				"violations":     len(ev.Violations),
				"out_of_service": ev.OutOfService,
			}).Info("Sent inspection")
		}
	}
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return def
}

func envString(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func main() {
	fleetSize := envInt("FLEET_SIZE", 10)
	apiURL := envString("API_BASE_URL", "http://localhost:8080/api")
	actor := envString("SIM_ACTOR_ID", "fleet-simulator")
	broker := os.Getenv("SIM_MQTT_BROKER")

	interval := 2 * time.Second
	if n := envInt("SIM_TICK_SECONDS", 2); n >= 1 {
		interval = time.Duration(n) * time.Second
	}
	inspectionRate := float64(envInt("SIM_INSPECTION_PERCENT", 5)) / 100

	log.WithFields(log.Fields{
		"fleet_size": fleetSize,
		"api_url":    apiURL,
		"broker":     broker,
		"interval":   interval,
	}).Info("Starting fleet simulation")

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	restSender := newHTTPSender(apiURL, actor)
	var sender Sender = restSender
	if broker != "" {
		ms, err := newMQTTSender(broker,
			envString("SIM_INSPECTION_TOPIC", "fleet/inspections"),
			envString("SIM_USAGE_TOPIC", "fleet/usage"),
			restSender)
		if err != nil {
			log.WithError(err).Fatal("Failed to start MQTT sender")
		}
		defer ms.Close()
		sender = ms
	}

	day := time.Now().UTC().Truncate(24 * time.Hour)
	trucks := make([]*Truck, 0, fleetSize)
	for i := 0; i < fleetSize; i++ {
		t := newTruck(rng, i)
		registered := true
		for _, tpl := range templatesFor(rng, t, day) {
			if err := sender.SendTemplate(tpl); err != nil {
				log.WithError(err).WithField("template_id", tpl.ID).Error("Failed to register template")
				registered = false
				break
			}
		}
		if registered {
			trucks = append(trucks, t)
		}
	}

	log.WithField("registered_trucks", len(trucks)).Info("Fleet registration completed")
	if len(trucks) == 0 {
		log.Error("No trucks registered. Ensure the API is reachable. Exiting.")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("Simulation stopped")
			return
		case <-tick.C:
			day = day.AddDate(0, 0, 1)
			simulateDay(rng, sender, trucks, day, inspectionRate)
			log.WithField("day", day.Format("2006-01-02")).Debug("Simulated day")
		}
	}
}

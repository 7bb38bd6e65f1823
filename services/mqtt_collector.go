package services

import (
	"database/sql"
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTCollector ingests cumulative readings pushed by smart meters on
// topics of the form dorm/<building_id>/<room_number>/<electric|water>.
// Each message updates the open cycle's meter_end for that room; the
// meter_start of a fresh row is seeded from the previous cycle's end so a
// cycle's reading pair stays contiguous.
type MQTTCollector struct {
	db        *sql.DB
	broker    string
	topic     string
	client    mqtt.Client
	isRunning bool
	mu        sync.Mutex
}

// meterMessage is the flexible JSON payload the meters publish. A bare
// number on the wire is accepted too.
type meterMessage struct {
	Reading *float64 `json:"reading"`
	Value   *float64 `json:"value"`
}

func NewMQTTCollector(db *sql.DB, broker, topic string) *MQTTCollector {
	return &MQTTCollector{db: db, broker: broker, topic: topic}
}

func (mc *MQTTCollector) Start() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.isRunning || mc.broker == "" {
		return
	}

	opts := mqtt.NewClientOptions().
		AddBroker(mc.broker).
		SetClientID("dorm-billing-collector").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(30 * time.Second)

	opts.OnConnect = func(client mqtt.Client) {
		log.Printf("[MQTT] Connected to %s, subscribing to %s", mc.broker, mc.topic)
		if token := client.Subscribe(mc.topic, 1, mc.handleMessage); token.Wait() && token.Error() != nil {
			log.Printf("[MQTT] ERROR: Subscribe failed: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Printf("[MQTT] Connection lost: %v", err)
	}

	mc.client = mqtt.NewClient(opts)
	if token := mc.client.Connect(); token.Wait() && token.Error() != nil {
		log.Printf("[MQTT] ERROR: Could not connect to %s: %v", mc.broker, token.Error())
		return
	}

	mc.isRunning = true
}

func (mc *MQTTCollector) Stop() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if !mc.isRunning {
		return
	}
	mc.client.Disconnect(250)
	mc.isRunning = false
	log.Println("[MQTT] Collector stopped")
}

func (mc *MQTTCollector) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	parts := strings.Split(msg.Topic(), "/")
	if len(parts) != 4 {
		log.Printf("[MQTT] Ignoring unexpected topic %s", msg.Topic())
		return
	}

	buildingID, err := strconv.Atoi(parts[1])
	if err != nil {
		log.Printf("[MQTT] Invalid building id in topic %s", msg.Topic())
		return
	}
	roomNumber := parts[2]
	utilityCode := parts[3]
	if utilityCode != UtilityElectric && utilityCode != UtilityWater {
		log.Printf("[MQTT] Ignoring unknown utility %q on %s", utilityCode, msg.Topic())
		return
	}

	reading, ok := parsePayload(msg.Payload())
	if !ok {
		log.Printf("[MQTT] Could not parse payload %q on %s", string(msg.Payload()), msg.Topic())
		return
	}

	if err := mc.recordReading(buildingID, roomNumber, utilityCode, reading); err != nil {
		log.Printf("[MQTT] ERROR recording %s reading for room %s: %v", utilityCode, roomNumber, err)
	}
}

func parsePayload(payload []byte) (float64, bool) {
	var m meterMessage
	if err := json.Unmarshal(payload, &m); err == nil {
		if m.Reading != nil {
			return *m.Reading, true
		}
		if m.Value != nil {
			return *m.Value, true
		}
	}

	if f, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64); err == nil {
		return f, true
	}
	return 0, false
}

func (mc *MQTTCollector) recordReading(buildingID int, roomNumber, utilityCode string, reading float64) error {
	var roomID int
	err := mc.db.QueryRow(`
		SELECT id FROM rooms WHERE building_id = ? AND room_number = ?
	`, buildingID, roomNumber).Scan(&roomID)
	if err == sql.ErrNoRows {
		return ErrRoomNotFound
	}
	if err != nil {
		return err
	}

	// The open cycle covering today. No cycle yet means no one has started
	// this month's billing; the reading is dropped until one exists.
	var cycleID int
	today := time.Now().Format("2006-01-02")
	err = mc.db.QueryRow(`
		SELECT id FROM billing_cycles
		WHERE status = 'open' AND start_date <= ? AND end_date >= ?
		ORDER BY start_date DESC LIMIT 1
	`, today, today).Scan(&cycleID)
	if err == sql.ErrNoRows {
		log.Printf("[MQTT] No open cycle covers %s, dropping reading for room %d", today, roomID)
		return nil
	}
	if err != nil {
		return err
	}

	var utilityTypeID int
	if err := mc.db.QueryRow(`SELECT id FROM utility_types WHERE code = ?`, utilityCode).Scan(&utilityTypeID); err != nil {
		return err
	}

	var readingID int
	err = mc.db.QueryRow(`
		SELECT id FROM meter_readings WHERE room_id = ? AND cycle_id = ? AND utility_type_id = ?
	`, roomID, cycleID, utilityTypeID).Scan(&readingID)

	if err == sql.ErrNoRows {
		meterStart := mc.previousMeterEnd(roomID, cycleID, utilityTypeID, reading)
		_, err = mc.db.Exec(`
			INSERT INTO meter_readings (room_id, cycle_id, utility_type_id, meter_start, meter_end)
			VALUES (?, ?, ?, ?, ?)
		`, roomID, cycleID, utilityTypeID, meterStart, reading)
		return err
	}
	if err != nil {
		return err
	}

	_, err = mc.db.Exec(`
		UPDATE meter_readings SET meter_end = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, reading, readingID)
	return err
}

// previousMeterEnd seeds a new row's meter_start from the last cycle's end
// reading, falling back to the current reading when the room has no history.
func (mc *MQTTCollector) previousMeterEnd(roomID, cycleID, utilityTypeID int, fallback float64) float64 {
	var prev float64
	err := mc.db.QueryRow(`
		SELECT mr.meter_end
		FROM meter_readings mr
		JOIN billing_cycles bc ON mr.cycle_id = bc.id
		WHERE mr.room_id = ? AND mr.utility_type_id = ? AND mr.cycle_id != ?
		ORDER BY bc.start_date DESC LIMIT 1
	`, roomID, utilityTypeID, cycleID).Scan(&prev)
	if err != nil {
		return fallback
	}
	return prev
}

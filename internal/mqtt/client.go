package mqtt

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/agusx1211/fluorescent/internal/config"
	"github.com/agusx1211/fluorescent/internal/lamp"
)

const (
	ActionPowerOn  = "set_power_on"
	ActionPowerOff = "set_power_off"
	ActionSetPeak  = "set_peak"
	ActionRestrike = "restrike"
)

type Command struct {
	Action string
	Value  float64
}

// StateSource is what the client reports on the state topic.
type StateSource interface {
	Snapshot() lamp.State
}

type Client struct {
	client      mqtt.Client
	topic       string
	source      StateSource
	commandChan chan<- Command
	limiter     *rate.Limiter
	logger      *zap.Logger

	mu          sync.Mutex
	lastPlaying bool
	lastPower   bool
}

func NewClient(cfg config.MQTTConfig, src StateSource, cmdChan chan<- Command, logger *zap.Logger) (*Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID("fluorescent-" + uuid.NewString())

	if cfg.User != "" {
		opts.SetUsername(cfg.User)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)

	c := newClient(cfg.Topic, src, cmdChan, cfg.PublishRate, logger)

	opts.OnConnect = c.onConnect
	opts.OnConnectionLost = c.onConnectionLost
	opts.SetWill(c.topic+"/availability", "offline", 0, true)

	c.client = mqtt.NewClient(opts)
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Broker, token.Error())
	}

	return c, nil
}

func newClient(topic string, src StateSource, cmdChan chan<- Command, publishRate float64, logger *zap.Logger) *Client {
	limit := rate.Inf
	if publishRate > 0 {
		limit = rate.Limit(publishRate)
	}
	return &Client{
		topic:       topic,
		source:      src,
		commandChan: cmdChan,
		limiter:     rate.NewLimiter(limit, 1),
		logger:      logger.Named("mqtt"),
	}
}

func (c *Client) onConnect(client mqtt.Client) {
	c.logger.Info("connected to broker")

	client.Publish(c.topic+"/availability", 0, true, "online")

	subs := map[string]mqtt.MessageHandler{
		c.topic + "/power/set":    c.handlePower,
		c.topic + "/peak/set":     c.handlePeak,
		c.topic + "/restrike/set": c.handleRestrike,
	}

	for topic, handler := range subs {
		if token := client.Subscribe(topic, 0, handler); token.Wait() && token.Error() != nil {
			c.logger.Error("subscribe failed", zap.String("topic", topic), zap.Error(token.Error()))
		}
	}

	c.publishDiscovery()
	c.PublishState()
}

func (c *Client) onConnectionLost(client mqtt.Client, err error) {
	c.logger.Warn("connection lost", zap.Error(err))
}

func (c *Client) handlePower(client mqtt.Client, msg mqtt.Message) {
	payload := strings.TrimSpace(string(msg.Payload()))
	action := ActionPowerOff
	if strings.EqualFold(payload, "ON") {
		action = ActionPowerOn
	}
	c.sendCommand(Command{Action: action})
}

func (c *Client) handlePeak(client mqtt.Client, msg mqtt.Message) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(msg.Payload())), 64)
	if err != nil {
		c.logger.Debug("ignoring peak payload", zap.ByteString("payload", msg.Payload()), zap.Error(err))
		return
	}
	c.sendCommand(Command{Action: ActionSetPeak, Value: v})
}

func (c *Client) handleRestrike(client mqtt.Client, msg mqtt.Message) {
	c.sendCommand(Command{Action: ActionRestrike})
}

func (c *Client) sendCommand(cmd Command) {
	select {
	case c.commandChan <- cmd:
	default:
		c.logger.Warn("command channel full", zap.String("action", cmd.Action))
	}
}

func (c *Client) publishDiscovery() {
	device := map[string]any{
		"identifiers":  []string{"fluorescent_tube"},
		"name":         "Fluorescent Tube",
		"manufacturer": "Fluorescent",
		"model":        "Flicker Simulator",
	}

	availability := map[string]any{
		"topic": c.topic + "/availability",
	}

	stateTopic := c.topic + "/state"

	c.publishEntity("light", "fluorescent_tube", map[string]any{
		"name":                      "Tube",
		"unique_id":                 "fluorescent_tube",
		"device":                    device,
		"availability":              availability,
		"command_topic":             c.topic + "/power/set",
		"state_topic":               stateTopic,
		"state_value_template":      "{% if value_json.power %}ON{% else %}OFF{% endif %}",
		"brightness_state_topic":    stateTopic,
		"brightness_value_template": "{{ (value_json.brightness * 2.55) | round(0) }}",
		"rgb_state_topic":           stateTopic,
		"rgb_value_template":        "{{ value_json.rgb | join(',') }}",
		"payload_on":                "ON",
		"payload_off":               "OFF",
		"icon":                      "mdi:fluorescent-tube",
	})

	c.publishEntity("number", "fluorescent_peak", map[string]any{
		"name":           "Edge Peak",
		"unique_id":      "fluorescent_peak",
		"device":         device,
		"availability":   availability,
		"command_topic":  c.topic + "/peak/set",
		"state_topic":    stateTopic,
		"value_template": "{{ value_json.peak }}",
		"min":            lamp.MinPeak,
		"max":            lamp.MaxPeak,
		"step":           0.05,
		"icon":           "mdi:arrow-expand-horizontal",
	})

	c.publishEntity("button", "fluorescent_restrike", map[string]any{
		"name":          "Restrike",
		"unique_id":     "fluorescent_restrike",
		"device":        device,
		"availability":  availability,
		"command_topic": c.topic + "/restrike/set",
		"icon":          "mdi:flash",
	})

	c.publishEntity("sensor", "fluorescent_brightness", map[string]any{
		"name":                "Brightness",
		"unique_id":           "fluorescent_brightness",
		"device":              device,
		"availability":        availability,
		"state_topic":         stateTopic,
		"value_template":      "{{ value_json.brightness }}",
		"unit_of_measurement": "%",
		"icon":                "mdi:brightness-6",
	})

	c.logger.Info("published discovery", zap.Int("entities", 4))
}

func (c *Client) publishEntity(domain, entityID string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("encoding discovery", zap.String("entity", entityID), zap.Error(err))
		return
	}
	topic := fmt.Sprintf("homeassistant/%s/%s/config", domain, entityID)
	if token := c.client.Publish(topic, 0, true, data); token.Wait() && token.Error() != nil {
		c.logger.Error("publishing discovery", zap.String("entity", entityID), zap.Error(token.Error()))
	}
}

type publishedState struct {
	Power      bool     `json:"power"`
	Playing    bool     `json:"playing"`
	Time       float64  `json:"time"`
	Duration   float64  `json:"duration"`
	Brightness float64  `json:"brightness"`
	Max        float64  `json:"max"`
	EMA        float64  `json:"ema"`
	Flash      bool     `json:"flash"`
	RGB        [3]uint8 `json:"rgb"`
	Color      string   `json:"color"`
	Peak       float64  `json:"peak"`
	Seed       uint32   `json:"seed"`
}

func newPublishedState(s lamp.State) publishedState {
	return publishedState{
		Power:      s.Power,
		Playing:    s.Playing,
		Time:       round(s.Time, 3),
		Duration:   round(s.Duration, 3),
		Brightness: round(s.Reading.Average*100, 1),
		Max:        round(s.Reading.Max, 3),
		EMA:        round(s.Reading.EMA, 3),
		Flash:      s.Reading.Flash,
		RGB:        [3]uint8{s.Color.R, s.Color.G, s.Color.B},
		Color:      s.Color.Hex(),
		Peak:       s.Peak,
		Seed:       s.Seed,
	}
}

// PublishState publishes the current lamp state unconditionally.
func (c *Client) PublishState() {
	c.publish(c.source.Snapshot())
}

// PublishFrame publishes s if the rate limiter allows it. Power and playback
// transitions and flashes are always published.
func (c *Client) PublishFrame(s lamp.State) {
	c.mu.Lock()
	changed := s.Playing != c.lastPlaying || s.Power != c.lastPower
	c.mu.Unlock()

	if !changed && !s.Reading.Flash && !c.limiter.Allow() {
		return
	}
	c.publish(s)
}

func (c *Client) publish(s lamp.State) {
	c.mu.Lock()
	c.lastPlaying = s.Playing
	c.lastPower = s.Power
	c.mu.Unlock()

	data, err := json.Marshal(newPublishedState(s))
	if err != nil {
		c.logger.Error("encoding state", zap.Error(err))
		return
	}
	c.client.Publish(c.topic+"/state", 0, true, data)
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Publish(c.topic+"/availability", 0, true, "offline").Wait()
		c.client.Disconnect(250)
	}
}

func round(v float64, places int) float64 {
	p := 1.0
	for range places {
		p *= 10
	}
	return float64(int64(v*p+0.5)) / p
}

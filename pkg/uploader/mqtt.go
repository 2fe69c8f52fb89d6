package uploader

import (
	"context"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	kitlog "github.com/go-kit/kit/log"
	"github.com/pkg/errors"

	"github.com/thingful/sensebox/pkg/device"
	"github.com/thingful/sensebox/pkg/opensensemap"
	"github.com/thingful/sensebox/pkg/radio"
)

// Publisher delivers one payload to a broker topic
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Paho is a Publisher backed by a paho client. The connection is opened for
// each publish and closed afterwards since the radio is torn down between
// uploads.
type Paho struct {
	Client  mqtt.Client
	QoS     byte
	Timeout time.Duration
}

// NewPaho returns a publisher for the given broker
func NewPaho(broker, clientID string, timeout time.Duration) *Paho {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(timeout).
		SetAutoReconnect(false)

	return &Paho{
		Client:  mqtt.NewClient(opts),
		QoS:     1,
		Timeout: timeout,
	}
}

// Publish connects, publishes and disconnects
func (p *Paho) Publish(ctx context.Context, topic string, payload []byte) error {
	if !p.Client.IsConnected() {
		err := p.wait(p.Client.Connect())
		if err != nil {
			return errors.Wrap(err, "failed to connect to broker")
		}
	}
	defer p.Client.Disconnect(250)

	err := p.wait(p.Client.Publish(topic, p.QoS, false, payload))
	if err != nil {
		return errors.Wrap(err, "failed to publish")
	}

	return nil
}

func (p *Paho) wait(token mqtt.Token) error {
	if !token.WaitTimeout(p.Timeout) {
		return errors.New("timed out waiting for broker")
	}
	return token.Error()
}

// MQTT publishes the upload body to a broker topic
type MQTT struct {
	publisher Publisher
	topic     string
	sensors   opensensemap.Sensors
	logger    kitlog.Logger
}

// NewMQTT returns a new broker uploader
func NewMQTT(publisher Publisher, topic string, sensors opensensemap.Sensors, logger kitlog.Logger) *MQTT {
	logger = kitlog.With(logger, "module", "uploader", "target", "mqtt", "topic", topic)

	return &MQTT{
		publisher: publisher,
		topic:     topic,
		sensors:   sensors,
		logger:    logger,
	}
}

// Upload publishes the same body the ingestion endpoint receives
func (m *MQTT) Upload(ctx context.Context, session *radio.Session, readings device.ReadingSet) error {
	if !session.Active() {
		return radio.ErrNoSession
	}

	body, n, err := opensensemap.EncodeMeasurements(readings, m.sensors)
	if err != nil {
		return err
	}

	if n == 0 {
		return ErrNothingToUpload
	}

	err = m.publisher.Publish(ctx, m.topic, body)
	if err != nil {
		uploads.WithLabelValues("mqtt", "failed").Inc()
		return err
	}

	uploads.WithLabelValues("mqtt", "ok").Inc()
	m.logger.Log("msg", "published readings", "measurements", n)

	return nil
}

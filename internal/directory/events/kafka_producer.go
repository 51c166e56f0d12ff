package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

const defaultQueueSize = 1000

type EventType string

const (
	CompanyCreated         EventType = "company_created"
	CompanyUpdated         EventType = "company_updated"
	CompanyDeleted         EventType = "company_deleted"
	EquipmentCreated       EventType = "equipment_created"
	EquipmentUpdated       EventType = "equipment_updated"
	EquipmentDeleted       EventType = "equipment_deleted"
	EquipmentAssociated    EventType = "equipment_associated"
	EquipmentDisassociated EventType = "equipment_disassociated"
	ReviewCreated          EventType = "review_created"
	ReviewUpdated          EventType = "review_updated"
	ReviewDeleted          EventType = "review_deleted"
	CategoryCreated        EventType = "category_created"
	CategoryDeleted        EventType = "category_deleted"
	ClientRegistered       EventType = "client_registered"
)

// Event is the envelope written to Kafka. EntityID doubles as the message
// key so all events about one entity land on the same partition.
type Event struct {
	Type     EventType   `json:"type"`
	EntityID uuid.UUID   `json:"entity_id"`
	Occurred time.Time   `json:"occurred"`
	Payload  interface{} `json:"payload,omitempty"`
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
	done      chan struct{}
}

// NewProducer ensures the topic exists and starts the delivery loop.
func NewProducer(brokers []string, logger *zap.Logger, topic string) (*Producer, error) {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Warn("failed to create topic (may already exist)", zap.Error(err))
	}

	p := newProducer(&kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
		Topic:    topic,
	}, logger, defaultQueueSize)
	p.start()
	return p, nil
}

func newProducer(writer KafkaWriter, logger *zap.Logger, queueSize int) *Producer {
	return &Producer{
		writer:    writer,
		events:    make(chan Event, queueSize),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
	}
}

// Produce queues an event without blocking. When the queue is full the
// event is dropped and logged.
func (p *Producer) Produce(eventType EventType, entityID uuid.UUID, payload interface{}) {
	event := Event{Type: eventType, EntityID: entityID, Occurred: time.Now().UTC(), Payload: payload}
	select {
	case p.events <- event:
	default:
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(eventType)),
			zap.String("entity_id", entityID.String()),
		)
	}
}

func (p *Producer) start() {
	p.done = make(chan struct{})
	go p.eventLoop()
}

func (p *Producer) eventLoop() {
	defer close(p.done)
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			p.drain()
			return
		}
	}
}

// drain writes whatever is still queued.
func (p *Producer) drain() {
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		default:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("entity_id", event.EntityID.String()),
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(event.EntityID.String()),
		Value:   value,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(event.Type)}},
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.String("entity_id", event.EntityID.String()),
		)
		return
	}
}

// Close stops the delivery loop once the queued events are written, then
// closes the writer. Produce must not be called after Close.
func (p *Producer) Close() {
	close(p.closeChan)
	if p.done != nil {
		<-p.done
	}
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
}

// NopProducer discards events. Used when no brokers are configured.
type NopProducer struct{}

func (NopProducer) Produce(EventType, uuid.UUID, interface{}) {}

func (NopProducer) Close() {}

package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type MockKafkaReader struct {
	mock.Mock
}

func (m *MockKafkaReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	args := m.Called(ctx)
	return args.Get(0).(kafka.Message), args.Error(1)
}

func (m *MockKafkaReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaReader) Close() error {
	return m.Called().Error(0)
}

func encoded(t *testing.T, event Event) kafka.Message {
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(event.EntityID.String()), Value: value}
}

func TestConsumer_Run(t *testing.T) {
	t.Run("handles and commits", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		id := uuid.New()
		msg := encoded(t, Event{Type: ReviewCreated, EntityID: id})
		reader := new(MockKafkaReader)
		reader.On("FetchMessage", mock.Anything).Return(msg, nil).Once()
		reader.On("FetchMessage", mock.Anything).Return(kafka.Message{}, context.Canceled)
		reader.On("CommitMessages", mock.Anything, []kafka.Message{msg}).Return(nil)

		consumer := &Consumer{reader: reader, logger: zaptest.NewLogger(t)}
		var got []Event
		consumer.RegisterHandler(func(_ context.Context, event Event) error {
			got = append(got, event)
			cancel()
			return nil
		})

		require.NoError(t, consumer.Run(ctx))
		require.Len(t, got, 1)
		assert.Equal(t, ReviewCreated, got[0].Type)
		assert.Equal(t, id, got[0].EntityID)
		reader.AssertCalled(t, "CommitMessages", mock.Anything, []kafka.Message{msg})
	})

	t.Run("skips unparseable and failed messages", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		core, recorded := observer.New(zap.ErrorLevel)
		good := encoded(t, Event{Type: CompanyDeleted, EntityID: uuid.New()})
		reader := new(MockKafkaReader)
		reader.On("FetchMessage", mock.Anything).Return(kafka.Message{Value: []byte("{")}, nil).Once()
		reader.On("FetchMessage", mock.Anything).Return(good, nil).Once()
		reader.On("FetchMessage", mock.Anything).Return(kafka.Message{}, context.Canceled)

		consumer := &Consumer{reader: reader, logger: zap.New(core)}
		consumer.RegisterHandler(func(context.Context, Event) error {
			cancel()
			return errors.New("handler failed")
		})

		require.NoError(t, consumer.Run(ctx))
		assert.Equal(t, 1, recorded.FilterMessage("Failed to parse event").Len())
		assert.Equal(t, 1, recorded.FilterMessage("Failed to handle event").Len())
		reader.AssertNotCalled(t, "CommitMessages", mock.Anything, mock.Anything)
	})

	t.Run("requires a handler", func(t *testing.T) {
		consumer := &Consumer{reader: new(MockKafkaReader), logger: zaptest.NewLogger(t)}
		assert.Error(t, consumer.Run(context.Background()))
	})
}

func TestConsumer_Close(t *testing.T) {
	reader := new(MockKafkaReader)
	reader.On("Close").Return(nil)

	consumer := &Consumer{reader: reader, logger: zaptest.NewLogger(t)}
	consumer.Close()

	reader.AssertCalled(t, "Close")
}

package sink

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sells-group/energy-etl/internal/model"
)

const kafkaBatchSize = 1000

// messageWriter is the part of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaWriter publishes one JSON message per observation, keyed by
// client_id/ext_dev_ref so a device's readings stay on one partition.
type KafkaWriter struct {
	w     messageWriter
	topic string
}

// NewKafkaWriter creates a writer for topic on brokers.
func NewKafkaWriter(brokers []string, topic string) (*KafkaWriter, error) {
	if len(brokers) == 0 {
		return nil, eris.New("sink: kafka brokers are required")
	}
	if topic == "" {
		return nil, eris.New("sink: kafka topic is required")
	}
	return &KafkaWriter{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		topic: topic,
	}, nil
}

func messageKey(o model.Observation) []byte {
	return []byte(o.ClientID + "/" + o.ExtDevRef)
}

// WriteObservations implements ObservationWriter.
func (k *KafkaWriter) WriteObservations(ctx context.Context, obs []model.Observation) error {
	batch := make([]kafka.Message, 0, min(len(obs), kafkaBatchSize))
	sent := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := k.w.WriteMessages(ctx, batch...); err != nil {
			return eris.Wrapf(err, "sink: publish to %s", k.topic)
		}
		sent += len(batch)
		batch = batch[:0]
		return nil
	}

	for _, o := range obs {
		value, err := json.Marshal(NewObservationRow(o))
		if err != nil {
			return eris.Wrap(err, "sink: marshal observation")
		}
		batch = append(batch, kafka.Message{Key: messageKey(o), Value: value, Time: o.Timestamp})
		if len(batch) == kafkaBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	zap.L().Info("sink: observations published",
		zap.String("topic", k.topic),
		zap.Int("messages", sent),
	)
	return nil
}

// Close implements ObservationWriter.
func (k *KafkaWriter) Close() error {
	return k.w.Close()
}

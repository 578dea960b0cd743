package kafkaclient

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Reader is the part of *kafka.Reader the consumer uses. It allows mocking
// in unit tests.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads a topic in a background loop and exposes the messages on
// a channel. Offsets are committed explicitly by the caller.
type Consumer struct {
	reader      Reader
	doneChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
	messageChan chan kafka.Message
	retryDelay  time.Duration
}

// NewConsumer creates a consumer group reader on topic.
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
		// Offsets are committed by CommitOffset only.
		CommitInterval: 0,
		MinBytes:       1,
		MaxBytes:       1e6,
	})
	return newConsumer(reader)
}

func newConsumer(reader Reader) *Consumer {
	return &Consumer{
		reader:      reader,
		doneChan:    make(chan struct{}),
		messageChan: make(chan kafka.Message),
		retryDelay:  time.Second,
	}
}

// Messages returns the channel of fetched messages. It is closed when the
// loop stops.
func (c *Consumer) Messages() <-chan kafka.Message {
	return c.messageChan
}

// CommitOffset acknowledges msg.
func (c *Consumer) CommitOffset(ctx context.Context, msg kafka.Message) error {
	logrus.Debugf("Committing offset topic=%s partition=%d offset=%d", msg.Topic, msg.Partition, msg.Offset)
	return c.reader.CommitMessages(ctx, msg)
}

// Start runs the fetch loop until ctx is done, Stop is called or the
// reader is closed.
func (c *Consumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(c.messageChan)

		logrus.Info("Starting Kafka consumer loop")
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.doneChan:
				return
			default:
			}

			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
					return
				}
				logrus.Errorf("Error reading message: %v", err)
				select {
				case <-time.After(c.retryDelay):
				case <-ctx.Done():
					return
				case <-c.doneChan:
					return
				}
				continue
			}

			select {
			case c.messageChan <- msg:
				logrus.Debugf("Message received topic=%s partition=%d offset=%d", msg.Topic, msg.Partition, msg.Offset)
			case <-ctx.Done():
				return
			case <-c.doneChan:
				return
			}
		}
	}()
}

// Stop ends the loop and closes the reader.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() {
		close(c.doneChan)
		if err := c.reader.Close(); err != nil {
			logrus.Errorf("Failed to close Kafka reader: %v", err)
		}
		c.wg.Wait()
		logrus.Info("Kafka consumer stopped")
	})
}

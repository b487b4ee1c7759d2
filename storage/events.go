package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"

	"todo-api/domain"
)

// QueuePublisher sends change events to an Azure Storage queue.
type QueuePublisher struct {
	queue *azqueue.QueueClient
	name  string
}

// NewQueuePublisher creates a publisher for the named queue.
func NewQueuePublisher(connStr, queue string) (*QueuePublisher, error) {
	opts := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Second * 30,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, queue, &opts)
	if err != nil {
		return nil, err
	}
	return &QueuePublisher{queue: q, name: queue}, nil
}

// Publish enqueues the event as a JSON message.
func (p *QueuePublisher) Publish(ctx context.Context, ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := p.queue.EnqueueMessage(ctx, string(data), nil); err != nil {
		return fmt.Errorf("enqueue %s event: %w", ev.Type, err)
	}
	return nil
}

// Provision creates the queue if it does not exist.
func (p *QueuePublisher) Provision(ctx context.Context) error {
	_, err := p.queue.Create(ctx, nil)
	if err != nil {
		if hasErrorCode(err, "QueueAlreadyExists") {
			log.WithField("queue", p.name).Debug("queue already exists")
			return nil
		}
		return fmt.Errorf("create queue %s: %w", p.name, err)
	}
	log.WithField("queue", p.name).Info("queue created")
	return nil
}

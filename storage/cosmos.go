package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
	log "github.com/sirupsen/logrus"

	"todo-api/domain"
)

const listQuery = "SELECT * FROM c"

// CosmosStore keeps todo items in a Cosmos DB container partitioned on
// /partitionKey.
type CosmosStore struct {
	client     *azcosmos.Client
	database   string
	name       string
	throughput int32
	container  *azcosmos.ContainerClient
}

// NewCosmos creates a store for the given account, database and container.
// It does not contact the service; call Provision to create missing resources.
func NewCosmos(endpoint, key, database, container string, throughput int32) (*CosmosStore, error) {
	cred, err := azcosmos.NewKeyCredential(key)
	if err != nil {
		return nil, fmt.Errorf("cosmos credential: %w", err)
	}
	opts := azcosmos.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Second * 30,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	client, err := azcosmos.NewClientWithKey(endpoint, cred, &opts)
	if err != nil {
		return nil, fmt.Errorf("cosmos client: %w", err)
	}
	cc, err := client.NewContainer(database, container)
	if err != nil {
		return nil, fmt.Errorf("cosmos container %s/%s: %w", database, container, err)
	}
	return &CosmosStore{client: client, database: database, name: container, throughput: throughput, container: cc}, nil
}

// Provision creates the database and container when they do not exist yet.
func (s *CosmosStore) Provision(ctx context.Context) error {
	_, err := s.client.CreateDatabase(ctx, azcosmos.DatabaseProperties{ID: s.database}, nil)
	switch {
	case err == nil:
		log.WithField("database", s.database).Info("cosmos database created")
	case hasStatus(err, http.StatusConflict):
		log.WithField("database", s.database).Debug("cosmos database already exists")
	default:
		return fmt.Errorf("create database %s: %w", s.database, err)
	}

	db, err := s.client.NewDatabase(s.database)
	if err != nil {
		return fmt.Errorf("database client %s: %w", s.database, err)
	}
	props := azcosmos.ContainerProperties{
		ID: s.name,
		PartitionKeyDefinition: azcosmos.PartitionKeyDefinition{
			Paths: []string{"/" + domain.PartitionKeyField},
		},
	}
	throughput := azcosmos.NewManualThroughputProperties(s.throughput)
	_, err = db.CreateContainer(ctx, props, &azcosmos.CreateContainerOptions{ThroughputProperties: &throughput})
	switch {
	case err == nil:
		log.WithFields(log.Fields{"container": s.name, "throughput": s.throughput}).Info("cosmos container created")
	case hasStatus(err, http.StatusConflict):
		log.WithField("container", s.name).Debug("cosmos container already exists")
	default:
		return fmt.Errorf("create container %s: %w", s.name, err)
	}
	return nil
}

func (s *CosmosStore) Create(ctx context.Context, item domain.TodoItem) (domain.Versioned, error) {
	payload, err := json.Marshal(item)
	if err != nil {
		return domain.Versioned{}, err
	}
	pk := azcosmos.NewPartitionKeyString(item.PartitionKey)
	resp, err := s.container.CreateItem(ctx, pk, payload, &azcosmos.ItemOptions{EnableContentResponseOnWrite: true})
	if err != nil {
		return domain.Versioned{}, translate("cosmos create", err)
	}
	return decodeCosmosItem(resp.Value, resp.ETag)
}

// List runs an unfiltered cross-partition query over the container.
func (s *CosmosStore) List(ctx context.Context) ([]domain.TodoItem, error) {
	pager := s.container.NewQueryItemsPager(listQuery, azcosmos.NewPartitionKey(), nil)
	items := []domain.TodoItem{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, translate("cosmos query", err)
		}
		for _, raw := range resp.Items {
			var it domain.TodoItem
			if err := json.Unmarshal(raw, &it); err != nil {
				return nil, fmt.Errorf("decode cosmos item: %w", err)
			}
			items = append(items, it)
		}
	}
	return items, nil
}

func (s *CosmosStore) Get(ctx context.Context, id string) (domain.Versioned, error) {
	resp, err := s.container.ReadItem(ctx, azcosmos.NewPartitionKeyString(id), id, nil)
	if err != nil {
		return domain.Versioned{}, translate("cosmos read", err)
	}
	return decodeCosmosItem(resp.Value, resp.ETag)
}

func (s *CosmosStore) Replace(ctx context.Context, item domain.TodoItem, etag string) (domain.Versioned, error) {
	payload, err := json.Marshal(item)
	if err != nil {
		return domain.Versioned{}, err
	}
	opts := &azcosmos.ItemOptions{EnableContentResponseOnWrite: true}
	if etag != "" {
		e := azcore.ETag(etag)
		opts.IfMatchEtag = &e
	}
	pk := azcosmos.NewPartitionKeyString(item.PartitionKey)
	resp, err := s.container.ReplaceItem(ctx, pk, item.ID, payload, opts)
	if err != nil {
		return domain.Versioned{}, translate("cosmos replace", err)
	}
	return decodeCosmosItem(resp.Value, resp.ETag)
}

func (s *CosmosStore) Delete(ctx context.Context, id string) error {
	_, err := s.container.DeleteItem(ctx, azcosmos.NewPartitionKeyString(id), id, nil)
	return translate("cosmos delete", err)
}

// Ping reads the container metadata.
func (s *CosmosStore) Ping(ctx context.Context) error {
	_, err := s.container.Read(ctx, nil)
	return translate("cosmos read container", err)
}

func decodeCosmosItem(data []byte, etag azcore.ETag) (domain.Versioned, error) {
	var it domain.TodoItem
	if err := json.Unmarshal(data, &it); err != nil {
		return domain.Versioned{}, fmt.Errorf("decode cosmos item: %w", err)
	}
	return domain.Versioned{Item: it, ETag: string(etag)}, nil
}

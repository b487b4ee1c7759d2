package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	log "github.com/sirupsen/logrus"

	"todo-api/domain"
)

// TableStore keeps todo items in an Azure Storage table with
// PartitionKey = partitionKey and RowKey = id.
type TableStore struct {
	table *aztables.Client
	name  string
}

// NewTables creates a table backed store from a storage connection string.
func NewTables(connStr, table string) (*TableStore, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &TableStore{table: svc.NewClient(table), name: table}, nil
}

type todoEntity struct {
	aztables.Entity
	Title  string `json:"Title"`
	IsDone bool   `json:"IsDone"`
}

func toEntity(item domain.TodoItem) todoEntity {
	return todoEntity{
		Entity: aztables.Entity{PartitionKey: item.PartitionKey, RowKey: item.ID},
		Title:  item.Title,
		IsDone: item.IsDone,
	}
}

func decodeTodoEntity(data []byte) (domain.TodoItem, error) {
	var ent todoEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.TodoItem{}, fmt.Errorf("decode todo entity: %w", err)
	}
	return domain.TodoItem{ID: ent.RowKey, Title: ent.Title, IsDone: ent.IsDone, PartitionKey: ent.PartitionKey}, nil
}

// Provision creates the table if it does not exist.
func (s *TableStore) Provision(ctx context.Context) error {
	_, err := s.table.CreateTable(ctx, nil)
	if err != nil {
		if hasErrorCode(err, string(aztables.TableAlreadyExists)) {
			log.WithField("table", s.name).Debug("table already exists")
			return nil
		}
		return fmt.Errorf("create table %s: %w", s.name, err)
	}
	log.WithField("table", s.name).Info("table created")
	return nil
}

func (s *TableStore) Create(ctx context.Context, item domain.TodoItem) (domain.Versioned, error) {
	payload, err := json.Marshal(toEntity(item))
	if err != nil {
		return domain.Versioned{}, err
	}
	resp, err := s.table.AddEntity(ctx, payload, nil)
	if err != nil {
		return domain.Versioned{}, translate("table add", err)
	}
	return domain.Versioned{Item: item, ETag: string(resp.ETag)}, nil
}

func (s *TableStore) List(ctx context.Context) ([]domain.TodoItem, error) {
	pager := s.table.NewListEntitiesPager(nil)
	items := []domain.TodoItem{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, translate("table list", err)
		}
		for _, e := range resp.Entities {
			it, err := decodeTodoEntity(e)
			if err != nil {
				return nil, err
			}
			items = append(items, it)
		}
	}
	return items, nil
}

func (s *TableStore) Get(ctx context.Context, id string) (domain.Versioned, error) {
	resp, err := s.table.GetEntity(ctx, id, id, nil)
	if err != nil {
		return domain.Versioned{}, translate("table get", err)
	}
	it, err := decodeTodoEntity(resp.Value)
	if err != nil {
		return domain.Versioned{}, err
	}
	return domain.Versioned{Item: it, ETag: string(resp.ETag)}, nil
}

func (s *TableStore) Replace(ctx context.Context, item domain.TodoItem, etag string) (domain.Versioned, error) {
	payload, err := json.Marshal(toEntity(item))
	if err != nil {
		return domain.Versioned{}, err
	}
	match := azcore.ETagAny
	if etag != "" {
		match = azcore.ETag(etag)
	}
	resp, err := s.table.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &match, UpdateMode: aztables.UpdateModeReplace})
	if err != nil {
		return domain.Versioned{}, translate("table replace", err)
	}
	return domain.Versioned{Item: item, ETag: string(resp.ETag)}, nil
}

func (s *TableStore) Delete(ctx context.Context, id string) error {
	_, err := s.table.DeleteEntity(ctx, id, id, nil)
	return translate("table delete", err)
}

// Ping lists at most one entity.
func (s *TableStore) Ping(ctx context.Context) error {
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Top: to.Ptr(int32(1))})
	_, err := pager.NextPage(ctx)
	return translate("table ping", err)
}

package devicesync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/easybuilders/merchantpro_backend/models"
	"github.com/easybuilders/merchantpro_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrFlushInProgress is returned when a second flush is requested while one
// is still running. The queue is strictly one flush at a time.
var ErrFlushInProgress = errors.New("flush already in progress")

const (
	flushBatchSize   = 100
	maxFlushAttempts = 10
)

// Queued-action statuses. Failed is terminal: the action exhausted its
// attempts and waits for operator review instead of re-uploading forever.
const (
	ActionStatusPending = "pending"
	ActionStatusFailed  = "failed"
)

// OfflineAction is one durably queued mutation awaiting upload.
type OfflineAction struct {
	ID         int                   `gorm:"primary_key" json:"id"`
	ClientKey  string                `gorm:"size:64;uniqueIndex" json:"client_key"`
	Action     models.SyncAction     `gorm:"size:20;not null" json:"action"`
	EntityType models.SyncEntityType `gorm:"size:20;not null" json:"entity_type"`
	EntityId   int                   `json:"entity_id"`
	Payload    []byte                `gorm:"type:json" json:"payload"`
	Status     string                `gorm:"size:20;not null;default:pending;index" json:"status"`
	Attempts   int                   `gorm:"default:0" json:"attempts"`
	LastError  string                `gorm:"type:text" json:"last_error"`
	CreatedAt  time.Time             `gorm:"autoCreateTime;index" json:"created_at"`
}

// QueueStore is the durable backing for the offline queue. The GORM
// implementation below targets the device's local database.
type QueueStore interface {
	Enqueue(ctx context.Context, action *OfflineAction) error
	Pending(ctx context.Context, limit int) ([]OfflineAction, error)
	Ack(ctx context.Context, ids []int) error
	Fail(ctx context.Context, id int, message string) error
	Failed(ctx context.Context) ([]OfflineAction, error)
	Len(ctx context.Context) (int64, error)
}

type gormQueueStore struct {
	db *gorm.DB
}

func NewQueueStore(db *gorm.DB) QueueStore {
	return &gormQueueStore{db: db}
}

func (s *gormQueueStore) Enqueue(ctx context.Context, action *OfflineAction) error {
	if action.ClientKey == "" {
		action.ClientKey = uuid.NewString()
	}
	if action.Status == "" {
		action.Status = ActionStatusPending
	}
	if err := s.db.WithContext(ctx).Create(action).Error; err != nil {
		return utils.NewInfrastructureError(err)
	}
	return nil
}

func (s *gormQueueStore) Pending(ctx context.Context, limit int) ([]OfflineAction, error) {
	var actions []OfflineAction
	if err := s.db.WithContext(ctx).
		Where("status = ?", ActionStatusPending).
		Order("id").
		Limit(limit).
		Find(&actions).Error; err != nil {
		return nil, utils.NewInfrastructureError(err)
	}
	return actions, nil
}

func (s *gormQueueStore) Ack(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Delete(&OfflineAction{}, ids).Error; err != nil {
		return utils.NewInfrastructureError(err)
	}
	return nil
}

// Fail counts an attempt; the action that exhausts its attempts flips to the
// terminal failed status and leaves the pending queue.
func (s *gormQueueStore) Fail(ctx context.Context, id int, message string) error {
	if err := s.db.WithContext(ctx).Model(&OfflineAction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": message,
		}).Error; err != nil {
		return utils.NewInfrastructureError(err)
	}
	if err := s.db.WithContext(ctx).Model(&OfflineAction{}).
		Where("id = ? AND attempts >= ?", id, maxFlushAttempts).
		Update("status", ActionStatusFailed).Error; err != nil {
		return utils.NewInfrastructureError(err)
	}
	return nil
}

func (s *gormQueueStore) Failed(ctx context.Context) ([]OfflineAction, error) {
	var actions []OfflineAction
	if err := s.db.WithContext(ctx).
		Where("status = ?", ActionStatusFailed).
		Order("id").
		Find(&actions).Error; err != nil {
		return nil, utils.NewInfrastructureError(err)
	}
	return actions, nil
}

// Len counts pending actions only; terminally failed rows no longer queue.
func (s *gormQueueStore) Len(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&OfflineAction{}).
		Where("status = ?", ActionStatusPending).
		Count(&count).Error; err != nil {
		return 0, utils.NewInfrastructureError(err)
	}
	return count, nil
}

// Client is the device-side half of the sync protocol: enqueue while
// offline, flush when a connection comes back.
type Client struct {
	store    QueueStore
	deviceId string
	endpoint string
	http     *http.Client
	flushing atomic.Bool
}

func NewClient(store QueueStore, deviceId, baseURL string) *Client {
	return &Client{
		store:    store,
		deviceId: deviceId,
		endpoint: strings.TrimRight(baseURL, "/") + "/sync",
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Enqueue records one mutation. Safe while offline; nothing touches the
// network until Flush.
func (c *Client) Enqueue(ctx context.Context, action models.SyncAction, entityType models.SyncEntityType, entityId int, payload interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", utils.NewValidationError("payload is not serializable: %s", err.Error())
	}
	item := OfflineAction{
		ClientKey:  uuid.NewString(),
		Action:     action,
		EntityType: entityType,
		EntityId:   entityId,
		Payload:    body,
	}
	if err := c.store.Enqueue(ctx, &item); err != nil {
		return "", err
	}
	return item.ClientKey, nil
}

// Failed lists actions that exhausted their attempts. They stay out of every
// future flush; the caller decides whether to surface or discard them.
func (c *Client) Failed(ctx context.Context) ([]OfflineAction, error) {
	return c.store.Failed(ctx)
}

// Flush uploads pending actions in enqueue order, one batch at a time.
// Acked items leave the queue; rejected items stay and count an attempt.
// A transport or server failure leaves the whole batch queued for the next
// flush; the server's idempotency keys make the replay safe.
func (c *Client) Flush(ctx context.Context) (*SyncResponse, error) {
	if !c.flushing.CompareAndSwap(false, true) {
		return nil, ErrFlushInProgress
	}
	defer c.flushing.Store(false)

	actions, err := c.store.Pending(ctx, flushBatchSize)
	if err != nil {
		return nil, err
	}
	if len(actions) == 0 {
		return &SyncResponse{Success: true, Errors: []SyncItemError{}}, nil
	}

	queue := make([]models.QueuedItem, 0, len(actions))
	for _, a := range actions {
		queue = append(queue, models.QueuedItem{
			ClientKey:  a.ClientKey,
			Action:     a.Action,
			EntityType: a.EntityType,
			EntityId:   a.EntityId,
			Payload:    json.RawMessage(a.Payload),
		})
	}

	resp, err := c.post(ctx, &SyncRequest{DeviceId: c.deviceId, Queue: queue})
	if err != nil {
		return nil, err
	}

	failed := make(map[int]string, len(resp.Errors))
	for _, e := range resp.Errors {
		if e.Index >= 0 && e.Index < len(actions) {
			failed[e.Index] = e.Error
		}
	}

	acked := make([]int, 0, len(actions))
	for i, a := range actions {
		if msg, ok := failed[i]; ok {
			if err := c.store.Fail(ctx, a.ID, msg); err != nil {
				return resp, err
			}
			continue
		}
		acked = append(acked, a.ID)
	}
	if err := c.store.Ack(ctx, acked); err != nil {
		return resp, err
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, req *SyncRequest) (*SyncResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, utils.NewInfrastructureError(err)
	}
	defer httpResp.Body.Close()

	raw, _ := io.ReadAll(httpResp.Body)
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, utils.NewInfrastructureError(fmt.Errorf("sync endpoint returned %d: %s", httpResp.StatusCode, strings.TrimSpace(string(raw))))
	}

	var parsed SyncResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, utils.NewInfrastructureError(err)
	}
	return &parsed, nil
}

// NotifyOnline is the connectivity-restored hook: flush whatever queued up
// while offline. A flush already in progress covers the notification.
func (c *Client) NotifyOnline(ctx context.Context) (*SyncResponse, error) {
	n, err := c.store.Len(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return &SyncResponse{Success: true, Errors: []SyncItemError{}}, nil
	}
	resp, err := c.Flush(ctx)
	if err == ErrFlushInProgress {
		return &SyncResponse{Success: true, Errors: []SyncItemError{}}, nil
	}
	return resp, err
}

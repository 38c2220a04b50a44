package devicesync

import (
	"context"
	"encoding/json"

	"github.com/easybuilders/merchantpro_backend/config"
	"github.com/easybuilders/merchantpro_backend/models"
	"github.com/easybuilders/merchantpro_backend/utils"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// payloadValidator enforces the same binding tags gin applies to REST
// bodies; queued payloads skip gin and need the check here.
var payloadValidator = func() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}()

// Reconciler applies uploaded offline batches. Items are independent: each
// gets its own transaction, and one bad item never blocks the rest. Only an
// infrastructure failure aborts the remainder of a batch.
type Reconciler struct {
	db     *gorm.DB
	cache  *config.RedisStore
	logger *logrus.Logger
}

func NewReconciler(db *gorm.DB, cache *config.RedisStore, logger *logrus.Logger) *Reconciler {
	return &Reconciler{db: db, cache: cache, logger: logger}
}

// Process walks the batch in order. The returned error is non-nil only for
// infrastructure loss; item-level failures land in the response instead.
func (r *Reconciler) Process(ctx context.Context, req *SyncRequest) (*SyncResponse, error) {
	resp := &SyncResponse{Success: true, Errors: []SyncItemError{}}

	for i, item := range req.Queue {
		clientKey := item.ClientKey
		if clientKey == "" {
			// Legacy devices do not send keys; a fresh key means the item is
			// applied (at most) once per upload but cannot dedupe re-uploads.
			clientKey = uuid.NewString()
		}

		if err := item.ValidateEnvelope(); err != nil {
			r.recordOutcome(ctx, req.DeviceId, clientKey, &item, nil, err)
			resp.Errors = append(resp.Errors, SyncItemError{Index: i, Error: err.Error()})
			continue
		}

		if _, err := r.processItem(ctx, req.DeviceId, clientKey, &item); err != nil {
			if utils.IsInfrastructureErr(err) {
				config.LogError(r.logger, "devicesync", "Process", "batch aborted", map[string]interface{}{
					"device_id": req.DeviceId,
					"index":     i,
				}, err)
				return nil, err
			}
			resp.Errors = append(resp.Errors, SyncItemError{Index: i, Error: err.Error()})
			continue
		}
		resp.Processed++
	}
	return resp, nil
}

// processItem runs one transaction: claim the idempotency key, apply the
// mutation under a savepoint, then record the outcome. A handler failure
// rolls back the mutation only; the FAILED mark and the log row still commit.
func (r *Reconciler) processItem(ctx context.Context, deviceId, clientKey string, item *models.QueuedItem) (entityId *int, err error) {
	handlerName := string(item.Action) + ":" + string(item.EntityType)

	var itemErr error
	txErr := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		skip, prior, err := beginIdempotency(tx, deviceId, handlerName, clientKey)
		if err != nil {
			if err == ErrSyncInProgress {
				itemErr = utils.NewConflictError("item is being applied by another flush")
				return nil
			}
			return utils.ClassifyDBError(err, "idempotency key")
		}
		if skip {
			// Replay: the earlier upload already applied this item.
			entityId = prior.EntityId
			return nil
		}

		applyErr := tx.Transaction(func(inner *gorm.DB) error {
			id, err := r.apply(ctx, inner, item)
			if err != nil {
				return err
			}
			entityId = id
			return nil
		})
		if applyErr != nil {
			if utils.IsInfrastructureErr(applyErr) {
				return applyErr
			}
			itemErr = applyErr
			if err := markIdempotencyFailed(tx, deviceId, handlerName, clientKey, applyErr); err != nil {
				return utils.NewInfrastructureError(err)
			}
			return r.logOutcome(tx, deviceId, clientKey, item, nil, applyErr)
		}

		if err := markIdempotencySucceeded(tx, deviceId, handlerName, clientKey, entityId); err != nil {
			return utils.NewInfrastructureError(err)
		}
		return r.logOutcome(tx, deviceId, clientKey, item, entityId, nil)
	})
	if txErr != nil {
		if utils.IsInfrastructureErr(txErr) {
			return nil, txErr
		}
		return nil, utils.NewInfrastructureError(txErr)
	}
	return entityId, itemErr
}

// apply dispatches on (action, entity_type) and returns the affected entity id.
func (r *Reconciler) apply(ctx context.Context, tx *gorm.DB, item *models.QueuedItem) (*int, error) {
	switch item.EntityType {
	case models.SyncEntityInvoice:
		switch item.Action {
		case models.SyncActionCreate:
			var input models.NewInvoice
			if err := decodePayload(item.Payload, &input); err != nil {
				return nil, err
			}
			invoice, err := models.CreateInvoiceTx(ctx, tx, r.cache, &input)
			if err != nil {
				return nil, err
			}
			return &invoice.ID, nil
		case models.SyncActionUpdate:
			var input models.UpdateInvoiceInput
			if err := decodePayload(item.Payload, &input); err != nil {
				return nil, err
			}
			invoice, err := models.UpdateInvoiceTx(ctx, tx, item.EntityId, &input)
			if err != nil {
				return nil, err
			}
			return &invoice.ID, nil
		}
	case models.SyncEntityCustomer:
		switch item.Action {
		case models.SyncActionCreate:
			var input models.NewCustomer
			if err := decodePayload(item.Payload, &input); err != nil {
				return nil, err
			}
			customer, err := models.CreateCustomerTx(ctx, tx, &input)
			if err != nil {
				return nil, err
			}
			return &customer.ID, nil
		case models.SyncActionUpdate:
			var input models.UpdateCustomerInput
			if err := decodePayload(item.Payload, &input); err != nil {
				return nil, err
			}
			customer, err := models.UpdateCustomerTx(ctx, tx, item.EntityId, &input)
			if err != nil {
				return nil, err
			}
			return &customer.ID, nil
		}
	case models.SyncEntityPayment:
		if item.Action != models.SyncActionCreate {
			return nil, utils.NewValidationError("payments only support create")
		}
		var input models.NewPayment
		if err := decodePayload(item.Payload, &input); err != nil {
			return nil, err
		}
		payment, _, err := models.CreatePaymentTx(ctx, tx, &input)
		if err != nil {
			return nil, err
		}
		return &payment.ID, nil
	}
	return nil, utils.NewValidationError("unsupported action %q for %q", item.Action, item.EntityType)
}

func decodePayload(raw json.RawMessage, dest interface{}) error {
	if err := json.Unmarshal(raw, dest); err != nil {
		return utils.NewValidationError("malformed payload: %s", err.Error())
	}
	if err := payloadValidator.Struct(dest); err != nil {
		return utils.NewValidationError("invalid payload: %s", err.Error())
	}
	return nil
}

func (r *Reconciler) logOutcome(tx *gorm.DB, deviceId, clientKey string, item *models.QueuedItem, entityId *int, cause error) error {
	record := models.SyncQueueRecord{
		DeviceId:   deviceId,
		ClientKey:  clientKey,
		Action:     item.Action,
		EntityType: item.EntityType,
		EntityId:   entityId,
		Payload:    []byte(item.Payload),
		Succeeded:  cause == nil,
	}
	if entityId == nil && item.EntityId > 0 {
		id := item.EntityId
		record.EntityId = &id
	}
	if cause != nil {
		record.Error = cause.Error()
	}
	if err := tx.Create(&record).Error; err != nil {
		return utils.NewInfrastructureError(err)
	}
	return nil
}

// recordOutcome logs outside any item transaction, for items rejected before
// one starts. Best effort.
func (r *Reconciler) recordOutcome(ctx context.Context, deviceId, clientKey string, item *models.QueuedItem, entityId *int, cause error) {
	if err := r.logOutcome(r.db.WithContext(ctx), deviceId, clientKey, item, entityId, cause); err != nil {
		config.LogError(r.logger, "devicesync", "recordOutcome", "log write failed", map[string]interface{}{
			"device_id":  deviceId,
			"client_key": clientKey,
		}, err)
	}
}

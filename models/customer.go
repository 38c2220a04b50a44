package models

import (
	"context"
	"time"

	"github.com/easybuilders/merchantpro_backend/utils"
	"gorm.io/gorm"
)

type Customer struct {
	ID        int            `gorm:"primary_key" json:"id"`
	AccountNo string         `gorm:"size:20;uniqueIndex" json:"account_no"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	Email     string         `gorm:"size:255" json:"email"`
	Phone     string         `gorm:"size:50" json:"phone"`
	VatNo     string         `gorm:"size:50" json:"vat_no"`
	Address   string         `gorm:"type:text" json:"address"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime;index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type NewCustomer struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	VatNo   string `json:"vat_no"`
	Address string `json:"address"`
}

type UpdateCustomerInput struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	VatNo   *string `json:"vat_no"`
	Address *string `json:"address"`
}

func validateCustomerContact(email, phone string) error {
	if email != "" && !utils.IsValidEmail(email) {
		return utils.NewValidationError("invalid email %q", email)
	}
	if phone != "" {
		if err := utils.ValidatePhoneNumber(phone, ""); err != nil {
			return utils.NewValidationError("invalid phone number %q", phone)
		}
	}
	return nil
}

// CreateCustomerTx inserts a customer with a generated account number,
// retrying on an account_no collision.
func CreateCustomerTx(ctx context.Context, tx *gorm.DB, input *NewCustomer) (*Customer, error) {
	if err := validateCustomerContact(input.Email, input.Phone); err != nil {
		return nil, err
	}

	customer := Customer{
		Name:    input.Name,
		Email:   input.Email,
		Phone:   input.Phone,
		VatNo:   input.VatNo,
		Address: input.Address,
	}
	for attempt := 0; attempt < 5; attempt++ {
		customer.AccountNo = utils.GenerateAccountNo()
		err := tx.WithContext(ctx).Create(&customer).Error
		if err == nil {
			return &customer, nil
		}
		if !utils.IsDuplicateKeyErr(err) {
			return nil, utils.NewInfrastructureError(err)
		}
	}
	return nil, utils.NewConflictError("could not allocate a unique account number")
}

func CreateCustomer(ctx context.Context, db *gorm.DB, input *NewCustomer) (*Customer, error) {
	var customer *Customer
	err := db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		customer, txErr = CreateCustomerTx(ctx, tx, input)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func UpdateCustomerTx(ctx context.Context, tx *gorm.DB, customerId int, input *UpdateCustomerInput) (*Customer, error) {
	var customer Customer
	if err := tx.WithContext(ctx).First(&customer, customerId).Error; err != nil {
		return nil, utils.ClassifyDBError(err, "customer")
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, utils.NewValidationError("customer name cannot be empty")
		}
		updates["name"] = *input.Name
		customer.Name = *input.Name
	}
	if input.Email != nil {
		if err := validateCustomerContact(*input.Email, ""); err != nil {
			return nil, err
		}
		updates["email"] = *input.Email
		customer.Email = *input.Email
	}
	if input.Phone != nil {
		if err := validateCustomerContact("", *input.Phone); err != nil {
			return nil, err
		}
		updates["phone"] = *input.Phone
		customer.Phone = *input.Phone
	}
	if input.VatNo != nil {
		updates["vat_no"] = *input.VatNo
		customer.VatNo = *input.VatNo
	}
	if input.Address != nil {
		updates["address"] = *input.Address
		customer.Address = *input.Address
	}

	if len(updates) > 0 {
		if err := tx.WithContext(ctx).Model(&Customer{}).
			Where("id = ?", customerId).
			Updates(updates).Error; err != nil {
			return nil, utils.NewInfrastructureError(err)
		}
	}
	return &customer, nil
}

func UpdateCustomer(ctx context.Context, db *gorm.DB, customerId int, input *UpdateCustomerInput) (*Customer, error) {
	var customer *Customer
	err := db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		customer, txErr = UpdateCustomerTx(ctx, tx, customerId, input)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

// DeleteCustomer soft deletes. Customers with invoices cannot be removed.
func DeleteCustomer(ctx context.Context, db *gorm.DB, customerId int) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var customer Customer
		if err := tx.WithContext(ctx).First(&customer, customerId).Error; err != nil {
			return utils.ClassifyDBError(err, "customer")
		}
		var count int64
		if err := tx.WithContext(ctx).Model(&Invoice{}).Where("customer_id = ?", customerId).Count(&count).Error; err != nil {
			return utils.NewInfrastructureError(err)
		}
		if count > 0 {
			return utils.NewConflictError("customer has invoices and cannot be deleted")
		}
		if err := tx.WithContext(ctx).Delete(&Customer{}, customerId).Error; err != nil {
			return utils.NewInfrastructureError(err)
		}
		return nil
	})
}

func GetCustomer(ctx context.Context, db *gorm.DB, customerId int) (*Customer, error) {
	var customer Customer
	if err := db.WithContext(ctx).First(&customer, customerId).Error; err != nil {
		return nil, utils.ClassifyDBError(err, "customer")
	}
	return &customer, nil
}

func GetCustomers(ctx context.Context, db *gorm.DB, search string) ([]*Customer, error) {
	dbCtx := db.WithContext(ctx).Model(&Customer{})
	if search != "" {
		pattern := "%" + search + "%"
		dbCtx = dbCtx.Where("name LIKE ? OR account_no LIKE ? OR email LIKE ?", pattern, pattern, pattern)
	}
	var customers []*Customer
	if err := dbCtx.Order("name").Find(&customers).Error; err != nil {
		return nil, utils.NewInfrastructureError(err)
	}
	return customers, nil
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusCancelled = "cancelled"

	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"
)

func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusCancelled:
		return true
	}
	return false
}

type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"        json:"id"`
	Name      string    `gorm:"not null"                        json:"name"`
	Email     string    `gorm:"uniqueIndex;not null"            json:"email"`
	Password  string    `gorm:"not null"                        json:"-"`
	Role      string    `gorm:"not null;default:user"           json:"role"`
	CreatedAt time.Time `                                       json:"created_at"`
}

// RefreshToken stores only the sha256 digest of the opaque token.
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey"            json:"id"`
	UserID    uint       `gorm:"index;not null"        json:"user_id"`
	Token     string     `gorm:"uniqueIndex;not null"  json:"-"`
	ExpiresAt time.Time  `gorm:"not null"              json:"expires_at"`
	RevokedAt *time.Time `                             json:"revoked_at,omitempty"`
	CreatedAt time.Time  `                             json:"created_at"`
}

type Category struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name      string    `gorm:"uniqueIndex;not null"      json:"name"`
	CreatedAt time.Time `                                 json:"created_at"`
}

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"          json:"id"`
	Name        string          `gorm:"not null"                          json:"name"`
	Description string          `                                         json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null"       json:"price"`
	Stock       int             `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	CategoryID  *uint           `gorm:"index"                             json:"category_id"`
	CreatedAt   time.Time       `                                         json:"created_at"`
	UpdatedAt   time.Time       `                                         json:"updated_at"`
}

type Cart struct {
	ID        uint       `gorm:"primaryKey"            json:"id"`
	UserID    uint       `gorm:"uniqueIndex;not null"  json:"user_id"`
	CreatedAt time.Time  `                             json:"created_at"`
	Items     []CartItem `gorm:"foreignKey:CartID"     json:"items,omitempty"`
}

type CartItem struct {
	ID         uint            `gorm:"primaryKey"                              json:"id"`
	CartID     uint            `gorm:"uniqueIndex:idx_cart_product;not null"   json:"cart_id"`
	ProductID  uint            `gorm:"uniqueIndex:idx_cart_product;not null"   json:"product_id"`
	Quantity   int             `gorm:"not null;check:quantity > 0"             json:"quantity"`
	PriceAtAdd decimal.Decimal `gorm:"type:numeric(12,2);not null"             json:"price_at_add"`
}

type Order struct {
	ID                    uint            `gorm:"primaryKey"                   json:"id"`
	UserID                uint            `gorm:"index;not null"               json:"user_id"`
	Total                 decimal.Decimal `gorm:"type:numeric(12,2);not null"  json:"total"`
	Status                string          `gorm:"not null;default:pending"     json:"status"`
	PaymentStatus         string          `gorm:"not null;default:unpaid"      json:"payment_status"`
	StripePaymentIntentID *string         `gorm:"uniqueIndex"                  json:"stripe_payment_intent_id"`
	CreatedAt             time.Time       `gorm:"index"                        json:"created_at"`
	Items                 []OrderItem     `gorm:"foreignKey:OrderID"           json:"items,omitempty"`
}

type OrderItem struct {
	ID        uint            `gorm:"primaryKey"                  json:"id"`
	OrderID   uint            `gorm:"index;not null"              json:"order_id"`
	ProductID uint            `gorm:"index;not null"              json:"product_id"`
	Quantity  int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
}

func All() []any {
	return []any{
		&User{}, &RefreshToken{}, &Category{}, &Product{},
		&Cart{}, &CartItem{}, &Order{}, &OrderItem{},
	}
}

package domain

import "time"

const (
	OrderPending       = "pending"
	OrderConfirmed     = "confirmed"
	OrderPaymentFailed = "payment_failed"
)

// Order is created once at checkout and is immutable for the shopper.
type Order struct {
	ID            int64       `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	Reference     string      `gorm:"size:36;uniqueIndex" json:"reference"`
	CustomerName  string      `gorm:"size:255" json:"customerName"`
	CustomerEmail string      `gorm:"size:255;index" json:"customerEmail"`
	CustomerPhone string      `gorm:"size:64" json:"customerPhone"`
	Currency      string      `gorm:"size:3" json:"currency"`
	Status        string      `gorm:"size:32;index" json:"status"`
	Total         float64     `json:"total"`
	PaymentURL    string      `gorm:"size:1024" json:"paymentUrl,omitempty"`
	Items         []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// TableName Specify table name
func (Order) TableName() string {
	return "shop_order"
}

// OrderItem records the unit price charged at the time of the order.
type OrderItem struct {
	ID          int64   `gorm:"primaryKey;autoIncrement" json:"-"`
	OrderID     int64   `gorm:"index" json:"-"`
	ProductID   int64   `gorm:"index" json:"productId,string"`
	ProductName string  `gorm:"size:255" json:"productName"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

// TableName Specify table name
func (OrderItem) TableName() string {
	return "shop_order_item"
}

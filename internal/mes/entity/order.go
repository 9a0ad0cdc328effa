package entity

import "time"

// Order 生产订单
type Order struct {
	ID            string     `json:"id" gorm:"primaryKey;size:32"`
	OrderNo       string     `json:"order_no" gorm:"size:32;uniqueIndex;not null"`
	CustomerID    *string    `json:"customer_id" gorm:"size:32;index"`
	CustomerName  string     `json:"customer_name" gorm:"size:200"`
	Status        string     `json:"status" gorm:"size:20;default:pending;index"`
	Priority      string     `json:"priority" gorm:"size:20;default:normal"` // low/normal/high/urgent
	PaymentStatus string     `json:"payment_status" gorm:"size:20;default:unpaid"`
	TotalAmount   float64    `json:"total_amount" gorm:"type:decimal(15,2)"`
	Currency      string     `json:"currency" gorm:"size:10;default:CNY"`
	PartnerID     *string    `json:"partner_id" gorm:"size:32;index"` // 承制工厂
	DueDate       *time.Time `json:"due_date"`
	Notes         string     `json:"notes" gorm:"type:text"`
	CreatedBy     string     `json:"created_by" gorm:"size:32"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Order) TableName() string {
	return "mes_orders"
}

// 订单状态
const (
	OrderStatusDraft        = "draft"
	OrderStatusPending      = "pending"
	OrderStatusConfirmed    = "confirmed"
	OrderStatusInProduction = "in_production"
	OrderStatusQualityCheck = "quality_check"
	OrderStatusReadyToShip  = "ready_to_ship"
	OrderStatusShipped      = "shipped"
	OrderStatusDelivered    = "delivered"
	OrderStatusCompleted    = "completed"
	OrderStatusCancelled    = "cancelled"
)

// ValidOrderTransitions 合法的订单状态流转
// completed / cancelled 为终态，没有出边
var ValidOrderTransitions = map[string][]string{
	OrderStatusDraft:        {OrderStatusPending, OrderStatusCancelled},
	OrderStatusPending:      {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:    {OrderStatusInProduction, OrderStatusCancelled},
	OrderStatusInProduction: {OrderStatusQualityCheck, OrderStatusCancelled},
	OrderStatusQualityCheck: {OrderStatusReadyToShip, OrderStatusInProduction, OrderStatusCancelled},
	OrderStatusReadyToShip:  {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:      {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:    {OrderStatusCompleted},
	OrderStatusCompleted:    {},
	OrderStatusCancelled:    {},
}

// IsValidOrderStatus 状态是否属于订单状态枚举
func IsValidOrderStatus(status string) bool {
	_, ok := ValidOrderTransitions[status]
	return ok
}

// OrderStatusHistory 订单状态变更记录（只追加，不修改）
type OrderStatusHistory struct {
	ID         string    `json:"id" gorm:"primaryKey;size:32"`
	OrderID    string    `json:"order_id" gorm:"size:32;index;not null"`
	FromStatus string    `json:"from_status" gorm:"size:20"`
	ToStatus   string    `json:"to_status" gorm:"size:20;not null"`
	ChangedBy  string    `json:"changed_by" gorm:"size:32"`
	Note       string    `json:"note" gorm:"size:500"`
	CreatedAt  time.Time `json:"created_at"`
}

func (OrderStatusHistory) TableName() string {
	return "mes_order_status_histories"
}

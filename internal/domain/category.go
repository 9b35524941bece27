package domain

import "time"

const (
	CategoryActive     = "active"
	CategoryInactive   = "inactive"
	CategoryTerminated = "terminated"
)

// Category groups products. Subcategory is a free label, not a hierarchy.
type Category struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id,string"`
	Name        string    `gorm:"size:255;uniqueIndex" json:"name"`
	Subcategory string    `gorm:"size:255" json:"subcategory"`
	Status      string    `gorm:"size:16;index" json:"status"`
	Image       string    `gorm:"size:1024" json:"image"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName Specify table name
func (Category) TableName() string {
	return "shop_category"
}

func ValidCategoryStatus(status string) bool {
	switch status {
	case CategoryActive, CategoryInactive, CategoryTerminated:
		return true
	}
	return false
}

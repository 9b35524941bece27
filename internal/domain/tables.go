package domain

var Tables = []interface{}{
	// Catalog
	&Category{},
	&Product{},
	// Orders
	&Order{},
	&OrderItem{},
	// System
	&AuditLog{},
}

package domain

// LabelCount is one bar of a dashboard chart
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DashboardStats aggregates the admin dashboard figures
type DashboardStats struct {
	TotalOrders    int          `json:"total_orders"`
	TotalRevenue   int64        `json:"total_revenue"`
	TotalProducts  int          `json:"total_products"`
	TotalContacts  int          `json:"total_contacts"`
	ActiveAds      int          `json:"active_ads"`
	PaymentStatus  []LabelCount `json:"payment_status"`
	TopStates      []LabelCount `json:"top_states"`
	TopCategories  []LabelCount `json:"top_categories"`
	OrdersPerDay   []LabelCount `json:"orders_per_day"`
	ContactDomains []LabelCount `json:"contact_domains"`
}

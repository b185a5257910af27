package velmoadmin

import "time"

// Status enumerations mirroring the platform schema.

// UserStatus is the moderation state of a user account.
type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserSuspended UserStatus = "suspended"
	UserBlocked   UserStatus = "blocked"
)

// ShopStatus is the moderation state of a shop.
type ShopStatus string

const (
	ShopActive    ShopStatus = "active"
	ShopSuspended ShopStatus = "suspended"
	ShopCancelled ShopStatus = "cancelled"
)

// DebtStatus is the repayment state of a customer debt.
type DebtStatus string

const (
	DebtPending DebtStatus = "pending"
	DebtPartial DebtStatus = "partial"
	DebtPaid    DebtStatus = "paid"
	DebtOverdue DebtStatus = "overdue"
)

// Role is an admin dashboard role as resolved by the access check.
type Role string

const (
	RoleViewer     Role = "viewer"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// ShopRef is the flattened shop relation embedded in list rows.
type ShopRef struct {
	Name    string `json:"name"`
	VelmoID string `json:"velmo_id"`
	Address string `json:"address,omitempty"`
}

// UserRef is the flattened user relation embedded in list rows.
type UserRef struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role,omitempty"`
}

// User is a platform user account.
type User struct {
	ID          string     `json:"id"`
	VelmoID     string     `json:"velmo_id"`
	Phone       *string    `json:"phone"`
	Email       *string    `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Role        string     `json:"role"`
	ShopID      *string    `json:"shop_id"`
	AvatarURL   *string    `json:"avatar_url"`
	IsActive    bool       `json:"is_active"`
	Status      UserStatus `json:"status"`
	IsLoggedIn  bool       `json:"is_logged_in"`
	LastLoginAt *string    `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// UserRow is a user list row with its flattened shop relation.
type UserRow struct {
	User
	Shop *ShopRef `json:"shops"`
}

// Shop is a registered shop.
type Shop struct {
	ID             string     `json:"id"`
	VelmoID        string     `json:"velmo_id"`
	Name           string     `json:"name"`
	Category       string     `json:"category"`
	OwnerID        string     `json:"owner_id"`
	Address        *string    `json:"address"`
	Phone          *string    `json:"phone"`
	Currency       string     `json:"currency"`
	CurrencySymbol string     `json:"currency_symbol"`
	IsActive       bool       `json:"is_active"`
	Status         ShopStatus `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Online storefront fields.
	Slug         *string `json:"slug"`
	IsPublic     bool    `json:"is_public"`
	Location     *string `json:"location"`
	Whatsapp     *string `json:"whatsapp"`
	OpeningHours *string `json:"opening_hours"`
	IsVerified   bool    `json:"is_verified"`
	OrdersCount  int     `json:"orders_count"`
	LogoURL      *string `json:"logo_url"`
	CoverURL     *string `json:"cover_url"`
	Description  *string `json:"description"`
}

// Product is a shop inventory item.
type Product struct {
	ID          string    `json:"id"`
	VelmoID     string    `json:"velmo_id"`
	ShopID      string    `json:"shop_id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	PriceSale   float64   `json:"price_sale"`
	PriceBuy    float64   `json:"price_buy"`
	Quantity    float64   `json:"quantity"`
	StockAlert  *float64  `json:"stock_alert"`
	Category    *string   `json:"category"`
	Description *string   `json:"description"`
	Photo       *string   `json:"photo"`
	PhotoURL    *string   `json:"photo_url"`
	Barcode     *string   `json:"barcode"`
	Unit        *string   `json:"unit"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductRow is a product list row with its flattened shop relation and
// the photo path resolved to a public URL.
type ProductRow struct {
	Product
	Shop *ShopRef `json:"shops"`
}

// Sale is a completed point-of-sale transaction.
type Sale struct {
	ID            string    `json:"id"`
	VelmoID       string    `json:"velmo_id"`
	ShopID        string    `json:"shop_id"`
	UserID        string    `json:"user_id"`
	TotalAmount   float64   `json:"total_amount"`
	TotalProfit   float64   `json:"total_profit"`
	PaymentType   string    `json:"payment_type"`
	CustomerName  *string   `json:"customer_name"`
	CustomerPhone *string   `json:"customer_phone"`
	ItemsCount    int       `json:"items_count"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// SaleRow is a sale list row with flattened relations.
type SaleRow struct {
	Sale
	Shop   *ShopRef `json:"shops"`
	Seller *UserRef `json:"users"`
}

// SaleItem is a line item of a sale.
type SaleItem struct {
	ID            string  `json:"id"`
	SaleID        string  `json:"sale_id"`
	ProductID     string  `json:"product_id"`
	ProductName   string  `json:"product_name"`
	Quantity      float64 `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
	PurchasePrice float64 `json:"purchase_price"`
	Subtotal      float64 `json:"subtotal"`
}

// SaleDetail is a sale with its relations and line items.
type SaleDetail struct {
	Sale
	Shop   *ShopRef   `json:"shops"`
	Seller *UserRef   `json:"users"`
	Items  []SaleItem `json:"sale_items"`
}

// Debt is a customer debt tracked by a shop.
type Debt struct {
	ID              string     `json:"id"`
	VelmoID         string     `json:"velmo_id"`
	ShopID          string     `json:"shop_id"`
	UserID          string     `json:"user_id"`
	CustomerName    string     `json:"customer_name"`
	CustomerPhone   *string    `json:"customer_phone"`
	TotalAmount     float64    `json:"total_amount"`
	PaidAmount      float64    `json:"paid_amount"`
	RemainingAmount float64    `json:"remaining_amount"`
	Status          DebtStatus `json:"status"`
	DueDate         *string    `json:"due_date"`
	CreatedAt       time.Time  `json:"created_at"`
}

// DebtRow is a debt list row with flattened relations.
type DebtRow struct {
	Debt
	Shop    *ShopRef `json:"shops"`
	Manager *UserRef `json:"users"`
}

// DebtPayment is one repayment against a debt.
type DebtPayment struct {
	ID            string    `json:"id"`
	DebtID        string    `json:"debt_id"`
	Amount        float64   `json:"amount"`
	PaymentMethod string    `json:"payment_method"`
	Notes         *string   `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
}

// DebtDetail is a debt with its relations and payment history.
type DebtDetail struct {
	Debt
	Shop     *ShopRef      `json:"shops"`
	Manager  *UserRef      `json:"users"`
	Payments []DebtPayment `json:"debt_payments"`
}

// ShopMember is a user's membership in a shop's team.
type ShopMember struct {
	ID       string   `json:"id"`
	ShopID   string   `json:"shop_id"`
	UserID   string   `json:"user_id"`
	Role     string   `json:"role"`
	IsActive bool     `json:"is_active"`
	Member   *UserRef `json:"users"`
}

// CustomerOrder is an order placed through a shop's online storefront.
type CustomerOrder struct {
	ID             string    `json:"id"`
	ShopID         string    `json:"shop_id"`
	CustomerName   string    `json:"customer_name"`
	CustomerPhone  string    `json:"customer_phone"`
	TotalAmount    float64   `json:"total_amount"`
	DeliveryMethod string    `json:"delivery_method"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`

	// ShopName is flattened from the joined shop relation.
	ShopName string `json:"shop_name,omitempty"`
}

// PlatformStats is the precomputed platform-wide aggregate view.
type PlatformStats struct {
	TotalActiveShops     int     `json:"total_active_shops"`
	TotalActiveUsers     int     `json:"total_active_users"`
	TotalProducts        int     `json:"total_products"`
	TotalSales           int     `json:"total_sales"`
	TotalGMV             float64 `json:"total_gmv"`
	TotalProfit          float64 `json:"total_profit"`
	ActiveDebtsCount     int     `json:"active_debts_count"`
	TotalOutstandingDebt float64 `json:"total_outstanding_debt"`
	SalesLast24h         int     `json:"sales_last_24h"`
	NewUsersLast7d       int     `json:"new_users_last_7d"`
	NewShopsLast7d       int     `json:"new_shops_last_7d"`
}

// ShopOverview is one row of the per-shop aggregate view.
type ShopOverview struct {
	ShopID               string     `json:"shop_id"`
	ShopVelmoID          string     `json:"shop_velmo_id"`
	ShopName             string     `json:"shop_name"`
	Category             string     `json:"category"`
	IsActive             bool       `json:"is_active"`
	Status               ShopStatus `json:"status"`
	CreatedAt            time.Time  `json:"created_at"`
	OwnerID              string     `json:"owner_id"`
	OwnerName            string     `json:"owner_name"`
	OwnerPhone           *string    `json:"owner_phone"`
	ProductsCount        int        `json:"products_count"`
	TotalSales           int        `json:"total_sales"`
	TotalRevenue         float64    `json:"total_revenue"`
	TotalProfit          float64    `json:"total_profit"`
	ActiveDebts          int        `json:"active_debts"`
	TotalOutstandingDebt float64    `json:"total_outstanding_debt"`
	TeamSize             int        `json:"team_size"`
	LastSaleAt           *string    `json:"last_sale_at"`
}

// DailySales is one day of the sales-by-day aggregate view.
type DailySales struct {
	SaleDate    string  `json:"sale_date"`
	SalesCount  int     `json:"sales_count"`
	TotalAmount float64 `json:"total_amount"`
	TotalProfit float64 `json:"total_profit"`
	ActiveShops int     `json:"active_shops"`
}

// RealtimeActivity is one row of the recent-activity view.
type RealtimeActivity struct {
	ActivityType string   `json:"activity_type"` // sale, debt, user_created
	EntityID     string   `json:"entity_id"`
	ShopName     string   `json:"shop_name"`
	ShopID       string   `json:"shop_id"`
	Amount       *float64 `json:"amount"`
	ActivityAt   string   `json:"activity_at"`
	Status       *string  `json:"status"`
}

// StockAlert is one row of the low-stock view.
type StockAlert struct {
	ProductID      string  `json:"product_id"`
	ProductName    string  `json:"product_name"`
	CurrentStock   float64 `json:"current_stock"`
	AlertThreshold float64 `json:"alert_threshold"`
	ShopID         string  `json:"shop_id"`
	ShopName       string  `json:"shop_name"`
	OwnerName      string  `json:"owner_name"`
	OwnerPhone     *string `json:"owner_phone"`
}

// CriticalAuditEvent is one row of the critical audit event feed.
type CriticalAuditEvent struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	EntityType string  `json:"entity_type"`
	EntityID   string  `json:"entity_id"`
	UserID     *string `json:"user_id"`
	UserName   *string `json:"user_name"`
	ShopID     *string `json:"shop_id"`
	ShopName   *string `json:"shop_name"`
	Timestamp  int64   `json:"timestamp"`
	Severity   string  `json:"severity"` // info, warning, error, critical
}

// SilentShop is one row of the shops-gone-quiet view: shops with no sale
// activity over the view's rolling window.
type SilentShop struct {
	ShopID     string  `json:"shop_id"`
	ShopName   string  `json:"shop_name"`
	OwnerName  string  `json:"owner_name"`
	OwnerPhone *string `json:"owner_phone"`
	LastSaleAt *string `json:"last_sale_at"`
	DaysSilent int     `json:"days_silent"`
}

// ShopDetailStats are the derived counters of a shop detail view.
type ShopDetailStats struct {
	RevenueToday    float64 `json:"revenue_today"`
	ProfitToday     float64 `json:"profit_today"`
	SalesToday      int     `json:"sales_today"`
	LowStockCount   int     `json:"low_stock_count"`
	ActiveDebts     int     `json:"active_debts"`
	TotalDebtAmount float64 `json:"total_debt_amount"`
}

// ShopDetail is the composite shop view: the shop, its owner, derived
// stats, and the related collections the detail page renders.
type ShopDetail struct {
	Shop             Shop            `json:"shop"`
	Owner            *User           `json:"owner"`
	Stats            ShopDetailStats `json:"stats"`
	RecentSales      []Sale          `json:"recent_sales"`
	LowStockProducts []Product       `json:"low_stock_products"`
	ActiveDebts      []Debt          `json:"active_debts"`
	Team             []ShopMember    `json:"team"`
}

// UserDetail is a user with its flattened shop relation and lifetime
// sales/debts counts.
type UserDetail struct {
	UserRow
	SalesCount int `json:"sales_count"`
	DebtsCount int `json:"debts_count"`
}

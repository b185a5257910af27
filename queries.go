package velmoadmin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/velmohq/velmoadmin/backend"
)

// Page is one page of a counted list query.
type Page[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
}

func totalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// searchMinLength is the minimum free-text length before a search term
// participates in a query. Shorter terms are ignored entirely.
const searchMinLength = 2

func decodeRows[T any](raw json.RawMessage) ([]T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var rows []T
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("velmoadmin: failed to decode rows: %w", err)
	}
	return rows, nil
}

// decodeOne decodes the first row of a result, reporting whether one
// existed at all.
func decodeOne[T any](raw json.RawMessage) (*T, bool, error) {
	rows, err := decodeRows[T](raw)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return &rows[0], true, nil
}

// fetchPage runs a counted range query and assembles the page envelope.
// normalize, when non-nil, reshapes the decoded rows before caching.
func fetchPage[T any](ctx context.Context, c *Client, key Key, ttl time.Duration, table string, spec backend.QuerySpec, page, limit int, normalize func([]T) []T) (Page[T], error) {
	return fetchAs(ctx, c, key, ttl, func(ctx context.Context) (Page[T], error) {
		spec.Count = true
		spec.Limit = limit
		spec.Offset = (page - 1) * limit

		res, err := c.q.Query(ctx, table, spec)
		if err != nil {
			return Page[T]{}, err
		}
		rows, err := decodeRows[T](res.Rows)
		if err != nil {
			return Page[T]{}, err
		}
		if normalize != nil {
			rows = normalize(rows)
		}
		return Page[T]{
			Data:       rows,
			Total:      res.Count,
			Page:       page,
			TotalPages: totalPages(res.Count, limit),
		}, nil
	})
}

// PlatformStats returns the platform-wide aggregate view.
func (c *Client) PlatformStats(ctx context.Context) (PlatformStats, error) {
	return fetchAs(ctx, c, PlatformStatsKey(), c.cfg.ListStaleness, func(ctx context.Context) (PlatformStats, error) {
		res, err := c.q.Query(ctx, "v_admin_platform_stats", backend.QuerySpec{Limit: 1})
		if err != nil {
			return PlatformStats{}, err
		}
		stats, ok, err := decodeOne[PlatformStats](res.Rows)
		if err != nil {
			return PlatformStats{}, err
		}
		if !ok {
			return PlatformStats{}, fmt.Errorf("v_admin_platform_stats returned no row: %w", ErrNotFound)
		}
		return *stats, nil
	})
}

// ShopsOverview returns one page of the per-shop aggregate view.
func (c *Client) ShopsOverview(ctx context.Context, page, limit int) (Page[ShopOverview], error) {
	return fetchPage[ShopOverview](ctx, c, ShopsOverviewKey(page, limit), c.cfg.ListStaleness,
		"v_admin_shops_overview", backend.QuerySpec{}, page, limit, nil)
}

// SearchShops searches shops by name, velmo id or owner name.
// Queries shorter than two characters never hit the network.
func (c *Client) SearchShops(ctx context.Context, query string) ([]ShopOverview, error) {
	if len(query) < searchMinLength {
		return nil, nil
	}
	return fetchAs(ctx, c, SearchShopsKey(query), c.cfg.ListStaleness, func(ctx context.Context) ([]ShopOverview, error) {
		res, err := c.q.Query(ctx, "v_admin_shops_overview", backend.QuerySpec{
			Or: []backend.Cond{
				{Column: "shop_name", Op: "ilike", Value: query},
				{Column: "shop_velmo_id", Op: "ilike", Value: query},
				{Column: "owner_name", Op: "ilike", Value: query},
			},
			Limit: 20,
		})
		if err != nil {
			return nil, err
		}
		return decodeRows[ShopOverview](res.Rows)
	})
}

// TopShops returns the highest-revenue shops.
func (c *Client) TopShops(ctx context.Context, limit int) ([]ShopOverview, error) {
	return fetchAs(ctx, c, TopShopsKey(limit), c.cfg.ListStaleness, func(ctx context.Context) ([]ShopOverview, error) {
		res, err := c.q.Query(ctx, "v_admin_shops_overview", backend.QuerySpec{
			OrderBy: &backend.Order{Column: "total_revenue", Descending: true},
			Limit:   limit,
		})
		if err != nil {
			return nil, err
		}
		return decodeRows[ShopOverview](res.Rows)
	})
}

// ShopDetails returns the composite detail aggregate for a shop: the
// shop row plus owner, recent sales, active products, open debts and
// team members fetched in parallel and joined client-side. All related
// queries must succeed; a partial aggregate is never returned.
//
// An empty shopID disables the query: no network call, nil result.
func (c *Client) ShopDetails(ctx context.Context, shopID string) (*ShopDetail, error) {
	if shopID == "" {
		return nil, nil
	}
	return fetchAs(ctx, c, ShopDetailKey(shopID), c.cfg.ListStaleness, func(ctx context.Context) (*ShopDetail, error) {
		res, err := c.q.Query(ctx, "shops", backend.QuerySpec{
			Conds: []backend.Cond{{Column: "id", Op: "eq", Value: shopID}},
			Limit: 1,
		})
		if err != nil {
			return nil, err
		}
		shop, ok, err := decodeOne[Shop](res.Rows)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("shop %s: %w", shopID, ErrNotFound)
		}

		detail := &ShopDetail{Shop: *shop}
		var (
			sales    []Sale
			products []Product
			debts    []Debt
		)

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			res, err := c.q.Query(ctx, "users", backend.QuerySpec{
				Conds: []backend.Cond{{Column: "id", Op: "eq", Value: shop.OwnerID}},
				Limit: 1,
			})
			if err != nil {
				return err
			}
			owner, _, err := decodeOne[User](res.Rows)
			if err != nil {
				return err
			}
			detail.Owner = owner
			return nil
		})
		g.Go(func() error {
			res, err := c.q.Query(ctx, "sales", backend.QuerySpec{
				Conds:   []backend.Cond{{Column: "shop_id", Op: "eq", Value: shopID}},
				OrderBy: &backend.Order{Column: "created_at", Descending: true},
				Limit:   20,
			})
			if err != nil {
				return err
			}
			sales, err = decodeRows[Sale](res.Rows)
			return err
		})
		g.Go(func() error {
			res, err := c.q.Query(ctx, "products", backend.QuerySpec{
				Conds: []backend.Cond{
					{Column: "shop_id", Op: "eq", Value: shopID},
					{Column: "is_active", Op: "eq", Value: true},
				},
			})
			if err != nil {
				return err
			}
			products, err = decodeRows[Product](res.Rows)
			return err
		})
		g.Go(func() error {
			res, err := c.q.Query(ctx, "debts", backend.QuerySpec{
				Conds: []backend.Cond{
					{Column: "shop_id", Op: "eq", Value: shopID},
					{Column: "status", Op: "neq", Value: string(DebtPaid)},
				},
			})
			if err != nil {
				return err
			}
			debts, err = decodeRows[Debt](res.Rows)
			return err
		})
		g.Go(func() error {
			res, err := c.q.Query(ctx, "shop_members", backend.QuerySpec{
				Select: "*, users:user_id(first_name, last_name, phone, role)",
				Conds:  []backend.Cond{{Column: "shop_id", Op: "eq", Value: shopID}},
			})
			if err != nil {
				return err
			}
			detail.Team, err = decodeRows[ShopMember](res.Rows)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		now := time.Now()
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		var salesToday int
		for _, s := range sales {
			if !s.CreatedAt.Before(startOfDay) {
				salesToday++
				detail.Stats.RevenueToday += s.TotalAmount
				detail.Stats.ProfitToday += s.TotalProfit
			}
		}
		detail.Stats.SalesToday = salesToday

		for _, p := range products {
			threshold := 0.0
			if p.StockAlert != nil {
				threshold = *p.StockAlert
			}
			if p.Quantity <= threshold {
				detail.LowStockProducts = append(detail.LowStockProducts, p)
			}
		}
		detail.Stats.LowStockCount = len(detail.LowStockProducts)

		detail.Stats.ActiveDebts = len(debts)
		for _, d := range debts {
			detail.Stats.TotalDebtAmount += d.RemainingAmount
		}

		detail.RecentSales = sales
		detail.ActiveDebts = debts
		return detail, nil
	})
}

// DailySales returns up to days rows of the sales-by-day aggregate.
func (c *Client) DailySales(ctx context.Context, days int) ([]DailySales, error) {
	return fetchAs(ctx, c, DailySalesKey(days), c.cfg.DailySalesStaleness, func(ctx context.Context) ([]DailySales, error) {
		res, err := c.q.Query(ctx, "v_admin_daily_sales", backend.QuerySpec{Limit: days})
		if err != nil {
			return nil, err
		}
		return decodeRows[DailySales](res.Rows)
	})
}

// RealtimeActivity returns the most recent platform activity. Its cache
// window is short so dashboards polling it refetch every few seconds.
func (c *Client) RealtimeActivity(ctx context.Context, limit int) ([]RealtimeActivity, error) {
	return fetchAs(ctx, c, RealtimeActivityKey(), c.cfg.ActivityStaleness, func(ctx context.Context) ([]RealtimeActivity, error) {
		res, err := c.q.Query(ctx, "v_admin_realtime_activity", backend.QuerySpec{
			OrderBy: &backend.Order{Column: "activity_at", Descending: true},
			Limit:   limit,
		})
		if err != nil {
			return nil, err
		}
		return decodeRows[RealtimeActivity](res.Rows)
	})
}

// StockAlerts returns one page of the low-stock alert view.
func (c *Client) StockAlerts(ctx context.Context, page, limit int) (Page[StockAlert], error) {
	return fetchPage[StockAlert](ctx, c, StockAlertsKey(page, limit), c.cfg.ListStaleness,
		"v_admin_stock_alerts", backend.QuerySpec{}, page, limit, nil)
}

// CriticalEvents returns one page of the critical audit event feed.
func (c *Client) CriticalEvents(ctx context.Context, page, limit int) (Page[CriticalAuditEvent], error) {
	return fetchPage[CriticalAuditEvent](ctx, c, CriticalEventsKey(page, limit), c.cfg.ListStaleness,
		"critical_audit_events", backend.QuerySpec{}, page, limit, nil)
}

// SilentShops returns shops with no recent sale activity.
func (c *Client) SilentShops(ctx context.Context) ([]SilentShop, error) {
	return fetchAs(ctx, c, SilentShopsKey(), c.cfg.SilentShopsStaleness, func(ctx context.Context) ([]SilentShop, error) {
		res, err := c.q.Query(ctx, "v_admin_silent_shops", backend.QuerySpec{})
		if err != nil {
			return nil, err
		}
		return decodeRows[SilentShop](res.Rows)
	})
}

// AllUsers returns one page of the global user list. A search term of
// two characters or more filters case-insensitively across first name,
// last name, email and phone; shorter terms are ignored.
func (c *Client) AllUsers(ctx context.Context, page, limit int, search string) (Page[UserRow], error) {
	if len(search) < searchMinLength {
		search = ""
	}
	spec := backend.QuerySpec{
		Select:  "*, shops(name, velmo_id)",
		OrderBy: &backend.Order{Column: "created_at", Descending: true},
	}
	if search != "" {
		spec.Or = []backend.Cond{
			{Column: "first_name", Op: "ilike", Value: search},
			{Column: "last_name", Op: "ilike", Value: search},
			{Column: "email", Op: "ilike", Value: search},
			{Column: "phone", Op: "ilike", Value: search},
		}
	}
	return fetchPage(ctx, c, AllUsersKey(page, limit, search), c.cfg.ListStaleness,
		"users", spec, page, limit, func(rows []UserRow) []UserRow {
			for i := range rows {
				rows[i].AvatarURL = c.resolvePtr(BucketAvatars, rows[i].AvatarURL)
			}
			return rows
		})
}

// AllProducts returns one page of the global product list with photo
// paths resolved to public URLs.
func (c *Client) AllProducts(ctx context.Context, page, limit int, search string) (Page[ProductRow], error) {
	if len(search) < searchMinLength {
		search = ""
	}
	spec := backend.QuerySpec{
		Select:  "*, shops(name, velmo_id)",
		OrderBy: &backend.Order{Column: "created_at", Descending: true},
	}
	if search != "" {
		spec.Conds = []backend.Cond{{Column: "name", Op: "ilike", Value: search}}
	}
	return fetchPage(ctx, c, AllProductsKey(page, limit, search), c.cfg.ListStaleness,
		"products", spec, page, limit, func(rows []ProductRow) []ProductRow {
			for i := range rows {
				rows[i].PhotoURL = c.resolvePtr(BucketProducts, rows[i].PhotoURL, rows[i].Photo)
			}
			return rows
		})
}

// AllSales returns one page of the global sales history.
func (c *Client) AllSales(ctx context.Context, page, limit int) (Page[SaleRow], error) {
	return fetchPage[SaleRow](ctx, c, AllSalesKey(page, limit), c.cfg.ListStaleness,
		"sales", backend.QuerySpec{
			Select:  "*, shops(name, velmo_id), users!user_id(first_name, last_name)",
			OrderBy: &backend.Order{Column: "created_at", Descending: true},
		}, page, limit, nil)
}

// AllDebts returns one page of the global debt list.
func (c *Client) AllDebts(ctx context.Context, page, limit int) (Page[DebtRow], error) {
	return fetchPage[DebtRow](ctx, c, AllDebtsKey(page, limit), c.cfg.ListStaleness,
		"debts", backend.QuerySpec{
			Select:  "*, shops(name, velmo_id), users!user_id(first_name, last_name)",
			OrderBy: &backend.Order{Column: "created_at", Descending: true},
		}, page, limit, nil)
}

// UserDetails returns a user with lifetime sales and debt counts.
// The counts run as parallel head-only queries to avoid heavy joins.
// An empty userID disables the query: no network call, nil result.
// A missing user also resolves to nil, not an error.
func (c *Client) UserDetails(ctx context.Context, userID string) (*UserDetail, error) {
	if userID == "" {
		return nil, nil
	}
	return fetchAs(ctx, c, UserDetailKey(userID), c.cfg.ListStaleness, func(ctx context.Context) (*UserDetail, error) {
		res, err := c.q.Query(ctx, "users", backend.QuerySpec{
			Select: "*, shops(name, velmo_id)",
			Conds:  []backend.Cond{{Column: "id", Op: "eq", Value: userID}},
			Limit:  1,
		})
		if err != nil {
			return nil, err
		}
		user, ok, err := decodeOne[UserRow](res.Rows)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}

		detail := &UserDetail{UserRow: *user}
		detail.AvatarURL = c.resolvePtr(BucketAvatars, detail.AvatarURL)

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			res, err := c.q.Query(ctx, "sales", backend.QuerySpec{
				Conds: []backend.Cond{{Column: "user_id", Op: "eq", Value: userID}},
				Head:  true,
			})
			if err != nil {
				return err
			}
			detail.SalesCount = res.Count
			return nil
		})
		g.Go(func() error {
			res, err := c.q.Query(ctx, "debts", backend.QuerySpec{
				Conds: []backend.Cond{{Column: "user_id", Op: "eq", Value: userID}},
				Head:  true,
			})
			if err != nil {
				return err
			}
			detail.DebtsCount = res.Count
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return detail, nil
	})
}

// ProductDetails returns a product with its flattened shop relation.
// An empty productID disables the query.
func (c *Client) ProductDetails(ctx context.Context, productID string) (*ProductRow, error) {
	if productID == "" {
		return nil, nil
	}
	return fetchAs(ctx, c, ProductDetailKey(productID), c.cfg.ListStaleness, func(ctx context.Context) (*ProductRow, error) {
		res, err := c.q.Query(ctx, "products", backend.QuerySpec{
			Select: "*, shops(name, velmo_id)",
			Conds:  []backend.Cond{{Column: "id", Op: "eq", Value: productID}},
			Limit:  1,
		})
		if err != nil {
			return nil, err
		}
		product, ok, err := decodeOne[ProductRow](res.Rows)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		product.PhotoURL = c.resolvePtr(BucketProducts, product.PhotoURL, product.Photo)
		return product, nil
	})
}

// SaleDetails returns a sale with its relations and line items.
// An empty saleID disables the query.
func (c *Client) SaleDetails(ctx context.Context, saleID string) (*SaleDetail, error) {
	if saleID == "" {
		return nil, nil
	}
	return fetchAs(ctx, c, SaleDetailKey(saleID), c.cfg.ListStaleness, func(ctx context.Context) (*SaleDetail, error) {
		res, err := c.q.Query(ctx, "sales", backend.QuerySpec{
			Select: "*, shops(name, velmo_id), users!user_id(first_name, last_name), sale_items(*)",
			Conds:  []backend.Cond{{Column: "id", Op: "eq", Value: saleID}},
			Limit:  1,
		})
		if err != nil {
			return nil, err
		}
		sale, ok, err := decodeOne[SaleDetail](res.Rows)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("sale %s: %w", saleID, ErrNotFound)
		}
		return sale, nil
	})
}

// DebtDetails returns a debt with its relations and payment history.
// An empty debtID disables the query.
func (c *Client) DebtDetails(ctx context.Context, debtID string) (*DebtDetail, error) {
	if debtID == "" {
		return nil, nil
	}
	return fetchAs(ctx, c, DebtDetailKey(debtID), c.cfg.ListStaleness, func(ctx context.Context) (*DebtDetail, error) {
		res, err := c.q.Query(ctx, "debts", backend.QuerySpec{
			Select: "*, shops(name, velmo_id, address), users!user_id(first_name, last_name, phone), debt_payments(*)",
			Conds:  []backend.Cond{{Column: "id", Op: "eq", Value: debtID}},
			Limit:  1,
		})
		if err != nil {
			return nil, err
		}
		debt, ok, err := decodeOne[DebtDetail](res.Rows)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("debt %s: %w", debtID, ErrNotFound)
		}
		return debt, nil
	})
}

// CustomerOrders returns one page of online storefront orders, scoped to
// a shop when shopID is non-empty. The joined shop name is flattened
// onto each order.
func (c *Client) CustomerOrders(ctx context.Context, page, limit int, shopID string) (Page[CustomerOrder], error) {
	type orderRow struct {
		CustomerOrder
		Shop *ShopRef `json:"shops"`
	}

	spec := backend.QuerySpec{
		Select:  "*, shops!inner(name)",
		OrderBy: &backend.Order{Column: "created_at", Descending: true},
	}
	if shopID != "" {
		spec.Conds = []backend.Cond{{Column: "shop_id", Op: "eq", Value: shopID}}
	}

	return fetchAs(ctx, c, CustomerOrdersKey(page, limit, shopID), c.cfg.ListStaleness, func(ctx context.Context) (Page[CustomerOrder], error) {
		spec.Count = true
		spec.Limit = limit
		spec.Offset = (page - 1) * limit

		res, err := c.q.Query(ctx, "customer_orders", spec)
		if err != nil {
			return Page[CustomerOrder]{}, err
		}
		rows, err := decodeRows[orderRow](res.Rows)
		if err != nil {
			return Page[CustomerOrder]{}, err
		}

		orders := make([]CustomerOrder, len(rows))
		for i, row := range rows {
			orders[i] = row.CustomerOrder
			if row.Shop != nil {
				orders[i].ShopName = row.Shop.Name
			}
		}
		return Page[CustomerOrder]{
			Data:       orders,
			Total:      res.Count,
			Page:       page,
			TotalPages: totalPages(res.Count, limit),
		}, nil
	})
}

// ShopOnlineSettings returns a shop row for the online storefront
// settings page. An empty shopID disables the query.
func (c *Client) ShopOnlineSettings(ctx context.Context, shopID string) (*Shop, error) {
	if shopID == "" {
		return nil, nil
	}
	return fetchAs(ctx, c, OnlineSettingsKey(shopID), c.cfg.ListStaleness, func(ctx context.Context) (*Shop, error) {
		res, err := c.q.Query(ctx, "shops", backend.QuerySpec{
			Conds: []backend.Cond{{Column: "id", Op: "eq", Value: shopID}},
			Limit: 1,
		})
		if err != nil {
			return nil, err
		}
		shop, ok, err := decodeOne[Shop](res.Rows)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("shop %s: %w", shopID, ErrNotFound)
		}
		return shop, nil
	})
}

package velmoadmin

import (
	"strconv"
	"strings"
)

// Kind identifies the logical query a cache key belongs to.
type Kind string

const (
	KindPlatformStats    Kind = "platform-stats"
	KindShopOverview     Kind = "shop-overview"
	KindShopDetail       Kind = "shop-detail"
	KindDailySales       Kind = "daily-sales"
	KindRealtimeActivity Kind = "realtime-activity"
	KindStockAlerts      Kind = "stock-alerts"
	KindCriticalEvents   Kind = "critical-events"
	KindSearchShops      Kind = "search-shops"
	KindTopShops         Kind = "top-shops"
	KindSilentShops      Kind = "silent-shops"
	KindAllUsers         Kind = "all-users"
	KindAllProducts      Kind = "all-products"
	KindAllSales         Kind = "all-sales"
	KindAllDebts         Kind = "all-debts"
	KindUserDetail       Kind = "user-detail"
	KindProductDetail    Kind = "product-detail"
	KindSaleDetail       Kind = "sale-detail"
	KindDebtDetail       Kind = "debt-detail"
	KindCustomerOrders   Kind = "customer-orders"
	KindOnlineSettings   Kind = "online-settings"
)

// Key is the canonical identifier of a logical query: the entity kind
// plus the ordered parameters that disambiguate it. Two logically
// identical queries always build equal keys; two different queries never
// collapse to the same key.
type Key struct {
	Kind   Kind
	Params []string
}

// String renders the canonical store key, e.g. "all-users:2:20:".
// Parameters are percent-free and colon-joined; the rendering is the
// deduplication and invalidation identity.
func (k Key) String() string {
	if len(k.Params) == 0 {
		return string(k.Kind)
	}
	return string(k.Kind) + ":" + strings.Join(k.Params, ":")
}

// Equal reports value equality of two keys.
func (k Key) Equal(other Key) bool {
	if k.Kind != other.Kind || len(k.Params) != len(other.Params) {
		return false
	}
	for i := range k.Params {
		if k.Params[i] != other.Params[i] {
			return false
		}
	}
	return true
}

func pageParams(page, limit int) []string {
	return []string{strconv.Itoa(page), strconv.Itoa(limit)}
}

// PlatformStatsKey is the key for the platform-wide stats view.
func PlatformStatsKey() Key { return Key{Kind: KindPlatformStats} }

// ShopsOverviewKey is the key for one page of the shop overview list.
func ShopsOverviewKey(page, limit int) Key {
	return Key{Kind: KindShopOverview, Params: pageParams(page, limit)}
}

// ShopDetailKey is the key for a shop's composite detail view.
// An empty id still yields a valid, never-fetched key.
func ShopDetailKey(shopID string) Key {
	return Key{Kind: KindShopDetail, Params: []string{shopID}}
}

// DailySalesKey is the key for the last-N-days sales aggregate.
func DailySalesKey(days int) Key {
	return Key{Kind: KindDailySales, Params: []string{strconv.Itoa(days)}}
}

// RealtimeActivityKey is the key for the recent-activity feed.
func RealtimeActivityKey() Key { return Key{Kind: KindRealtimeActivity} }

// StockAlertsKey is the key for one page of the low-stock alert list.
func StockAlertsKey(page, limit int) Key {
	return Key{Kind: KindStockAlerts, Params: pageParams(page, limit)}
}

// CriticalEventsKey is the key for one page of the critical audit feed.
func CriticalEventsKey(page, limit int) Key {
	return Key{Kind: KindCriticalEvents, Params: pageParams(page, limit)}
}

// SearchShopsKey is the key for a free-text shop search.
func SearchShopsKey(query string) Key {
	return Key{Kind: KindSearchShops, Params: []string{query}}
}

// TopShopsKey is the key for the top-revenue shop list.
func TopShopsKey(limit int) Key {
	return Key{Kind: KindTopShops, Params: []string{strconv.Itoa(limit)}}
}

// SilentShopsKey is the key for the shops-gone-quiet view.
func SilentShopsKey() Key { return Key{Kind: KindSilentShops} }

// AllUsersKey is the key for one page of the global user list.
// The search term is part of the key so each search caches separately.
func AllUsersKey(page, limit int, search string) Key {
	return Key{Kind: KindAllUsers, Params: append(pageParams(page, limit), search)}
}

// AllProductsKey is the key for one page of the global product list.
func AllProductsKey(page, limit int, search string) Key {
	return Key{Kind: KindAllProducts, Params: append(pageParams(page, limit), search)}
}

// AllSalesKey is the key for one page of the global sales history.
func AllSalesKey(page, limit int) Key {
	return Key{Kind: KindAllSales, Params: pageParams(page, limit)}
}

// AllDebtsKey is the key for one page of the global debt list.
func AllDebtsKey(page, limit int) Key {
	return Key{Kind: KindAllDebts, Params: pageParams(page, limit)}
}

// UserDetailKey is the key for a user's detail aggregate.
func UserDetailKey(userID string) Key {
	return Key{Kind: KindUserDetail, Params: []string{userID}}
}

// ProductDetailKey is the key for a product detail view.
func ProductDetailKey(productID string) Key {
	return Key{Kind: KindProductDetail, Params: []string{productID}}
}

// SaleDetailKey is the key for a sale with its line items.
func SaleDetailKey(saleID string) Key {
	return Key{Kind: KindSaleDetail, Params: []string{saleID}}
}

// DebtDetailKey is the key for a debt with its payment history.
func DebtDetailKey(debtID string) Key {
	return Key{Kind: KindDebtDetail, Params: []string{debtID}}
}

// CustomerOrdersKey is the key for one page of online customer orders,
// optionally scoped to a shop.
func CustomerOrdersKey(page, limit int, shopID string) Key {
	return Key{Kind: KindCustomerOrders, Params: append(pageParams(page, limit), shopID)}
}

// OnlineSettingsKey is the key for a shop's online storefront settings.
func OnlineSettingsKey(shopID string) Key {
	return Key{Kind: KindOnlineSettings, Params: []string{shopID}}
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	velmoadmin "github.com/velmohq/velmoadmin"
)

func main() {
	// Option 1: environment config (VELMO_BACKEND_URL, VELMO_API_KEY...)
	cfg, err := velmoadmin.ConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to read configuration: %v", err)
	}

	// Option 2: production config (Redis-backed cache)
	// Uncomment to use:
	/*
		redisStore, err := cache.NewRedisFromConfig(cache.RedisConfig{
			Addr: "localhost:6379",
		})
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		cfg.CacheStore = redisStore
	*/

	client, err := velmoadmin.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()

	// Sign in and run the admin access check. Accounts without an
	// admin role are signed out again and rejected.
	access, err := client.SignIn(ctx, os.Getenv("VELMO_ADMIN_EMAIL"), os.Getenv("VELMO_ADMIN_PASSWORD"))
	if err != nil {
		log.Fatalf("Sign-in failed: %v", err)
	}
	fmt.Printf("Signed in with role %s\n", access.Role)

	stats, err := client.PlatformStats(ctx)
	if err != nil {
		log.Fatalf("Failed to load platform stats: %v", err)
	}
	fmt.Printf("Active shops: %d, active users: %d, GMV: %.0f\n",
		stats.TotalActiveShops, stats.TotalActiveUsers, stats.TotalGMV)

	shops, err := client.ShopsOverview(ctx, 1, 10)
	if err != nil {
		log.Fatalf("Failed to load shops: %v", err)
	}
	fmt.Printf("Shops (page 1 of %d):\n", shops.TotalPages)
	for _, shop := range shops.Data {
		fmt.Printf("  %-30s %-10s revenue %.0f\n", shop.ShopName, shop.Status, shop.TotalRevenue)
	}

	// A second identical call inside the staleness window is served
	// from cache, no network round-trip.
	if _, err := client.ShopsOverview(ctx, 1, 10); err != nil {
		log.Fatalf("Failed to re-load shops: %v", err)
	}

	if err := client.SignOut(ctx); err != nil {
		log.Fatalf("Sign-out failed: %v", err)
	}
}

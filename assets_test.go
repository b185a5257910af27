package velmoadmin

import "testing"

func TestResolveImageURL(t *testing.T) {
	const base = "https://cdn.velmo.test"

	tests := []struct {
		name string
		path string
		want string
	}{
		{"empty", "", ""},
		{"https passthrough", "https://elsewhere.example/p.jpg", "https://elsewhere.example/p.jpg"},
		{"http passthrough", "http://elsewhere.example/p.jpg", "http://elsewhere.example/p.jpg"},
		{"bucket relative", "shop-7/p.jpg", base + "/products/shop-7/p.jpg"},
		{"leading slash", "/shop-7/p.jpg", base + "/products/shop-7/p.jpg"},
		{"legacy device path", "file:///var/mobile/Containers/Data/photo-123.jpg", base + "/products/photo-123.jpg"},
		{"legacy path without filename", "file:///var/mobile/", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveImageURL(base, BucketProducts, tt.path); got != tt.want {
				t.Errorf("ResolveImageURL(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestResolveImageURLTrailingSlashBase(t *testing.T) {
	got := ResolveImageURL("https://cdn.velmo.test/", BucketAvatars, "u1.png")
	want := "https://cdn.velmo.test/avatars/u1.png"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolvePtr(t *testing.T) {
	env := newTestEnv(t)
	c := env.client

	url := "https://elsewhere.example/p.jpg"
	rel := "shop-7/p.jpg"
	empty := ""

	if got := c.resolvePtr(BucketProducts, nil, nil); got != nil {
		t.Errorf("all-nil candidates: got %q, want nil", *got)
	}
	if got := c.resolvePtr(BucketProducts, &empty, nil); got != nil {
		t.Errorf("empty candidate: got %q, want nil", *got)
	}
	if got := c.resolvePtr(BucketProducts, nil, &rel); got == nil || *got != "https://cdn.velmo.test/products/shop-7/p.jpg" {
		t.Errorf("relative fallback candidate resolved to %v", got)
	}
	if got := c.resolvePtr(BucketProducts, &url, &rel); got == nil || *got != url {
		t.Errorf("first candidate should win, got %v", got)
	}
}

package velmoadmin

import "strings"

// Storage buckets used by the platform.
const (
	BucketProducts = "products"
	BucketAvatars  = "avatars"
)

// ResolveImageURL maps a stored image path to a publicly resolvable URL.
// It is a pure string transform, no network call involved.
//
//   - empty path: ""
//   - already a URL (has a scheme): returned unchanged
//   - legacy local-device path ("file:///..."): the trailing filename is
//     resolved against the bucket; "" when no filename can be extracted
//   - anything else: treated as bucket-relative
func ResolveImageURL(storageBase, bucket, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if strings.HasPrefix(path, "file:///") {
		segs := strings.Split(path, "/")
		filename := segs[len(segs)-1]
		if filename == "" {
			return ""
		}
		return publicURL(storageBase, bucket, filename)
	}
	return publicURL(storageBase, bucket, path)
}

func publicURL(storageBase, bucket, path string) string {
	return strings.TrimRight(storageBase, "/") + "/" + bucket + "/" + strings.TrimLeft(path, "/")
}

// ResolveImage resolves path against the client's configured storage base.
func (c *Client) ResolveImage(path, bucket string) string {
	return ResolveImageURL(c.cfg.StorageBaseURL, bucket, path)
}

// resolvePtr resolves an optional stored path in place, preferring the
// first non-nil candidate. Used to normalize photo_url/photo pairs.
func (c *Client) resolvePtr(bucket string, candidates ...*string) *string {
	for _, p := range candidates {
		if p != nil && *p != "" {
			resolved := c.ResolveImage(*p, bucket)
			if resolved == "" {
				return nil
			}
			return &resolved
		}
	}
	return nil
}

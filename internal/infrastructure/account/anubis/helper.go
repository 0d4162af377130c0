package anubis

import (
	"crypto/sha256"
	"encoding/base64"
	stderrors "errors"
	"net/url"
	"strings"
)

// isCircuitFailure counts only transport and 5xx failures; a rejected token
// says nothing about Anubis health.
func isCircuitFailure(err error) bool {
	return stderrors.Is(err, errAnubisTransient)
}

// cacheKeyFor keys the principal cache without holding raw bearer tokens.
func cacheKeyFor(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// introspectEndpoint resolves path against baseURL. An absolute path wins.
func introspectEndpoint(baseURL, path string) string {
	path = strings.TrimSpace(path)
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if path == "" {
		return base
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

package httpx

import "strings"

// BearerToken extracts the token from an Authorization header value. The
// scheme check is case-insensitive; any other scheme (Basic, Digest) or an
// empty token yields false.
func BearerToken(authorization string) (string, bool) {
	const prefix = "Bearer "
	if len(authorization) <= len(prefix) || !strings.EqualFold(authorization[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(authorization[len(prefix):])
	return token, token != ""
}

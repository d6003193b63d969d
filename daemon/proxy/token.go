package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/containerd/log"
	"github.com/pkg/errors"
)

// scopePattern extracts the repository from a registry API path. Only
// manifest, blob and tag-listing endpoints carry a pull scope; anything
// else goes upstream without a token.
var scopePattern = regexp.MustCompile(`^/v2/(.*?)/(manifests|blobs|tags)`)

// RepositoryScope returns the repository and operation a registry API
// path addresses. gated reports whether the path requires a pull token
// at all; repo may still be empty for malformed paths such as
// "/v2//manifests/latest".
func RepositoryScope(path string) (repo, operation string, gated bool) {
	m := scopePattern.FindStringSubmatch(path)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// forwardedTokenHeaders are the only inbound headers relayed on a token
// exchange. Client credentials in particular never reach the token
// service.
var forwardedTokenHeaders = []string{
	"User-Agent",
	"Accept",
	"Accept-Language",
	"Accept-Encoding",
}

// TokenBroker obtains anonymous pull tokens from a token service.
// Every exchange is scoped to a single repository and performed fresh
// for the request at hand; tokens are never cached or shared between
// clients.
type TokenBroker struct {
	client   *http.Client
	authBase string
	service  string
}

// NewTokenBroker returns a broker exchanging anonymous pull tokens
// against the token service rooted at authBase.
func NewTokenBroker(client *http.Client, authBase, service string) *TokenBroker {
	return &TokenBroker{
		client:   client,
		authBase: authBase,
		service:  service,
	}
}

// Token requests an anonymous pull token for repo. A reachable token
// service that declines to issue one is not an error: the token comes
// back empty and the caller answers with an auth challenge instead. An
// error is returned only when the token service cannot be reached.
func (b *TokenBroker) Token(ctx context.Context, repo string, inbound http.Header) (string, error) {
	tokenURL := b.authBase + "/token?service=" + b.service + "&scope=repository:" + repo + ":pull"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenURL, nil)
	if err != nil {
		return "", errors.Wrapf(err, "creating token request for %s", repo)
	}
	for _, name := range forwardedTokenHeaders {
		if v := inbound.Get(name); v != "" {
			req.Header.Set(name, v)
		}
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return "", upstreamWrapf(err, "requesting pull token for %s", repo)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		log.G(ctx).WithFields(log.Fields{
			"repository": repo,
			"status":     resp.StatusCode,
		}).Debug("Token service declined anonymous pull token")
		return "", nil
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		log.G(ctx).WithError(err).WithField("repository", repo).Debug("Malformed token service response")
		return "", nil
	}
	return payload.Token, nil
}

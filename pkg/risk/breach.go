package risk

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBreachBaseURL = "https://api.pwnedpasswords.com/range"
	defaultBreachTimeout = 5 * time.Second
	hashPrefixLen        = 5
)

// KAnonymityBreachChecker queries a have-i-been-pwned style range API using
// k-anonymity: only the first five hex characters of the SHA-1 digest leave
// the process, and the full digest is matched against the returned suffix
// list locally. The service never learns which credential was checked.
type KAnonymityBreachChecker struct {
	client  *http.Client
	baseURL string
}

// BreachCheckerOption configures a KAnonymityBreachChecker.
type BreachCheckerOption func(*KAnonymityBreachChecker)

// WithBreachBaseURL overrides the range API endpoint.
func WithBreachBaseURL(baseURL string) BreachCheckerOption {
	return func(c *KAnonymityBreachChecker) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithBreachHTTPClient overrides the HTTP client.
func WithBreachHTTPClient(client *http.Client) BreachCheckerOption {
	return func(c *KAnonymityBreachChecker) {
		if client != nil {
			c.client = client
		}
	}
}

// NewKAnonymityBreachChecker creates a breach checker against the public
// pwnedpasswords range API by default.
func NewKAnonymityBreachChecker(opts ...BreachCheckerOption) *KAnonymityBreachChecker {
	c := &KAnonymityBreachChecker{
		client:  &http.Client{Timeout: defaultBreachTimeout},
		baseURL: defaultBreachBaseURL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *KAnonymityBreachChecker) IsBreached(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, ErrEmailRequired
	}

	sum := sha1.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))
	prefix, suffix := digest[:hashPrefixLen], digest[hashPrefixLen:]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+prefix, nil)
	if err != nil {
		return false, errors.Join(ErrLookupFailed, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, errors.Join(ErrLookupFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return false, errors.Join(ErrLookupFailed, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	// Each line is "<35-hex-char suffix>:<occurrence count>".
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		candidate, _, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(candidate, suffix) {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, errors.Join(ErrUnexpectedBody, err)
	}

	return false, nil
}

var _ BreachChecker = (*KAnonymityBreachChecker)(nil)

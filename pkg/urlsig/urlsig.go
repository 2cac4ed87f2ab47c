// Package urlsig signs and verifies tamper-evident, expiring resource URLs.
//
// A signed URL is path-relative: scheme and host are dropped. The signature
// is hex(HMAC-SHA256(secret, canonical + "|" + expires)), where canonical is
// the path, the query re-encoded with sorted keys, and the fragment. The
// signature and expires parameters themselves never take part in the
// canonical form, so the order of parameters in a request does not matter.
package urlsig

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Query parameters injected by Sign.
const (
	ParamSignature = "signature"
	ParamExpires   = "expires"
)

// APIPrefix is the path prefix of resource URLs built by ResourcePath.
const APIPrefix = "/api/v1"

var ErrEmptySecret = errors.New("urlsig: secret must not be empty")

// Signer signs and verifies URLs with a shared secret.
type Signer struct {
	secret []byte
	logger *slog.Logger
	now    func() time.Time
}

// New returns a Signer keyed by secret.
func New(secret string, logger *slog.Logger) (*Signer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Signer{secret: []byte(secret), logger: logger, now: time.Now}, nil
}

// Sign returns baseURL with signature and expires parameters appended,
// valid for ttl.
func (s *Signer) Sign(baseURL string, ttl time.Duration) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("urlsig: parse %q: %w", baseURL, err)
	}

	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return "", fmt.Errorf("urlsig: query of %q: %w", baseURL, err)
	}
	query.Del(ParamSignature)
	query.Del(ParamExpires)

	expires := s.now().Add(ttl).Unix()
	sig := s.sign(canonical(u, query), expires)

	query.Set(ParamSignature, sig)
	query.Set(ParamExpires, strconv.FormatInt(expires, 10))
	return canonical(u, query), nil
}

// Verify reports whether requestURL carries a valid, unexpired signature.
// It never panics; every rejection is logged at warn.
func (s *Signer) Verify(requestURL string) bool {
	u, err := url.Parse(requestURL)
	if err != nil {
		s.logger.Warn("signed url rejected: unparseable url")
		return false
	}

	// Every pair must parse, otherwise junk could ride along unsigned.
	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		s.logger.Warn("signed url rejected: malformed query", slog.String("path", u.Path))
		return false
	}
	sig := query.Get(ParamSignature)
	expiresStr := query.Get(ParamExpires)
	if sig == "" || expiresStr == "" {
		s.logger.Warn("signed url rejected: missing signature parameters", slog.String("path", u.Path))
		return false
	}

	expires, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil {
		s.logger.Warn("signed url rejected: invalid expires", slog.String("path", u.Path))
		return false
	}
	if expires < s.now().Unix() {
		s.logger.Warn("signed url rejected: expired", slog.String("path", u.Path))
		return false
	}

	query.Del(ParamSignature)
	query.Del(ParamExpires)
	expected := s.sign(canonical(u, query), expires)

	if !hmac.Equal([]byte(sig), []byte(expected)) {
		s.logger.Warn("signed url rejected: signature mismatch", slog.String("path", u.Path))
		return false
	}
	return true
}

// Canonical returns the form of rawURL that Sign and Verify compute the
// signature over.
func Canonical(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return "", err
	}
	query.Del(ParamSignature)
	query.Del(ParamExpires)
	return canonical(u, query), nil
}

// ResourcePath builds the API path of a resource, e.g.
// ResourcePath("file", "42") is "/api/v1/files/42" and
// ResourcePath("session", "7", "vnc") is "/api/v1/sessions/7/vnc".
func ResourcePath(resourceType, resourceID string, sub ...string) string {
	segments := make([]string, 0, 3+len(sub))
	segments = append(segments, APIPrefix, url.PathEscape(resourceType)+"s", url.PathEscape(resourceID))
	for _, s := range sub {
		segments = append(segments, url.PathEscape(s))
	}
	return strings.Join(segments, "/")
}

func (s *Signer) sign(base string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(base + "|" + strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// canonical renders path, sorted query and fragment without scheme or host.
func canonical(u *url.URL, query url.Values) string {
	out := &url.URL{
		Path:     u.Path,
		RawPath:  u.RawPath,
		RawQuery: query.Encode(),
		Fragment: u.Fragment,
	}
	return out.String()
}

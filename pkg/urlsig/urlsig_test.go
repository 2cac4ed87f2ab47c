package urlsig

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "url-signing-secret"

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := New(testSecret, nil)
	require.NoError(t, err)
	return s
}

func TestNew_EmptySecret(t *testing.T) {
	_, err := New("", nil)
	require.ErrorIs(t, err, ErrEmptySecret)
}

func TestSignAndVerify(t *testing.T) {
	s := newTestSigner(t)

	signed, err := s.Sign("/api/v1/files/42?foo=bar", time.Hour)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(signed, "/api/v1/files/42?"))

	u, err := url.Parse(signed)
	require.NoError(t, err)
	require.Equal(t, "bar", u.Query().Get("foo"))
	require.NotEmpty(t, u.Query().Get(ParamSignature))
	require.NotEmpty(t, u.Query().Get(ParamExpires))

	require.True(t, s.Verify(signed))
}

func TestSign_PinnedCanonicalForm(t *testing.T) {
	s := newTestSigner(t)
	fixed := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return fixed }

	signed, err := s.Sign("https://example.com/api/v1/files/42?z=1&a=2#frag", time.Minute)
	require.NoError(t, err)

	expires := "1700000060"
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte("/api/v1/files/42?a=2&z=1#frag|" + expires))
	sig := hex.EncodeToString(mac.Sum(nil))

	require.Equal(t,
		"/api/v1/files/42?a=2&expires="+expires+"&signature="+sig+"&z=1#frag",
		signed,
		"scheme and host are dropped and the query is key-sorted",
	)
}

func TestVerify_ParameterOrderIrrelevant(t *testing.T) {
	s := newTestSigner(t)

	signed, err := s.Sign("/api/v1/files/42?foo=bar&alpha=1", time.Hour)
	require.NoError(t, err)

	u, err := url.Parse(signed)
	require.NoError(t, err)
	q := u.Query()

	// Same parameters, hand-ordered differently from the signed output.
	reordered := "/api/v1/files/42?signature=" + q.Get(ParamSignature) +
		"&foo=bar&expires=" + q.Get(ParamExpires) + "&alpha=1"
	require.True(t, s.Verify(reordered))

	// Scheme and host on the request side are ignored.
	require.True(t, s.Verify("http://localhost:8000"+signed))
}

func TestVerify_Rejects(t *testing.T) {
	s := newTestSigner(t)

	signed, err := s.Sign("/api/v1/files/42?foo=bar", time.Hour)
	require.NoError(t, err)
	u, err := url.Parse(signed)
	require.NoError(t, err)
	q := u.Query()

	withQuery := func(mutate func(url.Values)) string {
		vals := url.Values{}
		for k, v := range q {
			vals[k] = append([]string(nil), v...)
		}
		mutate(vals)
		return u.Path + "?" + vals.Encode()
	}

	tests := []struct {
		name string
		url  string
	}{
		{"missing signature", withQuery(func(v url.Values) { v.Del(ParamSignature) })},
		{"missing expires", withQuery(func(v url.Values) { v.Del(ParamExpires) })},
		{"non integer expires", withQuery(func(v url.Values) { v.Set(ParamExpires, "soon") })},
		{"extended expiry", withQuery(func(v url.Values) { v.Set(ParamExpires, "99999999999") })},
		{"changed param", withQuery(func(v url.Values) { v.Set("foo", "baz") })},
		{"added param", withQuery(func(v url.Values) { v.Set("admin", "true") })},
		{"removed param", withQuery(func(v url.Values) { v.Del("foo") })},
		{"forged signature", withQuery(func(v url.Values) { v.Set(ParamSignature, strings.Repeat("0", 64)) })},
		{"different path", strings.Replace(signed, "/42", "/43", 1)},
		{"no query", "/api/v1/files/42"},
		{"unparseable", "%zz"},
		{"appended malformed pair", signed + "&junk=%zz"},
		{"semicolon separator", signed + ";admin=true"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				require.False(t, s.Verify(tt.url))
			})
		})
	}
}

func TestVerify_Expired(t *testing.T) {
	s := newTestSigner(t)

	signed, err := s.Sign("/api/v1/files/42", -time.Minute)
	require.NoError(t, err)
	require.False(t, s.Verify(signed))
}

func TestVerify_WrongSecret(t *testing.T) {
	signed, err := newTestSigner(t).Sign("/api/v1/files/42", time.Hour)
	require.NoError(t, err)

	other, err := New("other-secret", nil)
	require.NoError(t, err)
	require.False(t, other.Verify(signed))
}

func TestSign_ResignReplacesParams(t *testing.T) {
	s := newTestSigner(t)

	first, err := s.Sign("/api/v1/files/42", time.Hour)
	require.NoError(t, err)
	second, err := s.Sign(first, 2*time.Hour)
	require.NoError(t, err)

	u, err := url.Parse(second)
	require.NoError(t, err)
	require.Len(t, u.Query()[ParamSignature], 1)
	require.Len(t, u.Query()[ParamExpires], 1)
	require.True(t, s.Verify(second))
}

func TestCanonical(t *testing.T) {
	got, err := Canonical("https://host/api/v1/files/1?b=2&signature=x&a=1&expires=5")
	require.NoError(t, err)
	require.Equal(t, "/api/v1/files/1?a=1&b=2", got)
}

func TestSign_MalformedQuery(t *testing.T) {
	s := newTestSigner(t)

	for _, raw := range []string{
		"/api/v1/files/42?a=%zz&b=1",
		"/api/v1/files/42?a=1;b=2",
	} {
		_, err := s.Sign(raw, time.Hour)
		require.Error(t, err, raw)

		_, err = Canonical(raw)
		require.Error(t, err, raw)
	}
}

func TestResourcePath(t *testing.T) {
	require.Equal(t, "/api/v1/files/42", ResourcePath("file", "42"))
	require.Equal(t, "/api/v1/sessions/7/vnc", ResourcePath("session", "7", "vnc"))
	require.Equal(t, "/api/v1/files/a%2Fb", ResourcePath("file", "a/b"))
}

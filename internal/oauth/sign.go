package oauth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	signatureMethod = "HMAC-SHA1"
	oauthVersion    = "1.0"
)

// Noncer produces per-request nonce strings. Tests inject a fixed
// implementation to make signatures reproducible.
type Noncer interface {
	Nonce() string
}

// RandomNoncer reads 16 bytes from crypto/rand and returns them hex
// encoded.
type RandomNoncer struct{}

// Nonce returns a fresh random nonce.
func (RandomNoncer) Nonce() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}

	return hex.EncodeToString(b)
}

// Signer builds OAuth 1.0 Authorization headers for a single consumer
// key/secret pair. The zero values of Noncer and Now select crypto/rand
// nonces and the wall clock; tests override both.
type Signer struct {
	ConsumerKey    string
	ConsumerSecret string

	Noncer Noncer
	Now    func() time.Time
}

// NewSigner creates a Signer with the default nonce source and clock.
func NewSigner(consumerKey, consumerSecret string) *Signer {
	return &Signer{
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		Noncer:         RandomNoncer{},
		Now:            time.Now,
	}
}

// ParameterString canonicalizes params per RFC 5849 section 3.4.1.3.2:
// percent-encode every key and value, sort by encoded key with ties
// broken by encoded value, and join as k=v pairs with "&". Both client
// and server compute this string independently and must agree
// byte-for-byte.
func ParameterString(params url.Values) string {
	type pair struct {
		key, value string
	}

	pairs := make([]pair, 0, len(params))

	for key, values := range params {
		encKey := PercentEncode(key)
		for _, value := range values {
			pairs = append(pairs, pair{key: encKey, value: PercentEncode(value)})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}

		return pairs[i].value < pairs[j].value
	})

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.key + "=" + p.value
	}

	return strings.Join(parts, "&")
}

// SignatureBase builds the signature base string for the request:
// UPPER(method) & enc(url without query or fragment) & enc(parameter
// string). params must already contain the request's query parameters
// alongside the oauth_* protocol parameters.
func SignatureBase(method, rawURL string, params url.Values) (string, error) {
	base, err := baseURI(rawURL)
	if err != nil {
		return "", err
	}

	return strings.ToUpper(method) + "&" + PercentEncode(base) + "&" + PercentEncode(ParameterString(params)), nil
}

// Signature computes oauth_signature: the Base64 HMAC-SHA1 of the base
// string under enc(consumerSecret) & enc(tokenSecret). tokenSecret is
// empty for the request-token step.
func Signature(consumerSecret, tokenSecret, baseString string) string {
	key := PercentEncode(consumerSecret) + "&" + PercentEncode(tokenSecret)

	return hmacSHA1(key, baseString)
}

// AuthorizationHeader signs a request and returns the value for its
// Authorization header.
//
// form holds any request parameters carried outside the URL query (a
// form-encoded POST body). extra holds additional oauth_* protocol
// parameters such as oauth_callback or oauth_verifier. All of them are
// covered by the signature, but only the oauth_* parameters appear in
// the header itself; the server re-reads business parameters from the
// request proper. Collapsing that asymmetry breaks verification.
func (s *Signer) AuthorizationHeader(method, rawURL string, form url.Values, tokenKey, tokenSecret string, extra map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing request url: %w", err)
	}

	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return "", fmt.Errorf("parsing request query: %w", err)
	}

	protocol := map[string]string{
		"oauth_consumer_key":     s.ConsumerKey,
		"oauth_nonce":            s.nonce(),
		"oauth_signature_method": signatureMethod,
		"oauth_timestamp":        strconv.FormatInt(s.now().Unix(), 10),
		"oauth_version":          oauthVersion,
	}
	if tokenKey != "" {
		protocol["oauth_token"] = tokenKey
	}
	for key, value := range extra {
		protocol[key] = value
	}

	signed := url.Values{}
	for key, values := range query {
		signed[key] = append(signed[key], values...)
	}
	for key, values := range form {
		signed[key] = append(signed[key], values...)
	}
	for key, value := range protocol {
		signed.Set(key, value)
	}

	if err := validUTF8(signed); err != nil {
		return "", err
	}

	baseString, err := SignatureBase(method, rawURL, signed)
	if err != nil {
		return "", err
	}

	protocol["oauth_signature"] = Signature(s.ConsumerSecret, tokenSecret, baseString)

	return headerString(protocol), nil
}

// headerString assembles `OAuth k1="v1", k2="v2", ...` from the oauth_*
// parameters. Keys are sorted so identical inputs always produce an
// identical header.
func headerString(protocol map[string]string) string {
	keys := make([]string, 0, len(protocol))
	for key := range protocol {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = PercentEncode(key) + `="` + PercentEncode(protocol[key]) + `"`
	}

	return "OAuth " + strings.Join(parts, ", ")
}

// baseURI strips the query and fragment and lowercases the scheme and
// host, per RFC 5849 section 3.4.1.2.
func baseURI(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing request url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("request url %q is not absolute", rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""

	return u.String(), nil
}

func validUTF8(params url.Values) error {
	for key, values := range params {
		if !utf8.ValidString(key) {
			return fmt.Errorf("key %q: %w", key, ErrInvalidEncoding)
		}
		for _, value := range values {
			if !utf8.ValidString(value) {
				return fmt.Errorf("value for %q: %w", key, ErrInvalidEncoding)
			}
		}
	}

	return nil
}

func (s *Signer) nonce() string {
	if s.Noncer != nil {
		return s.Noncer.Nonce()
	}

	return RandomNoncer{}.Nonce()
}

func (s *Signer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}

	return time.Now()
}

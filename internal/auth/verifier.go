// ABOUTME: JWT verification for inbound Google Chat webhook requests.
// ABOUTME: RS256 against Google's published x509 certs, audience-bound to the project number.

package auth

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrUnknownKey   = errors.New("unknown signing key")
)

const (
	// chatIssuer is the service account Google Chat signs webhook tokens with.
	chatIssuer = "chat@system.gserviceaccount.com"

	// defaultCertURL serves Google's current signing certs as kid -> PEM.
	defaultCertURL = "https://www.googleapis.com/service_accounts/v1/metadata/x509/" + chatIssuer

	certTTL = time.Hour
)

// Verifier validates Chat webhook bearer tokens. Signing certs are fetched
// lazily and cached; an unknown kid forces a refresh since Google rotates
// keys without notice.
type Verifier struct {
	audience string
	certURL  string
	http     *resty.Client

	mu        sync.Mutex
	certs     map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewVerifier creates a Verifier bound to the given audience (the Cloud
// project number the Chat app runs under).
func NewVerifier(audience string) *Verifier {
	return &Verifier{
		audience: audience,
		certURL:  defaultCertURL,
		http:     resty.New().SetTimeout(10 * time.Second),
	}
}

// Verify validates the token's signature, issuer, audience, and expiry.
func (v *Verifier) Verify(ctx context.Context, tokenString string) error {
	_, err := jwt.Parse(tokenString, v.keyFor(ctx),
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(chatIssuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}

// keyFor returns a keyfunc resolving the token's kid against the cert cache.
func (v *Verifier) keyFor(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: missing kid header", ErrInvalidToken)
		}
		return v.publicKey(ctx, kid)
	}
}

// publicKey returns the cached key for kid, refreshing the cert bundle when
// the cache is stale or the kid is new.
func (v *Verifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fresh := time.Since(v.fetchedAt) < certTTL
	if key, ok := v.certs[kid]; ok && fresh {
		return key, nil
	}

	if err := v.refreshLocked(ctx); err != nil {
		return nil, err
	}

	key, ok := v.certs[kid]
	if !ok {
		return nil, fmt.Errorf("%w: kid %q", ErrUnknownKey, kid)
	}
	return key, nil
}

// refreshLocked refetches the cert bundle. Caller holds mu.
func (v *Verifier) refreshLocked(ctx context.Context) error {
	resp, err := v.http.R().SetContext(ctx).Get(v.certURL)
	if err != nil {
		return fmt.Errorf("fetching signing certs: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("fetching signing certs: status %d", resp.StatusCode())
	}

	var pems map[string]string
	if err := json.Unmarshal(resp.Body(), &pems); err != nil {
		return fmt.Errorf("parsing cert bundle: %w", err)
	}

	certs := make(map[string]*rsa.PublicKey, len(pems))
	for kid, certPEM := range pems {
		key, err := parseCertKey(certPEM)
		if err != nil {
			return fmt.Errorf("parsing cert %q: %w", kid, err)
		}
		certs[kid] = key
	}

	v.certs = certs
	v.fetchedAt = time.Now()
	return nil
}

// parseCertKey extracts the RSA public key from a PEM-encoded certificate.
func parseCertKey(certPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(certPEM))
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing certificate: %w", err)
	}
	key, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("certificate key is not RSA")
	}
	return key, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/courseloop/runtimegw/internal/runtime/domain"
	"github.com/courseloop/runtimegw/internal/runtime/store"
	"github.com/courseloop/runtimegw/pkg/cryptox"
	"github.com/courseloop/runtimegw/pkg/idx"
	"github.com/courseloop/runtimegw/pkg/jwtx"
	"github.com/courseloop/runtimegw/pkg/slogx"
)

var (
	// ErrInvalidLaunchToken covers every exchange rejection the caller has
	// no business distinguishing: bad signature, unknown / replayed /
	// expired nonce, missing course.
	ErrInvalidLaunchToken = errors.New("invalid launch token")

	// ErrMalformedClaims means the signature verified but the claim set is
	// not a usable launch claim set.
	ErrMalformedClaims = errors.New("malformed launch claims")

	// ErrAudienceMismatch means a browser caller's allow-listed Origin does
	// not match the origin the runtime token would be bound to.
	ErrAudienceMismatch = errors.New("audience mismatch")

	// ErrSignFailed means the runtime token could not be signed. A signing
	// failure is a server fault, not a storage one.
	ErrSignFailed = errors.New("runtime token signing failed")
)

// ExchangeService turns a one-time launch token into a scoped, audience-bound
// runtime token carrying a pseudonymous alias instead of the real user id.
type ExchangeService struct {
	Store    store.Store
	Signer   jwtx.Signer
	Verifier *jwtx.Verifier
	Issuer   string

	// AllowedOrigins gates the optional direct-browser audience precheck.
	AllowedOrigins []string

	// TokenTTL defaults to jwtx.DefaultRuntimeTokenTTL when zero.
	TokenTTL time.Duration
}

// ExchangeRequest is the launch token plus the caller's Origin header
// (empty for server-to-server exchanges).
type ExchangeRequest struct {
	LaunchToken string
	Origin      string
}

// ExchangeResponse is the minted runtime token and its expiry.
type ExchangeResponse struct {
	RuntimeToken string
	ExpiresAt    time.Time
}

// Exchange verifies a launch token, consumes its nonce exactly once, resolves
// the provider origin and signs a runtime token for the stable (user,
// provider) alias.
func (s *ExchangeService) Exchange(ctx context.Context, req ExchangeRequest) (*ExchangeResponse, error) {
	log := slogx.FromContext(ctx)

	claims, err := s.Verifier.VerifyLaunch(req.LaunchToken)
	if err != nil {
		if errors.Is(err, jwtx.ErrInvalidClaim) || errors.Is(err, jwtx.ErrTokenUse) {
			return nil, ErrMalformedClaims
		}
		return nil, ErrInvalidLaunchToken
	}

	if err := s.consumeNonce(ctx, claims.Nonce); err != nil {
		return nil, err
	}

	course, err := s.Store.Courses().GetCourseByID(ctx, claims.CourseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidLaunchToken
		}
		return nil, err
	}

	allowedOrigin, providerID := s.resolveOrigin(ctx, course)
	if allowedOrigin == "" {
		log.Warn("exchange: no resolvable provider origin, audience binding unenforceable",
			"course_id", course.ID)
	}

	// Browser callers on the allow-list must already be on the origin the
	// token will be bound to. Non-browser callers skip this.
	if req.Origin != "" && slices.Contains(s.AllowedOrigins, req.Origin) &&
		allowedOrigin != "" && req.Origin != allowedOrigin {
		return nil, ErrAudienceMismatch
	}

	alias, err := s.mintOrFetchAlias(ctx, claims.Subject, providerID)
	if err != nil {
		return nil, err
	}

	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultRuntimeTokenTTL
	}
	now := time.Now()
	expiresAt := now.Add(ttl)

	runtimeClaims := jwtx.NewRuntimeClaims(s.Issuer, alias, course.ID, providerID, claims.Scopes, allowedOrigin, ttl, now)
	token, err := s.Signer.Sign(runtimeClaims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignFailed, err)
	}

	return &ExchangeResponse{RuntimeToken: token, ExpiresAt: expiresAt}, nil
}

// consumeNonce enforces single use. The strict checks (missing, replayed,
// expired) reject the exchange; the conditional update then picks exactly one
// winner among concurrent callers. Storage errors on the update itself are
// swallowed so a flaky store degrades single-use enforcement rather than
// availability.
func (s *ExchangeService) consumeNonce(ctx context.Context, nonce string) error {
	log := slogx.FromContext(ctx)
	hash := cryptox.FingerprintToken(nonce)

	record, err := s.Store.LaunchNonces().GetLaunchNonce(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidLaunchToken
		}
		return err
	}
	if record.UsedAt != nil {
		return ErrInvalidLaunchToken
	}
	if time.Now().After(record.ExpiresAt) {
		return ErrInvalidLaunchToken
	}

	if err := s.Store.LaunchNonces().ConsumeLaunchNonce(ctx, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// A concurrent exchange won the conditional update.
			return ErrInvalidLaunchToken
		}
		log.Warn("exchange: nonce not marked used, replay window open for this token", "error", err)
	}
	return nil
}

// resolveOrigin derives the origin runtime tokens for this course are bound
// to: the provider's registered domain when present, else the course's own
// launch URL. Returns the origin (possibly empty) and the provider id.
func (s *ExchangeService) resolveOrigin(ctx context.Context, course domain.Course) (string, string) {
	log := slogx.FromContext(ctx)

	if course.ProviderID != "" {
		provider, err := s.Store.Providers().GetProviderByID(ctx, course.ProviderID)
		if err != nil {
			log.Warn("exchange: provider lookup failed", "provider_id", course.ProviderID, "error", err)
		} else if origin := normalizeOrigin(provider.Domain); origin != "" {
			return origin, course.ProviderID
		}
	}

	return normalizeOrigin(course.LaunchURL), course.ProviderID
}

// mintOrFetchAlias returns the stable pseudonymous alias for (user,
// provider). The unique constraint on the pair makes the first insert win;
// a loser re-reads the winner's row. Without a provider the alias is
// generated but deliberately not persisted.
func (s *ExchangeService) mintOrFetchAlias(ctx context.Context, userID, providerID string) (string, error) {
	log := slogx.FromContext(ctx)

	fresh := domain.AliasPrefix + cryptox.MustGenerateToken(cryptox.TokenSize128)
	if providerID == "" {
		return fresh, nil
	}

	existing, err := s.Store.Aliases().GetAlias(ctx, userID, providerID)
	if err == nil {
		return existing.Alias, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	record := domain.Alias{
		ID:         idx.New().String(),
		UserID:     userID,
		ProviderID: providerID,
		Alias:      fresh,
		CreatedAt:  time.Now(),
	}
	err = s.Store.Aliases().CreateAlias(ctx, record)
	switch {
	case err == nil:
		return fresh, nil
	case errors.Is(err, store.ErrAlreadyExists):
		winner, err := s.Store.Aliases().GetAlias(ctx, userID, providerID)
		if err != nil {
			return "", err
		}
		return winner.Alias, nil
	default:
		// Alias persistence is best-effort: the token still works, the
		// mapping is just not stable until a later exchange lands it.
		log.Warn("exchange: alias not persisted", "provider_id", providerID, "error", err)
		return fresh, nil
	}
}

// normalizeOrigin reduces a registered domain or URL to scheme://host.
// Bare hosts are assumed https.
func normalizeOrigin(s string) string {
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

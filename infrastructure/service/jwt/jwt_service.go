package jwt

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rankboard/portalgate/application/port/outbound"
	"github.com/rankboard/portalgate/domain/entity"
	"github.com/rankboard/portalgate/infrastructure/config"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrMissingRole   = errors.New("token has no role claim")
	ErrNotJWTPayload = errors.New("token payload is not a claims object")
)

// ClaimNames maps profile fields to payload claim names.
type ClaimNames struct {
	Email    string
	FullName string
	Role     string
	UserID   string
}

func DefaultClaimNames() ClaimNames {
	return ClaimNames{
		Email:    "email",
		FullName: "fullName",
		Role:     "role",
		UserID:   "userId",
	}
}

// JWTService decodes the payload segment of access tokens issued by the
// backend. Signatures are not checked here; the backend re-validates every
// bearer token it receives.
type JWTService struct {
	claims ClaimNames
	parser *jwt.Parser
}

func NewJWTService(cfg *config.Config) (*JWTService, error) {
	names := DefaultClaimNames()
	if cfg != nil {
		overrideIfSet(&names.Email, cfg.ClaimEmail)
		overrideIfSet(&names.FullName, cfg.ClaimFullName)
		overrideIfSet(&names.Role, cfg.ClaimRole)
		overrideIfSet(&names.UserID, cfg.ClaimUserID)
	}
	if names.Role == "" {
		return nil, fmt.Errorf("role claim name cannot be empty")
	}

	return &JWTService{
		claims: names,
		parser: jwt.NewParser(),
	}, nil
}

func (s *JWTService) DecodeAccessToken(tokenString string) (*outbound.TokenClaims, error) {
	if strings.Count(tokenString, ".") != 2 {
		return nil, ErrInvalidToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := s.parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, s.handleParseError(err)
	}

	rawRole, ok := firstString(claims[s.claims.Role])
	if !ok {
		return nil, ErrMissingRole
	}
	role, err := entity.ParseRole(rawRole)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, rawRole)
	}

	out := &outbound.TokenClaims{
		Role:   role,
		UserID: parseUserID(claims[s.claims.UserID]),
		Raw:    map[string]interface{}(claims),
	}
	out.Email, _ = firstString(claims[s.claims.Email])
	out.FullName, _ = firstString(claims[s.claims.FullName])

	// exp/iat are informational only; malformed values are dropped.
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time.UTC()
		out.ExpiresAt = &t
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		t := iat.Time.UTC()
		out.IssuedAt = &t
	}

	return out, nil
}

func (s *JWTService) handleParseError(err error) error {
	if errors.Is(err, jwt.ErrTokenMalformed) {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return fmt.Errorf("%w: %v", ErrNotJWTPayload, err)
}

// parseUserID accepts numeric or numeric-string claims. Anything else,
// including a missing claim, yields nil rather than zero.
func parseUserID(v interface{}) *int64 {
	var id int64
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n >= math.MaxInt64 || n < math.MinInt64 {
			return nil
		}
		id = int64(n)
	case json.Number:
		parsed, err := n.Int64()
		if err != nil {
			return nil
		}
		id = parsed
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return nil
		}
		id = parsed
	default:
		return nil
	}
	return &id
}

// firstString reads a string claim; some backends emit single-valued claims
// as one-element arrays.
func firstString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []interface{}:
		if len(s) > 0 {
			str, ok := s[0].(string)
			return str, ok
		}
	}
	return "", false
}

func overrideIfSet(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

package tokens

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// registered header/claim keys, per spec.md §3. Anything outside these sets
// is preserved as-is in JsonWebToken; of those keys ProjectPlanB reads only
// the Plan B payload fields realm and scope (see planbOwnedClaimKeys).
var registeredHeaderKeys = map[string]struct{}{
	"alg": {}, "typ": {}, "cty": {}, "kid": {}, "jku": {}, "jwk": {},
	"crit": {}, "x5u": {}, "x5c": {}, "x5t": {},
}

var registeredClaimKeys = map[string]struct{}{
	"sub": {}, "aud": {}, "iss": {}, "exp": {}, "iat": {}, "nbf": {}, "jti": {},
}

// JsonWebToken is a decoded, unverified JWT: a header and payload, each a
// string-to-JSON-value map. No signature check is performed; verifying JWT
// signatures is explicitly out of scope (spec.md §1 Non-goals).
type JsonWebToken struct {
	Header  map[string]interface{}
	Payload map[string]interface{}
}

var jwtParser = jwt.NewParser(jwt.WithoutClaimsValidation())

// DecodeJWT splits raw on "." into exactly three base64url segments and
// parses the first two as JSON objects. The signature segment is never
// inspected (spec.md §4.2).
func DecodeJWT(raw string) (*JsonWebToken, error) {
	if strings.Count(raw, ".") != 2 {
		return nil, &RequestAccessTokenError{Kind: KindParsingError, Err: fmt.Errorf("expected 3 segments")}
	}

	token, _, err := jwtParser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, &RequestAccessTokenError{Kind: KindParsingError, Err: fmt.Errorf("decode jwt: %w", err)}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, &RequestAccessTokenError{Kind: KindParsingError, Err: fmt.Errorf("jwt payload is not a JSON object")}
	}

	return &JsonWebToken{
		Header:  token.Header,
		Payload: map[string]interface{}(claims),
	}, nil
}

// PlanbToken is the strongly-typed "Plan B" projection of a JWT produced by
// the token-provider endpoint: header {kid, alg}, payload {sub, realm, scope,
// iss, exp, iat}. All fields are required; a missing or wrongly-typed field
// fails the projection with the offending field name.
type PlanbToken struct {
	KeyID         string
	Algorithm     string
	Subject       string
	Realm         string
	Scopes        []string
	Issuer        string
	ExpirationUTC time.Time
	IssueDateUTC  time.Time
}

// ProjectPlanB reads the registered fields off a decoded JWT and converts exp
// and iat from unix seconds to UTC timestamps.
func ProjectPlanB(jwt *JsonWebToken) (*PlanbToken, error) {
	kid, err := stringField(jwt.Header, "kid")
	if err != nil {
		return nil, err
	}
	alg, err := stringField(jwt.Header, "alg")
	if err != nil {
		return nil, err
	}
	sub, err := stringField(jwt.Payload, "sub")
	if err != nil {
		return nil, err
	}
	realm, err := stringField(jwt.Payload, "realm")
	if err != nil {
		return nil, err
	}
	iss, err := stringField(jwt.Payload, "iss")
	if err != nil {
		return nil, err
	}
	scopes, err := stringArrayField(jwt.Payload, "scope")
	if err != nil {
		return nil, err
	}
	exp, err := numericDateField(jwt.Payload, "exp")
	if err != nil {
		return nil, err
	}
	iat, err := numericDateField(jwt.Payload, "iat")
	if err != nil {
		return nil, err
	}

	return &PlanbToken{
		KeyID:         kid,
		Algorithm:     alg,
		Subject:       sub,
		Realm:         realm,
		Scopes:        scopes,
		Issuer:        iss,
		ExpirationUTC: exp,
		IssueDateUTC:  iat,
	}, nil
}

func fieldError(field string) error {
	return &RequestAccessTokenError{Kind: KindParsingError, Err: fmt.Errorf("missing or invalid claim field %q", field)}
}

func stringField(m map[string]interface{}, field string) (string, error) {
	v, ok := m[field]
	if !ok {
		return "", fieldError(field)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fieldError(field)
	}
	return s, nil
}

func stringArrayField(m map[string]interface{}, field string) ([]string, error) {
	v, ok := m[field]
	if !ok {
		return nil, fieldError(field)
	}
	arr, ok := v.([]interface{})
	if !ok {
		return nil, fieldError(field)
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		s, ok := e.(string)
		if !ok {
			return nil, fieldError(field)
		}
		out = append(out, s)
	}
	return out, nil
}

func numericDateField(m map[string]interface{}, field string) (time.Time, error) {
	v, ok := m[field]
	if !ok {
		return time.Time{}, fieldError(field)
	}
	f, ok := v.(float64)
	if !ok {
		return time.Time{}, fieldError(field)
	}
	return time.Unix(int64(f), 0).UTC(), nil
}

// isRegisteredHeaderKey and isRegisteredClaimKey are exposed for callers
// (tests, re-serialization helpers) that need to distinguish registered from
// extension fields without duplicating the key sets above.
func isRegisteredHeaderKey(k string) bool { _, ok := registeredHeaderKeys[k]; return ok }
func isRegisteredClaimKey(k string) bool  { _, ok := registeredClaimKeys[k]; return ok }

// planbOwnedClaimKeys are payload fields PlanbToken owns directly but that
// are not part of the generic JWT-registered set above; CanonicalJSON must
// not also pass them through as extensions.
var planbOwnedClaimKeys = map[string]struct{}{"realm": {}, "scope": {}}

// CanonicalJSON re-serializes p's registered fields back into header and
// payload JSON objects, carrying forward any extension fields present on
// original that are neither JWT-registered (spec.md §3) nor owned by
// PlanbToken itself. Parsing the result with DecodeJWT and projecting with
// ProjectPlanB reproduces p exactly (spec.md §8 canonical-JSON round trip).
func (p *PlanbToken) CanonicalJSON(original *JsonWebToken) (header []byte, payload []byte, err error) {
	h := map[string]interface{}{
		"kid": p.KeyID,
		"alg": p.Algorithm,
	}
	for k, v := range original.Header {
		if !isRegisteredHeaderKey(k) {
			h[k] = v
		}
	}

	scopes := make([]interface{}, len(p.Scopes))
	for i, s := range p.Scopes {
		scopes[i] = s
	}
	payloadMap := map[string]interface{}{
		"sub":   p.Subject,
		"realm": p.Realm,
		"scope": scopes,
		"iss":   p.Issuer,
		"exp":   p.ExpirationUTC.Unix(),
		"iat":   p.IssueDateUTC.Unix(),
	}
	for k, v := range original.Payload {
		if isRegisteredClaimKey(k) {
			continue
		}
		if _, owned := planbOwnedClaimKeys[k]; owned {
			continue
		}
		payloadMap[k] = v
	}

	header, err = json.Marshal(h)
	if err != nil {
		return nil, nil, err
	}
	payload, err = json.Marshal(payloadMap)
	if err != nil {
		return nil, nil, err
	}
	return header, payload, nil
}

package scope

import (
	"context"
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/expfab/expfab/pkg/domain"
	kdbexp "github.com/expfab/expfab/pkg/domain/experiment/db"
	kdbscope "github.com/expfab/expfab/pkg/domain/scope/db"
	"github.com/expfab/expfab/pkg/domain/scope/jws"
	"github.com/expfab/expfab/pkg/domain/scope/key"
	"github.com/expfab/expfab/pkg/domain/scope/store"
)

// Claims carried by an ephemeral scope token.
type Claims struct {
	jwt.RegisteredClaims

	UserId   string   `json:"user_id"`
	Model    string   `json:"model"`
	ObjectId string   `json:"object_id"`
	Scope    []string `json:"scope"`
}

// Authorizer issues ephemeral scope tokens to workers and exchanges them
// for durable credentials.
//
// A token is a signed snapshot of a grant. It only validates while the
// grant it was minted against is still the stored one: re-granting
// replaces the stored scope and retires every older token, even ones
// whose signature is still valid.
type Authorizer struct {
	grants      store.GrantStore
	experiments kdbexp.ExperimentInterface
	tokens      kdbscope.TokenInterface
	keys        key.KeyPolicy
}

// args:
//   - grants: ephemeral grant storage
//   - experiments: experiment repository, for the live-status check
//   - tokens: durable token repository
//   - keys: policy issuing the key used to sign and verify ephemeral tokens
func NewAuthorizer(
	grants store.GrantStore,
	experiments kdbexp.ExperimentInterface,
	tokens kdbscope.TokenInterface,
	keys key.KeyPolicy,
) *Authorizer {
	return &Authorizer{
		grants:      grants,
		experiments: experiments,
		tokens:      tokens,
		keys:        keys,
	}
}

// GrantScope stores a grant for (user, model, object) and returns an
// ephemeral token carrying it.
//
// The grant replaces any prior one for the same key.
//
// Args
//
// - context.Context
//
// - string: userId the grant is issued to.
//
// - string: model name, e.g. "experiment".
//
// - string: objectId of the target resource.
//
// - []Capability: granted scope. Stored normalized; an empty scope is a
// valid, explicit grant.
//
// - time.Duration: ttl of the grant.
//
// Returns
//
// - string: signed ephemeral token.
//
// - error
func (a *Authorizer) GrantScope(
	ctx context.Context,
	userId string, model string, objectId string,
	scope []domain.Capability, ttl time.Duration,
) (string, error) {
	signKey, err := a.keys.Issue()
	if err != nil {
		return "", err
	}

	normalized := domain.NormalizeScope(scope)
	expiresAt := time.Now().Add(ttl)

	if err := a.grants.Put(ctx, domain.ScopeGrant{
		UserId:    userId,
		Model:     model,
		ObjectId:  objectId,
		Scope:     normalized,
		ExpiresAt: expiresAt,
	}); err != nil {
		return "", err
	}

	return jws.NewJWS(signKey, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserId:   userId,
		Model:    model,
		ObjectId: objectId,
		Scope: func() []string {
			ret := make([]string, 0, len(normalized))
			for _, c := range normalized {
				ret = append(ret, string(c))
			}
			return ret
		}(),
	})
}

// CurrentScope reads the stored grant for (user, model, object).
//
// Returns
//
// - []Capability: the granted scope. Empty both when the grant is an
// explicit empty one and when there is no grant.
//
// - bool: whether a usable (existing, unexpired) grant is stored. This is
// the existence check distinguishing "explicit empty grant" from
// "no grant at all".
//
// - error
func (a *Authorizer) CurrentScope(ctx context.Context, userId string, model string, objectId string) ([]domain.Capability, bool, error) {
	grant, err := a.grants.Get(ctx, userId, model, objectId)
	if err != nil {
		return nil, false, err
	}
	if grant == nil || grant.Expired(time.Now()) {
		return []domain.Capability{}, false, nil
	}
	return domain.NormalizeScope(grant.Scope), true, nil
}

// Validate is true iff presented and stored scopes are equal as sets.
//
// It tells nothing about whether a grant exists; combine it with the
// existence result of CurrentScope.
func (a *Authorizer) Validate(presented []domain.Capability, stored []domain.Capability) bool {
	return domain.ScopeEqual(presented, stored)
}

// Exchange trades an ephemeral token for the user's durable token.
//
// The exchange succeeds only when
//
// - the token verifies against the signing key and is not expired,
//
// - the target is an experiment whose current status is live
// (scheduled, starting or running),
//
// - a grant is still stored for (user, model, object) and
//
// - the token's scope equals the stored grant's scope as a set.
//
// Every denial is ErrForbidden without further detail.
//
// Args
//
// - context.Context
//
// - string: the ephemeral token.
//
// Returns
//
// - Token: durable token of the user (get-or-create).
//
// - error: ErrForbidden on any denial, or storage errors.
func (a *Authorizer) Exchange(ctx context.Context, token string) (domain.Token, error) {
	verifyKey, err := a.keys.Issue()
	if err != nil {
		return domain.Token{}, err
	}

	claims, err := jws.VerifyJWS[*Claims](verifyKey, token)
	if err != nil {
		if errors.Is(err, jws.ErrInvalidToken) {
			return domain.Token{}, domain.ErrForbidden
		}
		return domain.Token{}, err
	}

	if claims.Model != domain.ModelExperiment {
		return domain.Token{}, domain.ErrForbidden
	}

	status, err := a.experiments.CurrentStatus(ctx, claims.ObjectId)
	if err != nil {
		if errors.Is(err, domain.ErrMissing) {
			return domain.Token{}, domain.ErrForbidden
		}
		return domain.Token{}, err
	}
	if !status.Live() {
		return domain.Token{}, domain.ErrForbidden
	}

	grant, err := a.grants.Get(ctx, claims.UserId, claims.Model, claims.ObjectId)
	if err != nil {
		return domain.Token{}, err
	}
	if grant == nil || grant.Expired(time.Now()) {
		return domain.Token{}, domain.ErrForbidden
	}

	presented := make([]domain.Capability, 0, len(claims.Scope))
	for _, c := range claims.Scope {
		presented = append(presented, domain.Capability(c))
	}
	if !domain.ScopeEqual(presented, grant.Scope) {
		return domain.Token{}, domain.ErrForbidden
	}

	return a.tokens.GetOrCreate(ctx, claims.UserId)
}

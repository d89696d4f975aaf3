package ai

import (
	"context"
	"os"
	"time"

	Logger "github.com/neurocrypto/newsforge/utils/log"
	"github.com/pkg/errors"
)

// Credential is one provider API key. Name is the env var it was loaded
// from, kept for logging without leaking the key itself.
type Credential struct {
	Name string
	Key  string
}

// CredentialPool is the shared resilience policy for provider calls: an
// ordered list of credentials and a fixed retry budget equal to the pool
// size. On failure the next credential is tried; there is no backoff and no
// second pass. Every AI-calling component goes through a pool so the
// try-next-key-then-give-up behavior lives in exactly one place.
type CredentialPool struct {
	creds       []Credential
	callTimeout time.Duration
}

// ErrNoCredentials is returned when the pool was constructed from env vars
// none of which were set.
var ErrNoCredentials = errors.New("credential pool is empty")

func NewCredentialPool(creds []Credential, callTimeout time.Duration) *CredentialPool {
	return &CredentialPool{creds: creds, callTimeout: callTimeout}
}

// PoolFromEnv builds a pool from the given env var names, skipping unset
// ones. The order of names is the rotation order.
func PoolFromEnv(names []string, callTimeout time.Duration) *CredentialPool {
	creds := []Credential{}
	for _, name := range names {
		if key := os.Getenv(name); key != "" {
			creds = append(creds, Credential{Name: name, Key: key})
		}
	}
	return NewCredentialPool(creds, callTimeout)
}

func (p *CredentialPool) Size() int {
	return len(p.creds)
}

// Credentials returns the rotation-ordered credential list, used by worker
// pools that bind one worker per credential.
func (p *CredentialPool) Credentials() []Credential {
	return p.creds
}

// Do invokes fn with each credential in order until one succeeds. Each
// attempt runs under the pool's bounded call timeout. Returns the last
// error once the budget is exhausted.
func (p *CredentialPool) Do(ctx context.Context, fn func(ctx context.Context, cred Credential) error) error {
	if len(p.creds) == 0 {
		return ErrNoCredentials
	}

	var lastErr error
	for _, cred := range p.creds {
		attemptCtx := ctx
		cancel := func() {}
		if p.callTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.callTimeout)
		}
		err := fn(attemptCtx, cred)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		Logger.Log.Errorf("provider call failed with credential %s: %v", cred.Name, err)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return errors.Wrap(lastErr, "all credentials exhausted")
}

package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/Caizin-Private/QuestEvent/internal/auth"
	"github.com/Caizin-Private/QuestEvent/internal/obs"
)

// Authorizer resolves facts for a resource reference and runs the engine.
// It is the single entry point the HTTP layer uses for access checks on
// existing resources.
type Authorizer struct {
	engine *Engine
	facts  FactProvider
}

// NewAuthorizer wires the engine to a fact provider.
func NewAuthorizer(facts FactProvider) *Authorizer {
	return &Authorizer{engine: NewEngine(), facts: facts}
}

// Authorize loads the facts for ref and decides the action. A missing
// resource yields a NotFound decision; infrastructure failures are returned
// as errors and must not be conflated with denial.
func (a *Authorizer) Authorize(ctx context.Context, p auth.Principal, action Action, ref ResourceRef) (Decision, error) {
	facts := PlatformFacts()
	if ref.Kind != KindPlatform {
		loaded, err := a.facts.Load(ctx, ref)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				d := NotFound()
				obs.ObserveDecision(string(action), string(d.Outcome))
				return d, nil
			}
			return Decision{}, fmt.Errorf("load facts for %s %s: %w", ref.Kind, ref.ID, err)
		}
		facts = loaded
	}
	d := a.engine.Decide(p, action, facts)
	obs.ObserveDecision(string(action), string(d.Outcome))
	return d, nil
}

// Decide runs the engine directly against caller-assembled facts. Create
// endpoints use this path because the resource does not exist yet and its
// facts come from the request payload.
func (a *Authorizer) Decide(p auth.Principal, action Action, facts Facts) Decision {
	d := a.engine.Decide(p, action, facts)
	obs.ObserveDecision(string(action), string(d.Outcome))
	return d
}

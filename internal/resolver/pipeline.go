package resolver

import (
	"context"

	"github.com/linksift/linksift/internal/domain"
	"github.com/linksift/linksift/internal/logger"
)

// Substituter is the frontend-substitution stage.
type Substituter interface {
	Resolve(rawURL string, useDynamic bool) domain.SubstitutionResult
}

// Pipeline chains redirect resolution and frontend substitution into the
// full shared-URL treatment. Degradation is built in: whatever fails, the
// caller always gets a usable FinalURL back (the raw input in the worst
// case), so target selection never blocks on a broken network.
type Pipeline struct {
	orchestrator *Orchestrator
	substituter  Substituter // nil disables substitution
	useDynamic   bool
	log          logger.Logger
}

func NewPipeline(o *Orchestrator, s Substituter, useDynamic bool, log logger.Logger) *Pipeline {
	return &Pipeline{orchestrator: o, substituter: s, useDynamic: useDynamic, log: log}
}

// Outcome is the pipeline's full answer for one URL.
type Outcome struct {
	// Result is the resolution result, or nil when policy vetoed the URL.
	Result *domain.ResolveResult
	// Substitution is set when the substitution stage ran.
	Substitution *domain.SubstitutionResult
	// FinalURL is what target selection should receive.
	FinalURL string
}

// Run resolves then substitutes. Substitution operates on the resolved URL
// when resolution succeeded and on the raw URL otherwise, so a darknet veto
// still vetoes but an unreachable shortener does not disable substitution.
func (p *Pipeline) Run(ctx context.Context, req domain.ResolveRequest) Outcome {
	outcome := Outcome{FinalURL: req.URL}

	result := p.orchestrator.Resolve(ctx, req)
	outcome.Result = result
	if result == nil {
		// Policy said no; hand the raw URL through untouched.
		return outcome
	}

	if resolved, ok := result.ResolvedURL(); ok {
		outcome.FinalURL = resolved
	} else {
		p.log.Debug("resolution degraded to raw URL",
			logger.String("url", req.URL),
			logger.String("result", result.Type.String()))
	}

	if p.substituter != nil {
		sub := p.substituter.Resolve(outcome.FinalURL, p.useDynamic)
		outcome.Substitution = &sub
		if sub.Redirected {
			outcome.FinalURL = sub.Replacement
		}
	}
	return outcome
}

package requirement

import (
	"strings"
	"time"

	"github.com/noah-isme/santri-dokumen-api/internal/models"
)

// Resolver turns a profile snapshot into an ordered checklist. It is safe for
// concurrent use.
type Resolver struct {
	homeLocality string
	now          func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock sets the reference-date source used by age rules.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithHomeLocality enables the domicile rule for addresses outside locality.
func WithHomeLocality(locality string) Option {
	return func(r *Resolver) {
		r.homeLocality = strings.TrimSpace(locality)
	}
}

// NewResolver builds a resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve evaluates profile at the clock's current date.
func (r *Resolver) Resolve(profile models.StudentProfile) []models.DocumentRequirement {
	return r.ResolveAt(profile, r.now())
}

// ResolveAt returns baseline, then matched conditional rules in table order,
// then the optional set. A code is listed once, with its first tag.
func (r *Resolver) ResolveAt(profile models.StudentProfile, refDate time.Time) []models.DocumentRequirement {
	baseline := Baseline(profile.Category)
	out := make([]models.DocumentRequirement, 0, len(baseline)+len(conditionalRules)+len(OptionalCodes))
	seen := make(map[string]struct{}, cap(out))

	add := func(req models.DocumentRequirement) {
		if _, dup := seen[req.Code]; dup {
			return
		}
		seen[req.Code] = struct{}{}
		out = append(out, req)
	}

	for _, code := range baseline {
		add(describe(code, models.TagRequired, ""))
	}

	in := ruleInput{profile: profile, refDate: refDate, homeLocality: r.homeLocality}
	for _, rl := range conditionalRules {
		if rl.matches(in) {
			add(describe(rl.code, models.TagConditional, rl.condition))
		}
	}

	for _, code := range OptionalCodes {
		add(describe(code, models.TagOptional, "Opsional"))
	}
	return out
}

// Contains reports whether code is part of reqs.
func Contains(reqs []models.DocumentRequirement, code string) bool {
	for _, req := range reqs {
		if req.Code == code {
			return true
		}
	}
	return false
}

// Codes lists the codes of reqs in order.
func Codes(reqs []models.DocumentRequirement) []string {
	out := make([]string, len(reqs))
	for i, req := range reqs {
		out[i] = req.Code
	}
	return out
}

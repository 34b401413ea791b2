// Package gate implements the trust gate: the ordered verification chain
// every protected request passes before it reaches business logic.
//
// The chain is origin → identity → role. Each stage either moves the
// request to its next state or rejects it; a rejection is terminal. The
// transitions taken are recorded on the Result so ordering is observable.
package gate

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophidentity/internal/common"
	"github.com/dmitrijs2005/gophidentity/internal/server/auth"
)

// State is the position of a request in the trust gate.
type State int

const (
	StateUnauthenticated State = iota
	StateOriginTrusted
	StateIdentityAttached
	StateAuthorized
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateOriginTrusted:
		return "origin-trusted"
	case StateIdentityAttached:
		return "identity-attached"
	case StateAuthorized:
		return "authorized"
	case StateRejected:
		return "rejected"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Requirement is what a route demands from the role stage.
type Requirement int

const (
	// RequireNone admits any request from a trusted origin.
	RequireNone Requirement = iota
	// RequireService is RequireNone for internal routes: the origin proof
	// is the whole requirement and no end user is needed.
	RequireService
	RequireIdentity
	RequireSelfOrAdmin
	RequireAdmin
)

// Request holds what the transport extracted from the inbound call.
type Request struct {
	ServiceToken string
	SessionToken string
	// TargetID is the account the operation acts on, for RequireSelfOrAdmin.
	TargetID    string
	Requirement Requirement
}

// Transition is one recorded step through the chain.
type Transition struct {
	Stage string
	From  State
	To    State
}

// Result is the outcome of evaluating a Request.
type Result struct {
	State    State
	Caller   *auth.CallerInfo
	Identity *auth.Identity
	Trail    []Transition
	Err      error
}

// Authorized reports whether the request may proceed.
func (r *Result) Authorized() bool {
	return r.State == StateAuthorized
}

// TokenVerifier is the part of auth.Verifier the gate needs.
type TokenVerifier interface {
	VerifyServiceToken(raw string) (*auth.CallerInfo, error)
	VerifySessionToken(raw string) (*auth.Identity, error)
}

// Stage is a single step of the chain.
type Stage interface {
	Name() string
	Apply(req *Request, res *Result) (State, error)
}

// Chain is an ordered list of stages.
type Chain struct {
	stages []Stage
}

// New builds the canonical origin → identity → role chain. bypass admits
// requests without a service token and must only come from configuration
// that was validated as non-production.
func New(v TokenVerifier, bypass bool) *Chain {
	return NewChain(
		&originStage{verifier: v, bypass: bypass},
		&identityStage{verifier: v},
		roleStage{},
	)
}

// NewChain builds a chain from explicit stages.
func NewChain(stages ...Stage) *Chain {
	return &Chain{stages: stages}
}

// Stages returns the stage names in evaluation order.
func (c *Chain) Stages() []string {
	names := make([]string, len(c.stages))
	for i, s := range c.stages {
		names[i] = s.Name()
	}
	return names
}

// Evaluate runs req through every stage in order and stops at the first
// rejection.
func (c *Chain) Evaluate(req Request) *Result {
	res := &Result{State: StateUnauthenticated}
	for _, s := range c.stages {
		from := res.State
		to, err := s.Apply(&req, res)
		if err != nil {
			res.Trail = append(res.Trail, Transition{Stage: s.Name(), From: from, To: StateRejected})
			res.State = StateRejected
			res.Err = err
			return res
		}
		res.Trail = append(res.Trail, Transition{Stage: s.Name(), From: from, To: to})
		res.State = to
	}
	return res
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. Anything else yields "".
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}

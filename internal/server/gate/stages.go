package gate

import (
	"github.com/dmitrijs2005/gophidentity/internal/common"
	"github.com/dmitrijs2005/gophidentity/internal/server/auth"
	"github.com/dmitrijs2005/gophidentity/internal/server/policy"
)

const (
	StageOrigin   = "origin"
	StageIdentity = "identity"
	StageRole     = "role"
)

// originStage demands a valid service token. The presence of a header is
// never proof on its own; only a verified signature is.
type originStage struct {
	verifier TokenVerifier
	bypass   bool
}

func (s *originStage) Name() string { return StageOrigin }

func (s *originStage) Apply(req *Request, res *Result) (State, error) {
	if req.ServiceToken == "" {
		if s.bypass {
			res.Caller = &auth.CallerInfo{Type: auth.CallerBypass}
			return StateOriginTrusted, nil
		}
		return StateRejected, common.Unauthenticated("untrusted origin")
	}

	caller, err := s.verifier.VerifyServiceToken(req.ServiceToken)
	if err != nil {
		return StateRejected, &common.Error{Kind: common.KindAuthentication, Message: "untrusted origin", Err: err}
	}
	res.Caller = caller
	return StateOriginTrusted, nil
}

// identityStage attaches the end user when a valid session token is
// present. An invalid token is not a rejection here; the role stage decides
// whether identity was needed.
type identityStage struct {
	verifier TokenVerifier
}

func (s *identityStage) Name() string { return StageIdentity }

func (s *identityStage) Apply(req *Request, res *Result) (State, error) {
	if req.SessionToken == "" {
		return res.State, nil
	}
	id, err := s.verifier.VerifySessionToken(req.SessionToken)
	if err != nil {
		return res.State, nil
	}
	res.Identity = id
	return StateIdentityAttached, nil
}

type roleStage struct{}

func (roleStage) Name() string { return StageRole }

func (roleStage) Apply(req *Request, res *Result) (State, error) {
	var err error
	switch req.Requirement {
	case RequireNone, RequireService:
	case RequireIdentity:
		err = policy.RequireIdentity(res.Identity)
	case RequireSelfOrAdmin:
		err = policy.RequireSelfOrAdmin(res.Identity, req.TargetID)
	case RequireAdmin:
		err = policy.RequireAdmin(res.Identity)
	default:
		err = common.Forbidden("unknown route requirement")
	}
	if err != nil {
		return StateRejected, err
	}
	return StateAuthorized, nil
}

// Package permissions decides what the acting user may see of a subject's plan.
package permissions

import (
	"context"
	"fmt"
	"time"

	"infinite-experiment/plp/internal/common"
	"infinite-experiment/plp/internal/constants"
	"infinite-experiment/plp/internal/host"
)

// Confidentiality is the visibility tier of a section, broadest first.
type Confidentiality string

const (
	Public     Confidentiality = "public"
	Restricted Confidentiality = "restricted"
	Private    Confidentiality = "private"
	Personal   Confidentiality = "personal"
)

// ParseConfidentiality defaults an empty level to public.
func ParseConfidentiality(s string) (Confidentiality, error) {
	switch c := Confidentiality(s); c {
	case "":
		return Public, nil
	case Public, Restricted, Private, Personal:
		return c, nil
	default:
		return "", common.ConfigError(constants.ErrCodeConfigMalformed, "unknown confidentiality %q", s)
	}
}

// SubjectOwner is anything that belongs to one subject user: items, values.
type SubjectOwner interface {
	SubjectUserID() int64
}

// Resolver is built once per request for the acting user. Context sets are
// cached per subject for the life of the resolver.
type Resolver struct {
	actorID int64
	caps    host.Capabilities
	cache   *common.CacheService
}

func NewResolver(actorID int64, caps host.Capabilities) *Resolver {
	return &Resolver{
		actorID: actorID,
		caps:    caps,
		cache:   common.NewCacheService(time.Hour, 0),
	}
}

func (r *Resolver) ActorID() int64 { return r.actorID }

func contextsKey(subjectID int64) string {
	return fmt.Sprintf("%s%d", constants.CachePrefixPermissions, subjectID)
}

// PermissionContexts returns every context where the actor holds the base view
// capability in relation to the subject.
func (r *Resolver) PermissionContexts(ctx context.Context, subjectID int64) ([]host.TrustContext, error) {
	val, err := r.cache.GetOrSet(contextsKey(subjectID), time.Hour, func() (any, error) {
		candidates, err := r.caps.CandidateContexts(ctx, subjectID)
		if err != nil {
			return nil, err
		}

		granted := make([]host.TrustContext, 0, len(candidates))
		for _, tc := range candidates {
			ok, err := r.caps.HasCapability(ctx, constants.CapView, tc, r.actorID)
			if err != nil {
				return nil, err
			}
			if ok {
				granted = append(granted, tc)
			}
		}
		return granted, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve permission contexts for user %d: %w", subjectID, err)
	}
	return val.([]host.TrustContext), nil
}

func (r *Resolver) CanView(ctx context.Context, subjectID int64) (bool, error) {
	contexts, err := r.PermissionContexts(ctx, subjectID)
	if err != nil {
		return false, err
	}
	return len(contexts) > 0, nil
}

// HasPermission checks capability for the subject owning instance. Any one
// granting context is enough.
func (r *Resolver) HasPermission(ctx context.Context, capability string, instance SubjectOwner) (bool, error) {
	return r.HasPermissionFor(ctx, capability, instance.SubjectUserID())
}

func (r *Resolver) HasPermissionFor(ctx context.Context, capability string, subjectID int64) (bool, error) {
	contexts, err := r.PermissionContexts(ctx, subjectID)
	if err != nil {
		return false, err
	}
	if len(contexts) == 0 {
		return false, nil
	}

	for _, tc := range contexts {
		ok, err := r.caps.HasCapability(ctx, capability, tc, r.actorID)
		if err != nil {
			return false, fmt.Errorf("failed to check %s in %s: %w", capability, tc, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// RequireView turns a failed view check into a permission error.
func (r *Resolver) RequireView(ctx context.Context, subjectID int64) error {
	ok, err := r.CanView(ctx, subjectID)
	if err != nil {
		return err
	}
	if !ok {
		return common.PermissionError("user %d may not view the plan of user %d", r.actorID, subjectID)
	}
	return nil
}

// CanSeeConfidentiality gates data of a given tier. creatorID is the user who
// recorded the data, or 0 when unknown.
func (r *Resolver) CanSeeConfidentiality(ctx context.Context, level Confidentiality, subjectID, creatorID int64) (bool, error) {
	canView, err := r.CanView(ctx, subjectID)
	if err != nil || !canView {
		return false, err
	}

	switch level {
	case Public:
		return true, nil
	case Restricted:
		return r.HasPermissionFor(ctx, constants.CapViewRestricted, subjectID)
	case Private:
		if r.actorID == subjectID {
			return true, nil
		}
		return r.HasPermissionFor(ctx, constants.CapViewPrivate, subjectID)
	case Personal:
		return r.actorID == subjectID || (creatorID != 0 && r.actorID == creatorID), nil
	default:
		return false, common.ConfigError(constants.ErrCodeConfigMalformed, "unknown confidentiality %q", level)
	}
}

// Roles lists the actor's roles in the contexts it may act on the subject.
func (r *Resolver) Roles(ctx context.Context, subjectID int64) ([]constants.Role, error) {
	contexts, err := r.PermissionContexts(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if len(contexts) == 0 {
		return nil, nil
	}
	return r.caps.UserRoles(ctx, r.actorID, contexts)
}

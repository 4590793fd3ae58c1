package plan

import (
	"infinite-experiment/plp/internal/fields"
	models "infinite-experiment/plp/internal/models/gorm"
	"infinite-experiment/plp/internal/permissions"
)

// RequestContext is everything one render or save needs to know about the
// request. It is passed explicitly; nothing is read from ambient state.
type RequestContext struct {
	Actor    *models.User
	Subject  *models.User
	Input    fields.Input
	Resolver *permissions.Resolver
	// ItemID selects an existing item to update in a multi section.
	ItemID int64
}

func (rc *RequestContext) ActorID() int64 { return rc.Actor.ID }

func (rc *RequestContext) SubjectID() int64 { return rc.Subject.ID }

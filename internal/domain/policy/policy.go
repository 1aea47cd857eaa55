// Package policy decides whether a principal may perform an action on a resource.
// It is the only place role and ownership rules live; services ask it before touching
// the store.
package policy

import (
	"github.com/neiios/dam-project-server/internal/common"
	"github.com/neiios/dam-project-server/internal/domain/model"
)

// Principal is the authenticated identity resolved from a bearer token.
type Principal struct {
	ID   int64
	Role string
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == model.RoleAdmin
}

type Action string

const (
	ActionRead       Action = "read"        // public read of conference/track/article
	ActionReadPublic Action = "read-public" // answered questions, published to everyone
	ActionReadOwn    Action = "read-own"
	ActionReadAll    Action = "read-all"
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionAnswer     Action = "answer"
)

type ResourceKind string

const (
	ResourceConference         ResourceKind = "conference"
	ResourceTrack              ResourceKind = "track"
	ResourceArticle            ResourceKind = "article"
	ResourceConferenceQuestion ResourceKind = "conference-question"
	ResourceArticleQuestion    ResourceKind = "article-question"
)

// Resource identifies what is acted upon. OwnerID is only meaningful for questions.
type Resource struct {
	Kind    ResourceKind
	OwnerID int64
}

func (k ResourceKind) isContent() bool {
	return k == ResourceConference || k == ResourceTrack || k == ResourceArticle
}

func (k ResourceKind) isQuestion() bool {
	return k == ResourceConferenceQuestion || k == ResourceArticleQuestion
}

// QuestionResource maps a question kind to its policy resource.
func QuestionResource(kind model.QuestionKind, ownerID int64) Resource {
	if kind == model.KindArticle {
		return Resource{Kind: ResourceArticleQuestion, OwnerID: ownerID}
	}
	return Resource{Kind: ResourceConferenceQuestion, OwnerID: ownerID}
}

// Evaluate returns nil when the action is permitted, common.ErrUnauthorized when a
// principal is required but absent, and common.ErrForbidden otherwise.
func Evaluate(p *Principal, action Action, res Resource) error {
	// Public reads never need a principal.
	if action == ActionRead && res.Kind.isContent() {
		return nil
	}
	if action == ActionReadPublic {
		if res.Kind == ResourceArticleQuestion {
			return nil
		}
		return common.ErrForbidden
	}

	if p == nil {
		return common.ErrUnauthorized
	}

	switch {
	case res.Kind.isContent():
		switch action {
		case ActionCreate, ActionUpdate, ActionDelete:
			return requireAdmin(p)
		}
	case res.Kind.isQuestion():
		switch action {
		case ActionCreate:
			return nil
		case ActionAnswer, ActionDelete, ActionReadAll:
			return requireAdmin(p)
		case ActionReadOwn:
			if p.ID == res.OwnerID {
				return nil
			}
		}
	}
	return common.ErrForbidden
}

// Permit is the boolean form of Evaluate.
func Permit(p *Principal, action Action, res Resource) bool {
	return Evaluate(p, action, res) == nil
}

func requireAdmin(p *Principal) error {
	if p.IsAdmin() {
		return nil
	}
	return common.ErrForbidden
}

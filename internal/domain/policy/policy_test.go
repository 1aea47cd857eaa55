package policy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/neiios/dam-project-server/internal/common"
	"github.com/neiios/dam-project-server/internal/domain/model"
)

var (
	admin = &Principal{ID: 1, Role: model.RoleAdmin}
	alice = &Principal{ID: 2, Role: model.RoleUser}
	bob   = &Principal{ID: 3, Role: model.RoleUser}
)

func TestEvaluate_DecisionTable(t *testing.T) {
	content := []ResourceKind{ResourceConference, ResourceTrack, ResourceArticle}
	questions := []ResourceKind{ResourceConferenceQuestion, ResourceArticleQuestion}

	type row struct {
		principal *Principal
		action    Action
		resource  Resource
		want      error
	}
	var table []row

	for _, kind := range content {
		res := Resource{Kind: kind}
		table = append(table,
			row{nil, ActionRead, res, nil},
			row{alice, ActionRead, res, nil},
			row{admin, ActionRead, res, nil},
		)
		for _, action := range []Action{ActionCreate, ActionUpdate, ActionDelete} {
			table = append(table,
				row{nil, action, res, common.ErrUnauthorized},
				row{alice, action, res, common.ErrForbidden},
				row{admin, action, res, nil},
			)
		}
		// Question-only actions make no sense on content.
		for _, action := range []Action{ActionAnswer, ActionReadOwn, ActionReadAll} {
			table = append(table, row{admin, action, res, common.ErrForbidden})
		}
	}

	for _, kind := range questions {
		owned := Resource{Kind: kind, OwnerID: alice.ID}
		table = append(table,
			row{nil, ActionCreate, owned, common.ErrUnauthorized},
			row{alice, ActionCreate, owned, nil},
			row{bob, ActionCreate, owned, nil},
			row{admin, ActionCreate, owned, nil},

			row{nil, ActionReadOwn, owned, common.ErrUnauthorized},
			row{alice, ActionReadOwn, owned, nil},
			row{bob, ActionReadOwn, owned, common.ErrForbidden},

			row{alice, ActionUpdate, owned, common.ErrForbidden},
			row{admin, ActionUpdate, owned, common.ErrForbidden},
		)
		for _, action := range []Action{ActionAnswer, ActionDelete, ActionReadAll} {
			table = append(table,
				row{nil, action, owned, common.ErrUnauthorized},
				row{alice, action, owned, common.ErrForbidden},
				row{bob, action, owned, common.ErrForbidden},
				row{admin, action, owned, nil},
			)
		}
	}

	table = append(table,
		row{nil, ActionReadPublic, Resource{Kind: ResourceArticleQuestion}, nil},
		row{alice, ActionReadPublic, Resource{Kind: ResourceArticleQuestion}, nil},
		row{nil, ActionReadPublic, Resource{Kind: ResourceConferenceQuestion}, common.ErrForbidden},
		row{admin, ActionReadPublic, Resource{Kind: ResourceConferenceQuestion}, common.ErrForbidden},
		row{nil, ActionReadPublic, Resource{Kind: ResourceConference}, common.ErrForbidden},
	)

	for _, tt := range table {
		name := fmt.Sprintf("%s/%s/%s", describe(tt.principal), tt.action, tt.resource.Kind)
		t.Run(name, func(t *testing.T) {
			err := Evaluate(tt.principal, tt.action, tt.resource)
			if tt.want == nil {
				assert.NoError(t, err)
				assert.True(t, Permit(tt.principal, tt.action, tt.resource))
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, Permit(tt.principal, tt.action, tt.resource))
		})
	}
}

func TestEvaluate_AdminDoesNotReadOthersViaReadOwn(t *testing.T) {
	// Admins use read-all; read-own stays an ownership check.
	err := Evaluate(admin, ActionReadOwn, Resource{Kind: ResourceArticleQuestion, OwnerID: alice.ID})
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestQuestionResource(t *testing.T) {
	assert.Equal(t, Resource{Kind: ResourceArticleQuestion, OwnerID: 9}, QuestionResource(model.KindArticle, 9))
	assert.Equal(t, Resource{Kind: ResourceConferenceQuestion, OwnerID: 9}, QuestionResource(model.KindConference, 9))
}

func describe(p *Principal) string {
	switch {
	case p == nil:
		return "anonymous"
	case p.IsAdmin():
		return "admin"
	default:
		return fmt.Sprintf("user%d", p.ID)
	}
}

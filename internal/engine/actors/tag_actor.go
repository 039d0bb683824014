package actors

import (
	"time"

	"devoverflow/internal/content"
	"devoverflow/internal/query"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

type (
	ListTagsMsg struct {
		Params query.ListParams
	}

	PopularTagsMsg struct {
		Limit int
	}

	GetTagMsg struct {
		TagID uuid.UUID
	}
)

// TagActor serves tag reads. Tag writes only ever happen through question
// create and edit.
type TagActor struct {
	content *content.Service
	deps    Deps
}

func NewTagActor(svc *content.Service, deps Deps) actor.Actor {
	return &TagActor{content: svc, deps: deps}
}

func (a *TagActor) Receive(context actor.Context) {
	if a.deps.lifecycle("tag", context.Message()) {
		return
	}

	start := time.Now()
	ctx, cancel := a.deps.operation(context.Message())
	defer cancel()

	switch msg := context.Message().(type) {
	case *ListTagsMsg:
		result, err := a.content.ListTags(ctx, msg.Params)
		a.deps.respond(context, "list_tags", start, result, err)
	case *PopularTagsMsg:
		result, err := a.content.PopularTags(ctx, msg.Limit)
		a.deps.respond(context, "popular_tags", start, result, err)
	case *GetTagMsg:
		result, err := a.content.GetTag(ctx, msg.TagID)
		a.deps.respond(context, "get_tag", start, result, err)
	default:
		a.deps.unknown(context, "tag")
	}
}

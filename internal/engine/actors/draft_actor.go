package actors

import (
	stdctx "context"
	"time"

	"devoverflow/internal/ai"
	"devoverflow/internal/content"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

type GenerateDraftMsg struct {
	QuestionID uuid.UUID
	UserDraft  string
}

// Draft is the markdown answer proposed by the completion service.
type Draft struct {
	Content string `json:"content"`
}

// DraftActor asks the completion service for an answer draft. Its operations
// run under the drafter's own timeout, not the storage timeout.
type DraftActor struct {
	drafter *ai.Drafter
	content *content.Service
	deps    Deps
}

func NewDraftActor(drafter *ai.Drafter, svc *content.Service, deps Deps) actor.Actor {
	return &DraftActor{drafter: drafter, content: svc, deps: deps}
}

func (a *DraftActor) Receive(context actor.Context) {
	if a.deps.lifecycle("draft", context.Message()) {
		return
	}

	switch msg := context.Message().(type) {
	case *GenerateDraftMsg:
		start := time.Now()
		ctx, cancel := a.deps.operation(msg)
		q, err := a.content.LookupQuestion(ctx, msg.QuestionID)
		cancel()
		if err != nil {
			a.deps.respond(context, "generate_draft", start, nil, err)
			return
		}

		// The drafter applies its own deadline.
		draft, err := a.drafter.Generate(stdctx.Background(), ai.DraftRequest{
			Question:  q.Title,
			Content:   q.Content,
			UserDraft: msg.UserDraft,
		})
		a.deps.respond(context, "generate_draft", start, &Draft{Content: draft}, err)

	default:
		a.deps.unknown(context, "draft")
	}
}

package actors

import (
	"time"

	"devoverflow/internal/content"
	"devoverflow/internal/query"
	"devoverflow/internal/tags"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Message types for question, answer and collection operations
type (
	CreateQuestionMsg struct {
		Deadline
		Input content.CreateQuestionInput
	}

	EditQuestionMsg struct {
		Deadline
		Input tags.EditInput
	}

	GetQuestionMsg struct {
		QuestionID uuid.UUID
	}

	LookupQuestionMsg struct {
		QuestionID uuid.UUID
	}

	ListQuestionsMsg struct {
		Params query.ListParams
	}

	ListTaggedQuestionsMsg struct {
		TagID  uuid.UUID
		Params query.ListParams
	}

	CreateAnswerMsg struct {
		Deadline
		Input content.CreateAnswerInput
	}

	ListAnswersMsg struct {
		QuestionID uuid.UUID
		Params     query.ListParams
	}

	ToggleSaveMsg struct {
		Deadline
		UserID     uuid.UUID
		QuestionID uuid.UUID
	}

	HasSavedMsg struct {
		UserID     uuid.UUID
		QuestionID uuid.UUID
	}

	ListSavedMsg struct {
		UserID uuid.UUID
		Params query.ListParams
	}
)

// SaveStatus answers ToggleSaveMsg and HasSavedMsg.
type SaveStatus struct {
	Saved bool `json:"saved"`
}

// QuestionActor serves questions and everything hanging off them.
type QuestionActor struct {
	content *content.Service
	deps    Deps
}

func NewQuestionActor(svc *content.Service, deps Deps) actor.Actor {
	return &QuestionActor{content: svc, deps: deps}
}

func (a *QuestionActor) Receive(context actor.Context) {
	if a.deps.lifecycle("question", context.Message()) || a.deps.expired(context, "question") {
		return
	}

	start := time.Now()
	ctx, cancel := a.deps.operation(context.Message())
	defer cancel()

	switch msg := context.Message().(type) {
	case *CreateQuestionMsg:
		result, err := a.content.CreateQuestion(ctx, msg.Input)
		a.deps.respond(context, "create_question", start, result, err)

	case *EditQuestionMsg:
		result, err := a.content.EditQuestion(ctx, msg.Input)
		a.deps.respond(context, "edit_question", start, result, err)

	case *GetQuestionMsg:
		result, err := a.content.GetQuestion(ctx, msg.QuestionID)
		a.deps.respond(context, "get_question", start, result, err)

	case *LookupQuestionMsg:
		result, err := a.content.LookupQuestion(ctx, msg.QuestionID)
		a.deps.respond(context, "lookup_question", start, result, err)

	case *ListQuestionsMsg:
		result, err := a.content.ListQuestions(ctx, msg.Params)
		a.deps.respond(context, "list_questions", start, result, err)

	case *ListTaggedQuestionsMsg:
		result, err := a.content.ListQuestionsByTag(ctx, msg.TagID, msg.Params)
		a.deps.respond(context, "list_tagged_questions", start, result, err)

	case *CreateAnswerMsg:
		result, err := a.content.CreateAnswer(ctx, msg.Input)
		a.deps.respond(context, "create_answer", start, result, err)

	case *ListAnswersMsg:
		result, err := a.content.ListAnswers(ctx, msg.QuestionID, msg.Params)
		a.deps.respond(context, "list_answers", start, result, err)

	case *ToggleSaveMsg:
		saved, err := a.content.ToggleSave(ctx, msg.UserID, msg.QuestionID)
		a.deps.respond(context, "toggle_save", start, &SaveStatus{Saved: saved}, err)

	case *HasSavedMsg:
		saved, err := a.content.HasSaved(ctx, msg.UserID, msg.QuestionID)
		a.deps.respond(context, "has_saved", start, &SaveStatus{Saved: saved}, err)

	case *ListSavedMsg:
		result, err := a.content.ListSaved(ctx, msg.UserID, msg.Params)
		a.deps.respond(context, "list_saved", start, result, err)

	case *GetCountsMsg:
		result, err := a.content.Stats(ctx)
		a.deps.respond(context, "counts", start, result, err)

	default:
		a.deps.unknown(context, "question")
	}
}

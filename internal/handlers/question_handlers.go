package handlers

import (
	"net/http"

	"devoverflow/internal/content"
	"devoverflow/internal/engine"
	"devoverflow/internal/engine/actors"
	"devoverflow/internal/middleware"
	"devoverflow/internal/models"
	"devoverflow/internal/query"
	"devoverflow/internal/tags"
	"devoverflow/internal/votes"
)

// QuestionDetail is a question as seen by one viewer.
type QuestionDetail struct {
	*models.QuestionView
	Vote  votes.Status `json:"vote"`
	Saved bool         `json:"saved"`
}

func (s *Server) HandleListQuestions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := engine.Request[*query.Page[*models.QuestionView]](s.Engine, engine.QuestionPool, &actors.ListQuestionsMsg{Params: listParams(r)})
		s.respond(w, r, http.StatusOK, page, err)
	}
}

func (s *Server) HandleCreateQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req content.CreateQuestionInput
		if err := decode(w, r, &req); err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}
		req.AuthorID = middleware.UserID(r.Context())

		q, err := engine.Request[*models.QuestionView](s.Engine, engine.QuestionPool, &actors.CreateQuestionMsg{Input: req})
		s.respond(w, r, http.StatusCreated, q, err)
	}
}

// HandleGetQuestion returns the question, counts the view and adds the
// viewer's vote and save state. Anonymous viewers get neither.
func (s *Server) HandleGetQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}

		q, err := engine.Request[*models.QuestionView](s.Engine, engine.QuestionPool, &actors.GetQuestionMsg{QuestionID: id})
		if err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}
		detail := &QuestionDetail{QuestionView: q}

		viewer := middleware.UserID(r.Context())
		status, err := engine.Request[*votes.Status](s.Engine, engine.VotePool, &actors.HasVotedMsg{
			TargetID:   id,
			TargetType: models.QuestionTarget,
			UserID:     viewer,
		})
		if err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}
		detail.Vote = *status

		saved, err := engine.Request[*actors.SaveStatus](s.Engine, engine.QuestionPool, &actors.HasSavedMsg{UserID: viewer, QuestionID: id})
		if err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}
		detail.Saved = saved.Saved

		s.respond(w, r, http.StatusOK, detail, nil)
	}
}

func (s *Server) HandleEditQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}
		var req tags.EditInput
		if err := decode(w, r, &req); err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}
		req.QuestionID = id
		req.EditorID = middleware.UserID(r.Context())

		q, err := engine.Request[*models.QuestionView](s.Engine, engine.QuestionPool, &actors.EditQuestionMsg{Input: req})
		s.respond(w, r, http.StatusOK, q, err)
	}
}

func (s *Server) HandleListAnswers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}

		page, err := engine.Request[*query.Page[*models.Answer]](s.Engine, engine.QuestionPool, &actors.ListAnswersMsg{QuestionID: id, Params: listParams(r)})
		s.respond(w, r, http.StatusOK, page, err)
	}
}

func (s *Server) HandleCreateAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}
		var req content.CreateAnswerInput
		if err := decode(w, r, &req); err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}
		req.QuestionID = id
		req.AuthorID = middleware.UserID(r.Context())

		a, err := engine.Request[*models.Answer](s.Engine, engine.QuestionPool, &actors.CreateAnswerMsg{Input: req})
		s.respond(w, r, http.StatusCreated, a, err)
	}
}

type draftRequest struct {
	UserAnswer string `json:"userAnswer"`
}

// HandleGenerateDraft asks the completion service for an answer draft.
// Failures come back as transient errors the client may simply retry.
func (s *Server) HandleGenerateDraft() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}
		var req draftRequest
		if r.ContentLength != 0 {
			if err := decode(w, r, &req); err != nil {
				s.respond(w, r, 0, nil, err)
				return
			}
		}

		draft, err := engine.Request[*actors.Draft](s.Engine, engine.DraftPool, &actors.GenerateDraftMsg{QuestionID: id, UserDraft: req.UserAnswer})
		s.respond(w, r, http.StatusOK, draft, err)
	}
}

func (s *Server) HandleToggleSave() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "questionId")
		if err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}

		status, err := engine.Request[*actors.SaveStatus](s.Engine, engine.QuestionPool, &actors.ToggleSaveMsg{
			UserID:     middleware.UserID(r.Context()),
			QuestionID: id,
		})
		s.respond(w, r, http.StatusOK, status, err)
	}
}

func (s *Server) HandleListSaved() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := engine.Request[*query.Page[*models.QuestionView]](s.Engine, engine.QuestionPool, &actors.ListSavedMsg{
			UserID: middleware.UserID(r.Context()),
			Params: listParams(r),
		})
		s.respond(w, r, http.StatusOK, page, err)
	}
}

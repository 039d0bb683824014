package handlers

import (
	"net/http"
	"strconv"

	"devoverflow/internal/content"
	"devoverflow/internal/engine"
	"devoverflow/internal/engine/actors"
	"devoverflow/internal/models"
	"devoverflow/internal/query"
)

func (s *Server) HandleListTags() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := engine.Request[*query.Page[*models.Tag]](s.Engine, engine.TagPool, &actors.ListTagsMsg{Params: listParams(r)})
		s.respond(w, r, http.StatusOK, page, err)
	}
}

func (s *Server) HandlePopularTags() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		top, err := engine.Request[[]*models.Tag](s.Engine, engine.TagPool, &actors.PopularTagsMsg{Limit: limit})
		s.respond(w, r, http.StatusOK, top, err)
	}
}

func (s *Server) HandleGetTag() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}

		tag, err := engine.Request[*models.Tag](s.Engine, engine.TagPool, &actors.GetTagMsg{TagID: id})
		s.respond(w, r, http.StatusOK, tag, err)
	}
}

func (s *Server) HandleTaggedQuestions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}

		page, err := engine.Request[*content.TaggedQuestions](s.Engine, engine.QuestionPool, &actors.ListTaggedQuestionsMsg{TagID: id, Params: listParams(r)})
		s.respond(w, r, http.StatusOK, page, err)
	}
}

package simulator

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"devoverflow/internal/utils"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// tagVocabulary is ordered by intended popularity; the Zipf draw favors the
// front of the list.
var tagVocabulary = []string{
	"go", "concurrency", "testing", "http", "json",
	"generics", "channels", "mongodb", "redis", "docker",
	"kubernetes", "grpc", "errors", "modules", "performance",
	"linux", "security", "postgres", "profiling", "reflection",
}

// activity is one kind of user action, attempted with probability
// frequency/minute on every tick for every user.
type activity struct {
	name      string
	frequency float64
	do        func(ctx context.Context, user *SimulatedUser) error
}

func (s *Simulator) SimulateActivities(ctx context.Context) {
	activities := []activity{
		{"ask", s.config.AskFrequency, s.ask},
		{"answer", s.config.AnswerFrequency, s.answer},
		{"vote", s.config.VoteFrequency, s.vote},
		{"save", s.config.SaveFrequency, s.toggleSave},
		{"edit", s.config.EditFrequency, s.edit},
		{"browse", s.config.BrowseFrequency, s.browse},
	}

	var wg sync.WaitGroup
	for _, a := range activities {
		if a.frequency <= 0 {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runActivity(ctx, a)
		}()
	}
	wg.Wait()
}

func (s *Simulator) runActivity(ctx context.Context, a activity) {
	s.logger.Debug("starting activity", "activity", a.name)

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()
	chance := a.frequency * s.config.TickInterval.Seconds() / 60

	jobs := make(chan *SimulatedUser, s.config.NumUsers)
	var wg sync.WaitGroup
	for range s.config.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for user := range jobs {
				if s.float() >= chance {
					continue
				}
				if err := a.do(ctx, user); err != nil && ctx.Err() == nil {
					s.logger.Debug("activity failed", "activity", a.name, "user", user.Username, utils.ErrAttr(err))
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		case <-ticker.C:
			s.mu.RLock()
			for _, user := range s.users {
				select {
				case jobs <- user:
				default: // Don't block if workers are behind
				}
			}
			s.mu.RUnlock()
		}
	}
}

func (s *Simulator) float() float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64()
}

func (s *Simulator) intn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}

// pickTags draws one to three tags, skewed toward popular ones. Repeats are
// left in on purpose so the server's de-duplication is exercised.
func (s *Simulator) pickTags() []string {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	n := s.rng.Intn(3) + 1
	tags := make([]string, 0, n)
	for range n {
		tags = append(tags, tagVocabulary[s.zipf.Uint64()])
	}
	return tags
}

func (s *Simulator) randomQuestion() (uuid.UUID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.questions) == 0 {
		return uuid.Nil, false
	}
	return s.questions[s.intn(len(s.questions))], true
}

func title() string {
	t := gofakeit.Question()
	if len(t) > 120 {
		t = t[:120]
	}
	for len(t) < 10 {
		t += " " + gofakeit.Word()
	}
	return t
}

func body() string {
	return gofakeit.Paragraph(2, 4, 12, "\n\n")
}

func (s *Simulator) ask(ctx context.Context, user *SimulatedUser) error {
	var created struct {
		ID uuid.UUID `json:"id"`
	}
	err := s.client.Do(ctx, http.MethodPost, "/questions", user.Token, map[string]any{
		"title":   title(),
		"content": body(),
		"tags":    s.pickTags(),
	}, &created)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.questions = append(s.questions, created.ID)
	user.Questions = append(user.Questions, created.ID)
	s.mu.Unlock()

	s.stats.mu.Lock()
	s.stats.TotalQuestions++
	s.stats.mu.Unlock()
	return nil
}

func (s *Simulator) answer(ctx context.Context, user *SimulatedUser) error {
	id, ok := s.randomQuestion()
	if !ok {
		return nil
	}
	err := s.client.Do(ctx, http.MethodPost, fmt.Sprintf("/questions/%s/answers", id), user.Token,
		map[string]string{"content": body()}, nil)
	if err != nil {
		return err
	}

	s.stats.mu.Lock()
	s.stats.TotalAnswers++
	s.stats.mu.Unlock()
	return nil
}

// vote leans toward upvotes. Repeating a vote on the same question retracts
// it, which is part of what this exercises.
func (s *Simulator) vote(ctx context.Context, user *SimulatedUser) error {
	id, ok := s.randomQuestion()
	if !ok {
		return nil
	}
	voteType := "upvote"
	if s.float() >= 0.7 {
		voteType = "downvote"
	}
	err := s.client.Do(ctx, http.MethodPost, "/votes", user.Token, map[string]string{
		"targetId":   id.String(),
		"targetType": "question",
		"voteType":   voteType,
	}, nil)
	if err != nil {
		return err
	}

	s.stats.mu.Lock()
	s.stats.TotalVotes++
	s.stats.mu.Unlock()
	return nil
}

func (s *Simulator) toggleSave(ctx context.Context, user *SimulatedUser) error {
	id, ok := s.randomQuestion()
	if !ok {
		return nil
	}
	if err := s.client.Do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/toggle", id), user.Token, nil, nil); err != nil {
		return err
	}

	s.stats.mu.Lock()
	s.stats.TotalSaves++
	s.stats.mu.Unlock()
	return nil
}

// edit retags one of the user's own questions.
func (s *Simulator) edit(ctx context.Context, user *SimulatedUser) error {
	s.mu.RLock()
	if len(user.Questions) == 0 {
		s.mu.RUnlock()
		return nil
	}
	id := user.Questions[s.intn(len(user.Questions))]
	s.mu.RUnlock()

	err := s.client.Do(ctx, http.MethodPatch, fmt.Sprintf("/questions/%s", id), user.Token, map[string]any{
		"title":   title(),
		"content": body(),
		"tags":    s.pickTags(),
	}, nil)
	if err != nil {
		return err
	}

	s.stats.mu.Lock()
	s.stats.TotalEdits++
	s.stats.mu.Unlock()
	return nil
}

func (s *Simulator) browse(ctx context.Context, user *SimulatedUser) error {
	if err := s.client.Get(ctx, "/questions?filter=newest", user.Token, nil); err != nil {
		return err
	}
	if err := s.client.Get(ctx, "/tags/popular", "", nil); err != nil {
		return err
	}
	if id, ok := s.randomQuestion(); ok {
		return s.client.Get(ctx, fmt.Sprintf("/questions/%s", id), user.Token, nil)
	}
	return nil
}

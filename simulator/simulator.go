// Package simulator drives a running engine over HTTP with a population of
// fake users who ask, answer, vote, save and edit questions concurrently.
package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"devoverflow/internal/utils"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type SimConfig struct {
	NumUsers       int
	SimulationTime time.Duration
	// Activity rates are actions per connected user per minute.
	AskFrequency    float64
	AnswerFrequency float64
	VoteFrequency   float64
	SaveFrequency   float64
	EditFrequency   float64
	BrowseFrequency float64
	// ZipfS skews tag choice so a few tags dominate.
	ZipfS             float64
	Workers           int
	RequestsPerSecond float64 // Zero disables the limiter
	TickInterval      time.Duration
	MetricsInterval   time.Duration
	EngineURL         string
}

func DefaultConfig() SimConfig {
	return SimConfig{
		NumUsers:          20,
		SimulationTime:    5 * time.Minute,
		AskFrequency:      2,
		AnswerFrequency:   4,
		VoteFrequency:     8,
		SaveFrequency:     1,
		EditFrequency:     0.5,
		BrowseFrequency:   10,
		ZipfS:             1.07,
		Workers:           5,
		RequestsPerSecond: 50,
		TickInterval:      500 * time.Millisecond,
		MetricsInterval:   10 * time.Second,
		EngineURL:         "http://localhost:8080",
	}
}

type SimulationStats struct {
	mu              sync.RWMutex
	StartTime       time.Time
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	AverageLatency  time.Duration
	TotalQuestions  int
	TotalAnswers    int
	TotalVotes      int
	TotalSaves      int
	TotalEdits      int
	ErrorsByKind    map[string]int
}

type SimulatedUser struct {
	ID        uuid.UUID
	Username  string
	Email     string
	Token     string
	Questions []uuid.UUID // Questions this user asked
}

type Simulator struct {
	config SimConfig
	stats  *SimulationStats
	client *Client
	logger *slog.Logger

	mu        sync.RWMutex
	users     []*SimulatedUser
	questions []uuid.UUID

	rngMu sync.Mutex
	rng   *rand.Rand
	zipf  *rand.Zipf
}

func NewSimulator(config SimConfig, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.TickInterval <= 0 {
		config.TickInterval = 500 * time.Millisecond
	}
	if config.MetricsInterval <= 0 {
		config.MetricsInterval = 10 * time.Second
	}
	if config.ZipfS <= 1 {
		config.ZipfS = 1.07
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	s := &Simulator{
		config: config,
		stats: &SimulationStats{
			StartTime:    time.Now(),
			ErrorsByKind: make(map[string]int),
		},
		logger: logger,
		rng:    rng,
		zipf:   rand.NewZipf(rng, config.ZipfS, 1, uint64(len(tagVocabulary)-1)),
	}
	s.client = NewClient(config.EngineURL, config.RequestsPerSecond, s.recordRequestMetrics)
	return s
}

// Run signs the users up and then generates activity until ctx ends.
func (s *Simulator) Run(ctx context.Context) error {
	s.logger.Info("starting simulation", "users", s.config.NumUsers, "engine", s.config.EngineURL)

	if err := s.createInitialUsers(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.SimulateActivities(ctx)
	}()
	go func() {
		defer wg.Done()
		s.collectMetrics(ctx)
	}()
	wg.Wait()
	return nil
}

func (s *Simulator) createInitialUsers(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)

	users := make([]*SimulatedUser, s.config.NumUsers)
	for i := range users {
		g.Go(func() error {
			user := newSimulatedUser(i)
			if err := s.signUp(gctx, user); err != nil {
				s.logger.Warn("failed to sign up user", "username", user.Username, utils.ErrAttr(err))
				return nil
			}
			users[i] = user
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	for _, u := range users {
		if u != nil {
			s.users = append(s.users, u)
		}
	}
	created := len(s.users)
	s.mu.Unlock()

	if created == 0 {
		return fmt.Errorf("no users could be created")
	}
	s.logger.Info("users created", "count", created)
	return nil
}

func newSimulatedUser(n int) *SimulatedUser {
	name := strings.ToLower(gofakeit.Username())
	if len(name) > 20 {
		name = name[:20]
	}
	username := fmt.Sprintf("%s_%d", name, n)
	return &SimulatedUser{
		Username: username,
		Email:    fmt.Sprintf("%s@sim.example.com", username),
	}
}

func (s *Simulator) signUp(ctx context.Context, user *SimulatedUser) error {
	const password = "simulated-pass"
	err := s.client.Do(ctx, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    user.Email,
		"password": password,
		"name":     gofakeit.Name(),
		"username": user.Username,
	}, nil)
	// An earlier run may have registered the same address.
	if err != nil && utils.AsAppError(err).Code != utils.ErrConflict {
		return err
	}

	var login struct {
		Token  string `json:"token"`
		UserID string `json:"userId"`
	}
	if err := s.client.Do(ctx, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    user.Email,
		"password": password,
	}, &login); err != nil {
		return err
	}

	id, err := uuid.Parse(login.UserID)
	if err != nil {
		return fmt.Errorf("invalid user ID returned: %w", err)
	}
	user.ID = id
	user.Token = login.Token
	return nil
}

func (s *Simulator) recordRequestMetrics(start time.Time, err error) {
	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()

	latency := time.Since(start)
	s.stats.TotalRequests++
	if err != nil {
		s.stats.FailedRequests++
		s.stats.ErrorsByKind[utils.AsAppError(err).Code]++
	} else {
		s.stats.SuccessRequests++
	}

	totalLatency := s.stats.AverageLatency * time.Duration(s.stats.TotalRequests-1)
	s.stats.AverageLatency = (totalLatency + latency) / time.Duration(s.stats.TotalRequests)
}

func (s *Simulator) collectMetrics(ctx context.Context) {
	ticker := time.NewTicker(s.config.MetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m := s.GetMetrics()
			s.logger.Info("simulation metrics",
				"elapsed", time.Since(s.stats.StartTime).Round(time.Second),
				"req_per_sec", fmt.Sprintf("%.2f", m.RequestsPerSecond),
				"avg_latency", m.AverageLatency,
				"questions", m.TotalQuestions,
				"answers", m.TotalAnswers,
				"votes", m.TotalVotes,
				"errors", m.ErrorCount,
			)
		}
	}
}

// SimulationMetrics is a point-in-time copy of the simulation counters.
type SimulationMetrics struct {
	TotalUsers        int
	TotalQuestions    int
	TotalAnswers      int
	TotalVotes        int
	TotalSaves        int
	TotalEdits        int
	AverageLatency    time.Duration
	ErrorCount        int
	ErrorsByKind      map[string]int
	RequestsPerSecond float64
}

func (s *Simulator) GetMetrics() SimulationMetrics {
	s.mu.RLock()
	users := len(s.users)
	s.mu.RUnlock()

	s.stats.mu.RLock()
	defer s.stats.mu.RUnlock()

	byKind := make(map[string]int, len(s.stats.ErrorsByKind))
	for k, v := range s.stats.ErrorsByKind {
		byKind[k] = v
	}
	elapsed := time.Since(s.stats.StartTime)
	return SimulationMetrics{
		TotalUsers:        users,
		TotalQuestions:    s.stats.TotalQuestions,
		TotalAnswers:      s.stats.TotalAnswers,
		TotalVotes:        s.stats.TotalVotes,
		TotalSaves:        s.stats.TotalSaves,
		TotalEdits:        s.stats.TotalEdits,
		AverageLatency:    s.stats.AverageLatency,
		ErrorCount:        int(s.stats.FailedRequests),
		ErrorsByKind:      byKind,
		RequestsPerSecond: float64(s.stats.TotalRequests) / elapsed.Seconds(),
	}
}

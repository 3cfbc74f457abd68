package app

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"prepmaster-service/internal/auth"
	"prepmaster-service/internal/events"
	"prepmaster-service/internal/metrics"
	"prepmaster-service/internal/scoring"
)

// Caller identifies who invokes a use case.
type Caller = auth.Principal

// Deps wires the service to its collaborators. Provider, Publisher, Metrics
// and Logger may be left nil.
type Deps struct {
	Questions QuestionStore
	Tests     TestStore
	Results   ResultStore
	Users     UserStore
	Resolved  TestRepository
	Feeds     FeedRepository
	Provider  QuestionProvider
	Tokens    *auth.Service
	Engine    scoring.Engine
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Logger    *zap.Logger

	// Bounds on a test's duration, in minutes.
	MinDuration int
	MaxDuration int

	Now   func() time.Time
	NewID func() string
}

// Service contains the exam platform use cases.
type Service struct {
	questions QuestionStore
	tests     TestStore
	results   ResultStore
	users     UserStore
	resolved  TestRepository
	feeds     FeedRepository
	provider  QuestionProvider
	tokens    *auth.Service
	engine    scoring.Engine
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *zap.Logger

	minDuration int
	maxDuration int

	now   func() time.Time
	newID func() string
}

func NewService(d Deps) *Service {
	s := &Service{
		questions:   d.Questions,
		tests:       d.Tests,
		results:     d.Results,
		users:       d.Users,
		resolved:    d.Resolved,
		feeds:       d.Feeds,
		provider:    d.Provider,
		tokens:      d.Tokens,
		engine:      d.Engine,
		publisher:   d.Publisher,
		metrics:     d.Metrics,
		log:         d.Logger,
		minDuration: d.MinDuration,
		maxDuration: d.MaxDuration,
		now:         d.Now,
		newID:       d.NewID,
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.minDuration == 0 {
		s.minDuration = 15
	}
	if s.maxDuration == 0 {
		s.maxDuration = 180
	}
	return s
}

// Engine exposes the scoring engine the service was built with.
func (s *Service) Engine() scoring.Engine {
	return s.engine
}

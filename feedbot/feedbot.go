package feedbot

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rapidos-social/go-rapidos/service/ai"
	"github.com/rapidos-social/go-rapidos/service/logger"
	"github.com/rapidos-social/go-rapidos/service/persist"
	sentryutil "github.com/rapidos-social/go-rapidos/service/sentry"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
)

// Feed is where generated content ends up
type Feed interface {
	AddPost(ctx context.Context, content string, isBotPost bool) error
	AddBotComment(ctx context.Context, postID persist.DBID, content string) error
}

type Config struct {
	WelcomeDelay   time.Duration
	FollowUpDelay  time.Duration
	FollowUpJitter time.Duration
	Personas       []persist.Persona
}

// Scheduler runs best-effort generated content tasks for the signed-in viewer. Tasks never
// block the caller, are never retried, and report failures to the log and Sentry only.
// Every task belongs to the current session and is cancelled by Reset.
type Scheduler struct {
	feed Feed
	gen  ai.Generator
	cfg  Config
	rand func() float64

	mu       sync.Mutex
	viewerID persist.DBID
	welcomed bool
	ctx      context.Context
	cancel   context.CancelFunc
	tasks    conc.WaitGroup
}

func NewScheduler(feed Feed, gen ai.Generator, cfg Config) *Scheduler {
	return &Scheduler{
		feed: feed,
		gen:  gen,
		cfg:  cfg,
		rand: rand.Float64,
	}
}

// FeedLoaded evaluates the welcome trigger after a successful load of postCount posts
func (s *Scheduler) FeedLoaded(ctx context.Context, viewer persist.Viewer, postCount int) {
	s.mu.Lock()
	sessionCtx := s.sessionLocked(viewer.ID)
	q := welcomeQuery{
		Viewer:      viewer,
		Welcomed:    s.welcomed,
		PersonaSize: len(s.cfg.Personas),
		PostCount:   postCount,
	}
	if !passes(q, welcomeCriteria) {
		s.mu.Unlock()
		return
	}
	// set before the delayed work so that loads during the delay do not schedule again
	s.welcomed = true
	persona := s.cfg.Personas[int(s.rand()*float64(len(s.cfg.Personas)))%len(s.cfg.Personas)]
	s.mu.Unlock()

	logger.For(ctx).Infof("scheduling welcome post from @%s for @%s", persona.Handle, viewer.Handle)
	s.spawn(sessionCtx, "welcome-post", viewer, s.cfg.WelcomeDelay, func(ctx context.Context) error {
		return s.welcome(ctx, viewer, persona)
	})
}

// ScheduleFollowUp queues a generated comment on target after a jittered delay
func (s *Scheduler) ScheduleFollowUp(ctx context.Context, viewer persist.Viewer, target persist.Post) {
	if !passes(followUpQuery{Viewer: viewer, Target: target}, followUpCriteria) {
		logger.For(ctx).Debugf("follow-up comment skipped for post %s", target.ID)
		return
	}

	s.mu.Lock()
	sessionCtx := s.sessionLocked(viewer.ID)
	delay := s.cfg.FollowUpDelay + time.Duration(s.rand()*float64(s.cfg.FollowUpJitter))
	s.mu.Unlock()

	s.spawn(sessionCtx, "follow-up-comment", viewer, delay, func(ctx context.Context) error {
		return s.followUp(ctx, target)
	})
}

// Reset ends the current session: pending tasks are cancelled and the welcome trigger is re-armed
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// Wait blocks until every started task has returned
func (s *Scheduler) Wait() {
	s.tasks.Wait()
}

func (s *Scheduler) resetLocked() {
	if s.cancel != nil {
		s.cancel()
	}
	s.ctx, s.cancel = nil, nil
	s.viewerID = ""
	s.welcomed = false
}

// sessionLocked returns the context of viewerID's session, starting a new session when the
// viewer changed
func (s *Scheduler) sessionLocked(viewerID persist.DBID) context.Context {
	if s.ctx != nil && s.viewerID == viewerID {
		return s.ctx
	}
	s.resetLocked()
	s.viewerID = viewerID
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s.ctx
}

func (s *Scheduler) spawn(sessionCtx context.Context, name string, viewer persist.Viewer, delay time.Duration, task func(context.Context) error) {
	ctx := logger.NewContextWithFields(sessionCtx, logrus.Fields{
		"task":   name,
		"viewer": viewer.Handle,
	})
	ctx = sentryutil.NewHubContext(ctx, &viewer)

	s.tasks.Go(func() {
		run(ctx, name, delay, task)
	})
}

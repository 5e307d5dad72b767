package feedbot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rapidos-social/go-rapidos/feed"
	"github.com/rapidos-social/go-rapidos/service/ai"
	"github.com/rapidos-social/go-rapidos/service/logger"
	"github.com/rapidos-social/go-rapidos/service/nhost"
	"github.com/rapidos-social/go-rapidos/service/nhost/nhosttest"
	"github.com/rapidos-social/go-rapidos/service/persist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCase struct {
	title string
	run   func(t *testing.T)
}

type recordedPost struct {
	content string
	isBot   bool
}

type recordedComment struct {
	postID  persist.DBID
	content string
}

type fakeFeed struct {
	mu       sync.Mutex
	posts    []recordedPost
	comments []recordedComment
	err      error
}

func (f *fakeFeed) AddPost(ctx context.Context, content string, isBotPost bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.posts = append(f.posts, recordedPost{content: content, isBot: isBotPost})
	return nil
}

func (f *fakeFeed) AddBotComment(ctx context.Context, postID persist.DBID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.comments = append(f.comments, recordedComment{postID: postID, content: content})
	return nil
}

func (f *fakeFeed) postCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

func echo(text string) ai.Generator {
	return ai.GeneratorFunc(func(ctx context.Context, prompt string) ai.Result {
		return ai.Success(text)
	})
}

func immediate(personas ...persist.Persona) Config {
	return Config{Personas: personas}
}

var (
	human   = persist.Viewer{Identity: persist.Identity{ID: "viewer", Handle: "alice"}}
	robot   = persist.Viewer{Identity: persist.Identity{ID: "robot", Handle: "robot", IsBot: true}}
	persona = persist.Persona{Name: "Bot Buddy", Handle: "botbuddy"}
)

func TestMain(t *testing.T) {
	logger.Discard()

	tests := []testCase{
		{title: "empty feed gets one welcome post per session", run: testWelcomeOnce},
		{title: "welcome prompt names the persona and the viewer", run: testWelcomePrompt},
		{title: "welcome needs an empty feed, a human viewer and personas", run: testWelcomeCriteria},
		{title: "failed generation creates no post", run: testWelcomeGenerationFailure},
		{title: "reset cancels pending tasks and re-arms the welcome", run: testResetCancels},
		{title: "switching viewers starts a new session", run: testViewerSwitch},
		{title: "follow-up comments on the target post", run: testFollowUp},
		{title: "follow-up never replies to the viewer's own post", run: testFollowUpSelfGuard},
		{title: "follow-up failures are swallowed", run: testFollowUpFailures},
		{title: "panicking tasks do not escape", run: testTaskPanics},
		{title: "welcome scenario against the synchronizer", run: testWelcomeScenario},
	}
	for _, test := range tests {
		t.Run(test.title, test.run)
	}
}

func testWelcomeOnce(t *testing.T) {
	f := &fakeFeed{}
	s := NewScheduler(f, echo("Welcome to the community! #hello"), immediate(persona))
	ctx := context.Background()

	s.FeedLoaded(ctx, human, 0)
	s.FeedLoaded(ctx, human, 0)
	s.Wait()
	s.FeedLoaded(ctx, human, 0)
	s.Wait()

	require.Len(t, f.posts, 1)
	assert.Equal(t, "Welcome to the community! #hello", f.posts[0].content)
	assert.True(t, f.posts[0].isBot)
}

func testWelcomePrompt(t *testing.T) {
	var prompt string
	gen := ai.GeneratorFunc(func(ctx context.Context, p string) ai.Result {
		prompt = p
		return ai.Success("hi")
	})
	s := NewScheduler(&fakeFeed{}, gen, immediate(persona))

	s.FeedLoaded(context.Background(), human, 0)
	s.Wait()

	assert.Contains(t, prompt, "@botbuddy")
	assert.Contains(t, prompt, "@alice")
}

func testWelcomeCriteria(t *testing.T) {
	ctx := context.Background()

	f := &fakeFeed{}
	s := NewScheduler(f, echo("hi"), immediate(persona))
	s.FeedLoaded(ctx, human, 3)
	s.FeedLoaded(ctx, robot, 0)
	s.Wait()
	assert.Empty(t, f.posts)

	f = &fakeFeed{}
	s = NewScheduler(f, echo("hi"), immediate())
	s.FeedLoaded(ctx, human, 0)
	s.Wait()
	assert.Empty(t, f.posts)
}

func testWelcomeGenerationFailure(t *testing.T) {
	f := &fakeFeed{}
	s := NewScheduler(f, ai.Unconfigured{}, immediate(persona))

	s.FeedLoaded(context.Background(), human, 0)
	s.Wait()
	s.FeedLoaded(context.Background(), human, 0)
	s.Wait()

	assert.Empty(t, f.posts)
}

func testResetCancels(t *testing.T) {
	var generated atomic.Int32
	gen := ai.GeneratorFunc(func(ctx context.Context, p string) ai.Result {
		generated.Add(1)
		return ai.Success("hi")
	})
	f := &fakeFeed{}
	s := NewScheduler(f, gen, Config{WelcomeDelay: time.Hour, FollowUpDelay: time.Hour, Personas: []persist.Persona{persona}})
	ctx := context.Background()

	s.FeedLoaded(ctx, human, 0)
	s.ScheduleFollowUp(ctx, human, persist.Post{ID: "p1", Author: persist.Identity{ID: "someone"}})
	s.Reset()

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "tasks were not cancelled")
	}
	assert.Equal(t, int32(0), generated.Load())
	assert.Empty(t, f.posts)

	// re-armed for the next session
	s.cfg.WelcomeDelay = 0
	s.FeedLoaded(ctx, human, 0)
	s.Wait()
	assert.Len(t, f.posts, 1)
}

func testViewerSwitch(t *testing.T) {
	f := &fakeFeed{}
	s := NewScheduler(f, echo("hi"), immediate(persona))
	ctx := context.Background()
	other := persist.Viewer{Identity: persist.Identity{ID: "other", Handle: "bob"}}

	s.FeedLoaded(ctx, human, 0)
	s.Wait()
	s.FeedLoaded(ctx, other, 0)
	s.Wait()

	assert.Len(t, f.posts, 2)
}

func testFollowUp(t *testing.T) {
	var prompt string
	gen := ai.GeneratorFunc(func(ctx context.Context, p string) ai.Result {
		prompt = p
		return ai.Success("Great point! 👍")
	})
	f := &fakeFeed{}
	s := NewScheduler(f, gen, immediate())
	target := persist.Post{ID: "p1", Content: "Pineapple belongs on pizza", Author: persist.Identity{ID: "bob", Handle: "bob"}}

	s.ScheduleFollowUp(context.Background(), human, target)
	s.Wait()

	require.Len(t, f.comments, 1)
	assert.Equal(t, recordedComment{postID: "p1", content: "Great point! 👍"}, f.comments[0])
	assert.Contains(t, prompt, "@bob")
	assert.Contains(t, prompt, "Pineapple belongs on pizza")
}

func testFollowUpSelfGuard(t *testing.T) {
	var generated atomic.Int32
	gen := ai.GeneratorFunc(func(ctx context.Context, p string) ai.Result {
		generated.Add(1)
		return ai.Success("hi")
	})
	f := &fakeFeed{}
	s := NewScheduler(f, gen, immediate())

	for i := 0; i < 20; i++ {
		s.ScheduleFollowUp(context.Background(), human, persist.Post{ID: "p1", Author: human.Identity})
	}
	s.Wait()

	assert.Empty(t, f.comments)
	assert.Equal(t, int32(0), generated.Load())
}

func testFollowUpFailures(t *testing.T) {
	target := persist.Post{ID: "p1", Author: persist.Identity{ID: "bob"}}

	f := &fakeFeed{}
	s := NewScheduler(f, ai.GeneratorFunc(func(ctx context.Context, p string) ai.Result {
		return ai.Failure(errors.New("quota exceeded"))
	}), immediate())
	s.ScheduleFollowUp(context.Background(), human, target)
	s.Wait()
	assert.Empty(t, f.comments)

	f = &fakeFeed{err: errors.New("post was deleted")}
	s = NewScheduler(f, echo("hi"), immediate())
	s.ScheduleFollowUp(context.Background(), human, target)
	s.Wait()
	assert.Empty(t, f.comments)
}

func testTaskPanics(t *testing.T) {
	s := NewScheduler(&fakeFeed{}, ai.GeneratorFunc(func(ctx context.Context, p string) ai.Result {
		panic("generator exploded")
	}), immediate(persona))

	s.FeedLoaded(context.Background(), human, 0)
	assert.NotPanics(t, s.Wait)
}

func testWelcomeScenario(t *testing.T) {
	backend := nhosttest.NewBackend()
	me := nhost.AuthUser{ID: persist.GenerateID(), DisplayName: "Alice", Metadata: map[string]any{"actualUsername": "alice"}}
	backend.AddUser(me)

	synchronizer := feed.NewSynchronizer(backend)
	s := NewScheduler(synchronizer, echo("Say hi to @alice, everyone! #welcome"), immediate(persona))
	synchronizer.SetBotAssist(s)
	viewer := feed.MapViewer(me)
	synchronizer.SetViewer(&viewer)
	ctx := context.Background()

	require.NoError(t, synchronizer.Load(ctx))
	s.Wait()

	v := synchronizer.View()
	require.Len(t, v.Posts, 1)
	post := v.Posts[0]
	assert.Equal(t, me.ID, post.Author.ID)
	assert.True(t, post.IsBotPost)
	assert.NotEmpty(t, post.Content)
	assert.False(t, strings.HasPrefix(post.Content, "Error:"))

	// the reload after the welcome post sees a non-empty feed and stays quiet
	require.NoError(t, synchronizer.Load(ctx))
	s.Wait()
	assert.Equal(t, 1, backend.Posts())
}

package feed

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/rapidos-social/go-rapidos/service/logger"
	"github.com/rapidos-social/go-rapidos/service/nhost"
	"github.com/rapidos-social/go-rapidos/service/persist"
	"github.com/rapidos-social/go-rapidos/service/throttle"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// DefaultFollowUpChance is the probability that commenting on someone else's post schedules a
// generated follow-up comment
const DefaultFollowUpChance = 0.15

const loadFailedMessage = "Could not load posts."

var (
	ErrNotSignedIn  = errors.New("no viewer is signed in")
	ErrEmptyContent = errors.New("content must not be empty")
)

// Backend is the data API the synchronizer reads from and writes to
type Backend interface {
	LikeReader
	GetPosts(ctx context.Context) ([]nhost.PostRecord, error)
	GetPostByID(ctx context.Context, postID persist.DBID) (*nhost.PostRecord, error)
	InsertPost(ctx context.Context, post nhost.NewPost) (persist.DBID, error)
	InsertComment(ctx context.Context, comment nhost.NewComment) (nhost.CommentRecord, error)
	InsertLike(ctx context.Context, postID, userID persist.DBID) error
	DeleteLike(ctx context.Context, postID, userID persist.DBID) error
}

// BotAssist is told about feed activity that may trigger generated content
type BotAssist interface {
	FeedLoaded(ctx context.Context, viewer persist.Viewer, postCount int)
	ScheduleFollowUp(ctx context.Context, viewer persist.Viewer, target persist.Post)
}

// View is a read-only snapshot of the synchronizer's state for presentation
type View struct {
	Viewer  *persist.Viewer `json:"viewer"`
	Posts   []persist.Post  `json:"posts"`
	Focused *persist.Post   `json:"focused"`
	Loading bool            `json:"loading"`
	Message string          `json:"message"`
}

type Option func(*Synchronizer)

// WithRand replaces the source of the follow-up roll. f must return values in [0, 1).
func WithRand(f func() float64) Option {
	return func(s *Synchronizer) {
		s.rand = f
	}
}

func WithFollowUpChance(p float64) Option {
	return func(s *Synchronizer) {
		s.followUpChance = p
	}
}

// WithLocker serializes like toggles per post through l
func WithLocker(l *throttle.Locker) Option {
	return func(s *Synchronizer) {
		s.locker = l
	}
}

// Synchronizer keeps the viewer's working set of posts consistent with the backend. Every
// mutation is followed by a full reload; counts and like flags are only ever taken from a read.
type Synchronizer struct {
	backend        Backend
	likes          *LikeResolver
	locker         *throttle.Locker
	rand           func() float64
	followUpChance float64
	refreshes      singleflight.Group

	mu       sync.Mutex
	bots     BotAssist
	viewer   *persist.Viewer
	session  uint64
	loadSeq  uint64
	applied  uint64
	inflight int
	posts    []persist.Post
	focused  *persist.Post
	message  string
}

func NewSynchronizer(backend Backend, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		backend:        backend,
		likes:          NewLikeResolver(backend),
		locker:         throttle.NewThrottleLocker(0),
		rand:           rand.Float64,
		followUpChance: DefaultFollowUpChance,
		posts:          []persist.Post{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synchronizer) SetBotAssist(b BotAssist) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bots = b
}

// SetViewer switches the session to v. A nil viewer empties the working set.
func (s *Synchronizer) SetViewer(v *persist.Viewer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session++
	s.focused = nil
	if v == nil {
		s.viewer = nil
		s.posts = []persist.Post{}
		return
	}
	cpy := *v
	s.viewer = &cpy
}

func (s *Synchronizer) Viewer() (persist.Viewer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.viewer == nil {
		return persist.Viewer{}, false
	}
	return *s.viewer, true
}

func (s *Synchronizer) SetMessage(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = msg
}

// View returns a deep copy of the current state
func (s *Synchronizer) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Posts:   make([]persist.Post, len(s.posts)),
		Loading: s.inflight > 0,
		Message: s.message,
	}
	for i, p := range s.posts {
		v.Posts[i] = p.Clone()
	}
	if s.viewer != nil {
		cpy := *s.viewer
		v.Viewer = &cpy
	}
	if s.focused != nil {
		cpy := s.focused.Clone()
		v.Focused = &cpy
	}
	return v
}

// Load replaces the working set with a fresh read of every post. On failure the previous
// working set is kept and the failure becomes the visible message.
func (s *Synchronizer) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.viewer == nil {
		s.posts = []persist.Post{}
		s.mu.Unlock()
		return nil
	}
	viewer := *s.viewer
	session := s.session
	s.loadSeq++
	seq := s.loadSeq
	s.inflight++
	s.mu.Unlock()

	posts, err := s.fetchAll(ctx, viewer.ID)

	s.mu.Lock()
	s.inflight--
	if s.session != session {
		// signed out or switched accounts while the read was in flight
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.message = err.Error()
		if s.message == "" {
			s.message = loadFailedMessage
		}
		s.mu.Unlock()
		logger.For(ctx).Errorf("error fetching posts: %s", err)
		return err
	}
	if seq <= s.applied {
		// a newer load already landed; this result describes an older feed
		s.mu.Unlock()
		logger.For(ctx).Debugf("discarding stale load of %d posts", len(posts))
		return nil
	}
	s.applied = seq
	s.posts = posts
	bots := s.bots
	s.mu.Unlock()

	logger.For(ctx).Debugf("loaded %d posts for %s", len(posts), viewer.ID)

	if bots != nil {
		bots.FeedLoaded(ctx, viewer, len(posts))
	}
	return nil
}

func (s *Synchronizer) fetchAll(ctx context.Context, viewerID persist.DBID) ([]persist.Post, error) {
	records, err := s.backend.GetPosts(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]persist.DBID, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}

	liked, err := s.likes.Resolve(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	posts := make([]persist.Post, len(records))
	for i, r := range records {
		posts[i] = MapPost(r, liked)
	}
	return posts, nil
}

// AddPost creates a post by the viewer and reloads. Bot-origin posts report failures only to
// the log.
func (s *Synchronizer) AddPost(ctx context.Context, content string, isBotPost bool) error {
	viewer, ok := s.Viewer()
	if !ok {
		return ErrNotSignedIn
	}
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}

	_, err := s.backend.InsertPost(ctx, nhost.NewPost{
		UserID:    viewer.ID,
		Content:   content,
		IsBotPost: isBotPost,
	})
	if err != nil {
		if isBotPost {
			logger.For(ctx).Errorf("error adding generated post by @%s: %s", viewer.Handle, err)
		} else {
			logger.For(ctx).Errorf("error adding post: %s", err)
			s.SetMessage(fmt.Sprintf("Failed to add post: %s", err))
		}
		return err
	}

	return s.Load(ctx)
}

// ToggleLike likes or unlikes postID depending on the cached like flag. Unknown posts are
// ignored. A toggle of a post whose previous toggle is still running returns
// throttle.ErrThrottleLocked without touching the backend.
func (s *Synchronizer) ToggleLike(ctx context.Context, postID persist.DBID) error {
	viewer, ok := s.Viewer()
	if !ok {
		return ErrNotSignedIn
	}

	key := fmt.Sprintf("like:%s:%s", viewer.ID, postID)
	if err := s.locker.Lock(ctx, key); err != nil {
		logger.For(ctx).Debugf("dropping like toggle for %s: %s", postID, err)
		return err
	}
	defer s.locker.Unlock(ctx, key)

	cached, ok := s.cachedPost(postID, true)
	if !ok {
		return nil
	}

	var err error
	if cached.LikedByViewer {
		err = s.backend.DeleteLike(ctx, postID, viewer.ID)
	} else {
		err = s.backend.InsertLike(ctx, postID, viewer.ID)
	}
	switch {
	case err == nil:
	case !cached.LikedByViewer && nhost.ErrorCode(err) == nhost.CodeConstraintViolation:
		// liked elsewhere since the last read; the reload picks it up
		logger.For(ctx).WithField("postID", postID).Debug("like already exists, reloading")
	default:
		logger.For(ctx).WithFields(logrus.Fields{"postID": postID, "liked": cached.LikedByViewer}).Errorf("error toggling like: %s", err)
		s.SetMessage(fmt.Sprintf("Failed to update like: %s", err))
		return err
	}

	err = s.Load(ctx)
	s.refreshFocused(ctx, postID)
	return err
}

// AddComment comments on postID as the viewer and reloads. When the post belongs to someone
// else, a generated follow-up comment is scheduled with probability followUpChance.
func (s *Synchronizer) AddComment(ctx context.Context, postID persist.DBID, content string) error {
	viewer, ok := s.Viewer()
	if !ok {
		return ErrNotSignedIn
	}
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}

	// the follow-up is computed against the post as it was before this comment
	target, found := s.cachedPost(postID, false)

	_, err := s.backend.InsertComment(ctx, nhost.NewComment{
		PostID:  postID,
		UserID:  viewer.ID,
		Content: content,
	})
	if err != nil {
		logger.For(ctx).WithField("postID", postID).Errorf("error adding comment: %s", err)
		s.SetMessage(fmt.Sprintf("Failed to add comment: %s", err))
		return err
	}

	err = s.Load(ctx)
	s.refreshFocused(ctx, postID)

	if found && target.Author.ID != viewer.ID && s.rand() < s.followUpChance {
		s.mu.Lock()
		bots := s.bots
		s.mu.Unlock()
		if bots != nil {
			logger.For(ctx).Debugf("scheduling follow-up comment on %s", postID)
			bots.ScheduleFollowUp(ctx, viewer, target)
		}
	}

	return err
}

// AddBotComment adds a generated comment by the viewer. Failures are logged, never shown.
func (s *Synchronizer) AddBotComment(ctx context.Context, postID persist.DBID, content string) error {
	viewer, ok := s.Viewer()
	if !ok {
		return ErrNotSignedIn
	}
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}

	_, err := s.backend.InsertComment(ctx, nhost.NewComment{
		PostID:       postID,
		UserID:       viewer.ID,
		Content:      content,
		IsBotComment: true,
	})
	if err != nil {
		logger.For(ctx).WithField("postID", postID).Errorf("error adding generated comment: %s", err)
		return err
	}

	err = s.Load(ctx)
	s.refreshFocused(ctx, postID)
	return err
}

// OpenFocusedPost focuses postID, preferring a fresh read and falling back to the cached post
func (s *Synchronizer) OpenFocusedPost(ctx context.Context, postID persist.DBID) (persist.Post, error) {
	cached, found := s.cachedPost(postID, true)

	post := s.RefreshPost(ctx, postID)
	if post == nil {
		if !found {
			return persist.Post{}, persist.ErrPostNotFoundByID{ID: postID}
		}
		post = &cached
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	focused := post.Clone()
	s.focused = &focused
	return post.Clone(), nil
}

func (s *Synchronizer) CloseFocusedPost() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focused = nil
}

func (s *Synchronizer) refreshFocused(ctx context.Context, postID persist.DBID) {
	s.mu.Lock()
	isFocused := s.focused != nil && s.focused.ID == postID
	s.mu.Unlock()
	if !isFocused {
		return
	}

	fresh := s.RefreshPost(ctx, postID)
	if fresh == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.focused != nil && s.focused.ID == postID {
		s.focused = fresh
	}
}

// cachedPost finds postID in the working set and, if includeFocused, the focused post
func (s *Synchronizer) cachedPost(postID persist.DBID, includeFocused bool) (persist.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.posts {
		if p.ID == postID {
			return p.Clone(), true
		}
	}
	if includeFocused && s.focused != nil && s.focused.ID == postID {
		return s.focused.Clone(), true
	}
	return persist.Post{}, false
}

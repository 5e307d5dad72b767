// Package nhosttest provides an in-memory stand-in for the backend's data API and auth
// service. It keeps the same relational rules as the real schema (foreign keys, the
// (post_id, user_id) primary key on likes) so that callers see the same failures.
package nhosttest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rapidos-social/go-rapidos/service/nhost"
	"github.com/rapidos-social/go-rapidos/service/persist"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// Operation names, matching the GraphQL operations of nhost.Client
const (
	OpGetPosts    = "GetPosts"
	OpGetPostByID = "GetPostById"
	OpGetLikes    = "GetUserLikesForPosts"
	OpAddPost     = "AddPost"
	OpAddComment  = "AddComment"
	OpLikePost    = "LikePost"
	OpUnlikePost  = "UnlikePost"
)

var epoch = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

type post struct {
	id        persist.DBID
	userID    persist.DBID
	content   string
	imageURL  *string
	createdAt time.Time
	isBot     bool
}

type comment struct {
	id        persist.DBID
	postID    persist.DBID
	userID    persist.DBID
	content   string
	createdAt time.Time
	isBot     bool
}

type Backend struct {
	mu       sync.Mutex
	users    map[persist.DBID]nhost.UserRecord
	posts    map[persist.DBID]post
	comments []comment
	likes    map[persist.Like]bool
	tick     int
	calls    map[string]int
	failures map[string]error
}

func NewBackend() *Backend {
	return &Backend{
		users:    make(map[persist.DBID]nhost.UserRecord),
		posts:    make(map[persist.DBID]post),
		likes:    make(map[persist.Like]bool),
		calls:    make(map[string]int),
		failures: make(map[string]error),
	}
}

// AddUser registers an account so posts and comments can reference it
func (b *Backend) AddUser(u nhost.AuthUser) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addUserLocked(u)
}

func (b *Backend) addUserLocked(u nhost.AuthUser) {
	id := u.ID.String()
	rec := nhost.UserRecord{ID: &id, Metadata: u.Metadata}
	if u.DisplayName != "" {
		rec.DisplayName = &u.DisplayName
	}
	if u.AvatarURL != "" {
		rec.AvatarURL = &u.AvatarURL
	}
	b.users[u.ID] = rec
}

// SeedPost inserts a post directly, bypassing call counting and failure injection
func (b *Backend) SeedPost(userID persist.DBID, content string) persist.DBID {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := post{id: persist.GenerateID(), userID: userID, content: content, createdAt: b.nextTime()}
	b.posts[p.id] = p
	return p.id
}

// Fail makes every subsequent call of op return err until Recover is called
// SeedLike records userID's like of postID without counting a call
func (b *Backend) SeedLike(postID, userID persist.DBID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.likes[persist.Like{PostID: postID, UserID: userID}] = true
}

func (b *Backend) Fail(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[op] = err
}

func (b *Backend) Recover(op string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, op)
}

// Calls returns how many times op has been invoked
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// Posts returns the number of stored posts
func (b *Backend) Posts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.posts)
}

// Comments returns the stored comments of a post in insertion order
func (b *Backend) Comments(postID persist.DBID) []nhost.CommentRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []nhost.CommentRecord
	for _, c := range b.comments {
		if c.postID == postID {
			out = append(out, b.commentRecord(c))
		}
	}
	return out
}

func (b *Backend) GetPosts(ctx context.Context) ([]nhost.PostRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpGetPosts); err != nil {
		return nil, err
	}

	posts := make([]post, 0, len(b.posts))
	for _, p := range b.posts {
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].createdAt.After(posts[j].createdAt) })

	out := make([]nhost.PostRecord, len(posts))
	for i, p := range posts {
		out[i] = b.postRecord(p)
	}
	return out, nil
}

func (b *Backend) GetPostByID(ctx context.Context, postID persist.DBID) (*nhost.PostRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpGetPostByID); err != nil {
		return nil, err
	}

	p, ok := b.posts[postID]
	if !ok {
		return nil, nil
	}
	rec := b.postRecord(p)
	return &rec, nil
}

func (b *Backend) GetLikedPostIDs(ctx context.Context, userID persist.DBID, postIDs []persist.DBID) ([]persist.DBID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpGetLikes); err != nil {
		return nil, err
	}

	liked := []persist.DBID{}
	for _, id := range postIDs {
		if b.likes[persist.Like{PostID: id, UserID: userID}] {
			liked = append(liked, id)
		}
	}
	return liked, nil
}

func (b *Backend) InsertPost(ctx context.Context, in nhost.NewPost) (persist.DBID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpAddPost); err != nil {
		return "", err
	}
	if _, ok := b.users[in.UserID]; !ok {
		return "", constraintViolation(OpAddPost, "foreign key violation on posts.user_id")
	}

	p := post{
		id:        persist.GenerateID(),
		userID:    in.UserID,
		content:   in.Content,
		imageURL:  in.ImageURL,
		createdAt: b.nextTime(),
		isBot:     in.IsBotPost,
	}
	b.posts[p.id] = p
	return p.id, nil
}

func (b *Backend) InsertComment(ctx context.Context, in nhost.NewComment) (nhost.CommentRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpAddComment); err != nil {
		return nhost.CommentRecord{}, err
	}
	if _, ok := b.posts[in.PostID]; !ok {
		return nhost.CommentRecord{}, constraintViolation(OpAddComment, "foreign key violation on comments.post_id")
	}
	if _, ok := b.users[in.UserID]; !ok {
		return nhost.CommentRecord{}, constraintViolation(OpAddComment, "foreign key violation on comments.user_id")
	}

	c := comment{
		id:        persist.GenerateID(),
		postID:    in.PostID,
		userID:    in.UserID,
		content:   in.Content,
		createdAt: b.nextTime(),
		isBot:     in.IsBotComment,
	}
	b.comments = append(b.comments, c)
	return b.commentRecord(c), nil
}

func (b *Backend) InsertLike(ctx context.Context, postID, userID persist.DBID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpLikePost); err != nil {
		return err
	}
	if _, ok := b.posts[postID]; !ok {
		return constraintViolation(OpLikePost, "foreign key violation on post_likes.post_id")
	}

	key := persist.Like{PostID: postID, UserID: userID}
	if b.likes[key] {
		return constraintViolation(OpLikePost, "Uniqueness violation. duplicate key value violates unique constraint \"post_likes_pkey\"")
	}
	b.likes[key] = true
	return nil
}

func (b *Backend) DeleteLike(ctx context.Context, postID, userID persist.DBID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpUnlikePost); err != nil {
		return err
	}
	delete(b.likes, persist.Like{PostID: postID, UserID: userID})
	return nil
}

func (b *Backend) begin(op string) error {
	b.calls[op]++
	if err := b.failures[op]; err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (b *Backend) nextTime() time.Time {
	b.tick++
	return epoch.Add(time.Duration(b.tick) * time.Second)
}

func (b *Backend) userRecord(id persist.DBID) *nhost.UserRecord {
	u, ok := b.users[id]
	if !ok {
		return nil
	}
	metadata := make(map[string]any, len(u.Metadata))
	for k, v := range u.Metadata {
		metadata[k] = v
	}
	u.Metadata = metadata
	return &u
}

func (b *Backend) commentRecord(c comment) nhost.CommentRecord {
	isBot := c.isBot
	return nhost.CommentRecord{
		ID:           c.id,
		Content:      c.content,
		CreatedAt:    c.createdAt,
		IsBotComment: &isBot,
		User:         b.userRecord(c.userID),
	}
}

func (b *Backend) postRecord(p post) nhost.PostRecord {
	comments := []nhost.CommentRecord{}
	for _, c := range b.comments {
		if c.postID == p.id {
			comments = append(comments, b.commentRecord(c))
		}
	}
	sort.SliceStable(comments, func(i, j int) bool { return comments[i].CreatedAt.Before(comments[j].CreatedAt) })

	likes := 0
	for l := range b.likes {
		if l.PostID == p.id {
			likes++
		}
	}

	isBot := p.isBot
	return nhost.PostRecord{
		ID:                p.id,
		Content:           p.content,
		ImageURL:          p.imageURL,
		CreatedAt:         p.createdAt,
		IsBotPost:         &isBot,
		User:              b.userRecord(p.userID),
		CommentsAggregate: nhost.NewAggregate(len(comments)),
		Comments:          comments,
		LikesAggregate:    nhost.NewAggregate(likes),
	}
}

func constraintViolation(op, msg string) error {
	return fmt.Errorf("%s: %w", op, gqlerror.List{{
		Message:    msg,
		Extensions: map[string]any{"code": "constraint-violation"},
	}})
}

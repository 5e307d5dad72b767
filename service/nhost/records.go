package nhost

import (
	"time"

	"github.com/rapidos-social/go-rapidos/service/persist"
)

// UserRecord is the account shape nested in post and comment reads. Any field may be absent.
type UserRecord struct {
	ID          *string        `json:"id"`
	DisplayName *string        `json:"displayName"`
	AvatarURL   *string        `json:"avatarUrl"`
	Metadata    map[string]any `json:"metadata"`
}

// AggregateRecord is Hasura's `<relation>_aggregate { aggregate { count } }` shape
type AggregateRecord struct {
	Aggregate *struct {
		Count int `json:"count"`
	} `json:"aggregate"`
}

// Count returns the aggregate count, treating any missing level as zero
func (a *AggregateRecord) Count() int {
	if a == nil || a.Aggregate == nil {
		return 0
	}
	return a.Aggregate.Count
}

func NewAggregate(count int) *AggregateRecord {
	a := &AggregateRecord{}
	a.Aggregate = &struct {
		Count int `json:"count"`
	}{Count: count}
	return a
}

type CommentRecord struct {
	ID           persist.DBID `json:"id"`
	Content      string       `json:"content"`
	CreatedAt    time.Time    `json:"created_at"`
	IsBotComment *bool        `json:"is_bot_comment"`
	User         *UserRecord  `json:"user"`
}

type PostRecord struct {
	ID                persist.DBID     `json:"id"`
	Content           string           `json:"content"`
	ImageURL          *string          `json:"image_url"`
	CreatedAt         time.Time        `json:"created_at"`
	IsBotPost         *bool            `json:"is_bot_post"`
	User              *UserRecord      `json:"user"`
	CommentsAggregate *AggregateRecord `json:"comments_aggregate"`
	Comments          []CommentRecord  `json:"comments"`
	LikesAggregate    *AggregateRecord `json:"likes_aggregate"`
}

// NewPost is the input of the create-post mutation
type NewPost struct {
	UserID    persist.DBID `json:"userId"`
	Content   string       `json:"content"`
	ImageURL  *string      `json:"imageUrl"`
	IsBotPost bool         `json:"isBotPost"`
}

// NewComment is the input of the create-comment mutation
type NewComment struct {
	PostID       persist.DBID `json:"postId"`
	UserID       persist.DBID `json:"userId"`
	Content      string       `json:"content"`
	IsBotComment bool         `json:"isBotComment"`
}

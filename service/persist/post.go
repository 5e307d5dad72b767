package persist

import (
	"fmt"
	"time"
)

// Post is a display entity derived from a single read of the backend. LikeCount, CommentCount
// and LikedByViewer are re-derived on every fetch and are never adjusted locally.
type Post struct {
	ID            DBID      `json:"id"`
	Content       string    `json:"content"`
	ImageURL      string    `json:"imageUrl"`
	CreatedAt     time.Time `json:"createdAt"`
	IsBotPost     bool      `json:"isBotPost"`
	Author        Identity  `json:"user"`
	LikeCount     int       `json:"likeCount"`
	CommentCount  int       `json:"commentCount"`
	Comments      []Comment `json:"comments"`
	LikedByViewer bool      `json:"isLikedByCurrentUser"`
}

// Clone returns a copy of the post that shares no memory with the receiver
func (p Post) Clone() Post {
	cpy := p
	cpy.Comments = make([]Comment, len(p.Comments))
	copy(cpy.Comments, p.Comments)
	return cpy
}

// Like is the (post, account) relationship. Its existence means "liked".
type Like struct {
	PostID DBID `json:"post_id"`
	UserID DBID `json:"user_id"`
}

type ErrPostNotFoundByID struct {
	ID DBID
}

func (e ErrPostNotFoundByID) Error() string {
	return fmt.Sprintf("post not found by id: %s", e.ID)
}

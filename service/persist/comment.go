package persist

import (
	"time"
)

// Comment is created through the feed and never edited or deleted afterwards
type Comment struct {
	ID           DBID      `json:"id"`
	PostID       DBID      `json:"postId"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"createdAt"`
	IsBotComment bool      `json:"isBotComment"`
	Author       Identity  `json:"user"`
}

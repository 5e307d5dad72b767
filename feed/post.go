package feed

import (
	"context"
	"fmt"

	"github.com/rapidos-social/go-rapidos/service/logger"
	"github.com/rapidos-social/go-rapidos/service/persist"
)

// RefreshPost reads a single post with its comments and the viewer's like. It returns nil
// when there is no viewer, the read fails or the post does not exist; callers keep what they had.
// Concurrent refreshes of the same post share one read.
func (s *Synchronizer) RefreshPost(ctx context.Context, postID persist.DBID) *persist.Post {
	viewer, ok := s.Viewer()
	if !ok {
		return nil
	}

	key := fmt.Sprintf("%s:%s", viewer.ID, postID)
	v, _, _ := s.refreshes.Do(key, func() (any, error) {
		return s.readPost(ctx, viewer, postID), nil
	})

	p, _ := v.(*persist.Post)
	if p == nil {
		return nil
	}
	cpy := p.Clone()
	return &cpy
}

func (s *Synchronizer) readPost(ctx context.Context, viewer persist.Viewer, postID persist.DBID) *persist.Post {
	r, err := s.backend.GetPostByID(ctx, postID)
	if err != nil {
		logger.For(ctx).WithField("postID", postID).Errorf("error fetching post: %s", err)
		return nil
	}
	if r == nil {
		return nil
	}

	liked, err := s.likes.Resolve(ctx, viewer.ID, []persist.DBID{postID})
	if err != nil {
		logger.For(ctx).WithField("postID", postID).Errorf("error resolving like for post: %s", err)
		return nil
	}

	p := MapPost(*r, liked)
	return &p
}

package feed

import (
	"context"

	"github.com/rapidos-social/go-rapidos/service/persist"
)

// LikeReader is the part of the data API that answers which posts an account has liked
type LikeReader interface {
	GetLikedPostIDs(ctx context.Context, userID persist.DBID, postIDs []persist.DBID) ([]persist.DBID, error)
}

type LikeResolver struct {
	reader LikeReader
}

func NewLikeResolver(reader LikeReader) *LikeResolver {
	return &LikeResolver{reader: reader}
}

// Resolve returns which of postIDs the viewer has liked. An empty postIDs never reaches the
// backend. Errors are returned to the caller, which treats them as a failed read.
func (r *LikeResolver) Resolve(ctx context.Context, viewerID persist.DBID, postIDs []persist.DBID) (LikeSet, error) {
	if len(postIDs) == 0 {
		return NewLikeSet(), nil
	}

	liked, err := r.reader.GetLikedPostIDs(ctx, viewerID, postIDs)
	if err != nil {
		return nil, err
	}

	return NewLikeSet(liked...), nil
}

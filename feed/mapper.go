package feed

import (
	"strings"

	"github.com/rapidos-social/go-rapidos/service/nhost"
	"github.com/rapidos-social/go-rapidos/service/persist"
)

const (
	unknownPostAuthorID    persist.DBID = "unknown_user_id"
	unknownCommentAuthorID persist.DBID = "unknown_comment_user_id"
	unknownName                         = "Unknown User"
	unknownHandle                       = "unknownuser"
	fallbackHandle                      = "user"
	anonymousName                       = "Anonymous"
)

// LikeSet is the set of post ids the viewer has liked
type LikeSet map[persist.DBID]struct{}

func NewLikeSet(ids ...persist.DBID) LikeSet {
	s := make(LikeSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s LikeSet) Has(id persist.DBID) bool {
	_, ok := s[id]
	return ok
}

// MapPost flattens a post read into a display entity. Missing fields are filled with defaults.
func MapPost(r nhost.PostRecord, liked LikeSet) persist.Post {
	p := persist.Post{
		ID:            r.ID,
		Content:       r.Content,
		CreatedAt:     r.CreatedAt,
		IsBotPost:     boolOr(r.IsBotPost),
		Author:        MapIdentity(r.User, unknownPostAuthorID),
		LikeCount:     r.LikesAggregate.Count(),
		CommentCount:  r.CommentsAggregate.Count(),
		Comments:      make([]persist.Comment, 0, len(r.Comments)),
		LikedByViewer: liked.Has(r.ID),
	}
	if r.ImageURL != nil {
		p.ImageURL = *r.ImageURL
	}
	for _, c := range r.Comments {
		p.Comments = append(p.Comments, MapComment(c, r.ID))
	}
	return p
}

func MapComment(r nhost.CommentRecord, postID persist.DBID) persist.Comment {
	return persist.Comment{
		ID:           r.ID,
		PostID:       postID,
		Content:      r.Content,
		CreatedAt:    r.CreatedAt,
		IsBotComment: boolOr(r.IsBotComment),
		Author:       MapIdentity(r.User, unknownCommentAuthorID),
	}
}

// MapIdentity snapshots an account. A nil record maps to the unknown identity with fallbackID.
func MapIdentity(r *nhost.UserRecord, fallbackID persist.DBID) persist.Identity {
	if r == nil {
		return persist.Identity{
			ID:        fallbackID,
			Name:      unknownName,
			Handle:    unknownHandle,
			AvatarURL: persist.DefaultAvatarURL,
		}
	}

	displayName := stringOr(r.DisplayName)
	id := persist.DBID(stringOr(r.ID))
	if id == "" {
		id = fallbackID
	}
	name := displayName
	if name == "" {
		name = unknownName
	}
	avatar := stringOr(r.AvatarURL)
	if avatar == "" {
		avatar = persist.DefaultAvatarURL
	}

	return persist.Identity{
		ID:        id,
		Name:      name,
		Handle:    handleFor(r.Metadata, displayName),
		AvatarURL: avatar,
		IsBot:     metadataBool(r.Metadata, "isBot"),
	}
}

// MapViewer snapshots the signed-in account
func MapViewer(u nhost.AuthUser) persist.Viewer {
	name := u.DisplayName
	if name == "" {
		name = anonymousName
	}
	avatar := u.AvatarURL
	if avatar == "" {
		avatar = persist.DefaultAvatarURL
	}
	return persist.Viewer{
		Identity: persist.Identity{
			ID:        u.ID,
			Name:      name,
			Handle:    handleFor(u.Metadata, u.DisplayName),
			AvatarURL: avatar,
			IsBot:     metadataBool(u.Metadata, "isBot"),
		},
		Email: u.Email,
	}
}

// handleFor prefers the handle chosen at sign up, then the display name with whitespace removed
func handleFor(metadata map[string]any, displayName string) string {
	if h, ok := metadata["actualUsername"].(string); ok && h != "" {
		return h
	}
	if h := strings.ToLower(strings.Join(strings.Fields(displayName), "")); h != "" {
		return h
	}
	return fallbackHandle
}

func metadataBool(metadata map[string]any, key string) bool {
	b, _ := metadata[key].(bool)
	return b
}

func boolOr(b *bool) bool {
	return b != nil && *b
}

func stringOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package feed

import (
	"testing"
	"time"

	"github.com/rapidos-social/go-rapidos/service/nhost"
	"github.com/rapidos-social/go-rapidos/service/persist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestMapPost(t *testing.T) {
	created := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	t.Run("missing author and nested fields fall back to defaults", func(t *testing.T) {
		p := MapPost(nhost.PostRecord{ID: "p1", Content: "hello", CreatedAt: created}, nil)

		assert.Equal(t, persist.Identity{
			ID:        "unknown_user_id",
			Name:      "Unknown User",
			Handle:    "unknownuser",
			AvatarURL: persist.DefaultAvatarURL,
		}, p.Author)
		assert.Equal(t, 0, p.LikeCount)
		assert.Equal(t, 0, p.CommentCount)
		assert.NotNil(t, p.Comments)
		assert.Empty(t, p.Comments)
		assert.False(t, p.IsBotPost)
		assert.False(t, p.LikedByViewer)
		assert.Equal(t, "", p.ImageURL)
	})

	t.Run("comment authors use their own sentinel", func(t *testing.T) {
		p := MapPost(nhost.PostRecord{
			ID:       "p1",
			Comments: []nhost.CommentRecord{{ID: "c1", Content: "hi", CreatedAt: created}},
		}, nil)

		require.Len(t, p.Comments, 1)
		c := p.Comments[0]
		assert.Equal(t, persist.DBID("p1"), c.PostID)
		assert.Equal(t, persist.DBID("unknown_comment_user_id"), c.Author.ID)
		assert.Equal(t, "Unknown User", c.Author.Name)
		assert.Equal(t, "unknownuser", c.Author.Handle)
	})

	t.Run("full record maps every field", func(t *testing.T) {
		p := MapPost(nhost.PostRecord{
			ID:                "p1",
			Content:           "hello",
			ImageURL:          strPtr("https://example.com/a.png"),
			CreatedAt:         created,
			IsBotPost:         boolPtr(true),
			LikesAggregate:    nhost.NewAggregate(4),
			CommentsAggregate: nhost.NewAggregate(2),
			User: &nhost.UserRecord{
				ID:          strPtr("u1"),
				DisplayName: strPtr("Ada Lovelace"),
				AvatarURL:   strPtr("https://example.com/ada.png"),
				Metadata:    map[string]any{"actualUsername": "ada", "isBot": true},
			},
			Comments: []nhost.CommentRecord{
				{ID: "c1", Content: "first", CreatedAt: created, IsBotComment: boolPtr(true)},
				{ID: "c2", Content: "second", CreatedAt: created.Add(time.Minute)},
			},
		}, NewLikeSet("p1"))

		assert.Equal(t, "https://example.com/a.png", p.ImageURL)
		assert.True(t, p.IsBotPost)
		assert.Equal(t, 4, p.LikeCount)
		assert.Equal(t, 2, p.CommentCount)
		assert.True(t, p.LikedByViewer)
		assert.Equal(t, persist.Identity{ID: "u1", Name: "Ada Lovelace", Handle: "ada", AvatarURL: "https://example.com/ada.png", IsBot: true}, p.Author)
		require.Len(t, p.Comments, 2)
		assert.Equal(t, persist.DBID("c1"), p.Comments[0].ID)
		assert.True(t, p.Comments[0].IsBotComment)
		assert.False(t, p.Comments[1].IsBotComment)
	})

	t.Run("like flag comes only from the like set", func(t *testing.T) {
		r := nhost.PostRecord{ID: "p1", LikesAggregate: nhost.NewAggregate(10)}
		assert.False(t, MapPost(r, NewLikeSet("p2")).LikedByViewer)
		assert.True(t, MapPost(r, NewLikeSet("p1", "p2")).LikedByViewer)
	})
}

func TestMapIdentity(t *testing.T) {
	tests := []struct {
		title  string
		record *nhost.UserRecord
		want   persist.Identity
	}{
		{
			title:  "handle derived from display name without whitespace",
			record: &nhost.UserRecord{ID: strPtr("u1"), DisplayName: strPtr("  Grace \t Brewster Hopper ")},
			want:   persist.Identity{ID: "u1", Name: "  Grace \t Brewster Hopper ", Handle: "gracebrewsterhopper", AvatarURL: persist.DefaultAvatarURL},
		},
		{
			title:  "handle defaults when name is absent",
			record: &nhost.UserRecord{ID: strPtr("u1"), Metadata: map[string]any{}},
			want:   persist.Identity{ID: "u1", Name: "Unknown User", Handle: "user", AvatarURL: persist.DefaultAvatarURL},
		},
		{
			title:  "metadata handle wins over display name",
			record: &nhost.UserRecord{ID: strPtr("u1"), DisplayName: strPtr("Grace"), Metadata: map[string]any{"actualUsername": "gh"}},
			want:   persist.Identity{ID: "u1", Name: "Grace", Handle: "gh", AvatarURL: persist.DefaultAvatarURL},
		},
		{
			title:  "malformed metadata values are ignored",
			record: &nhost.UserRecord{ID: strPtr("u1"), DisplayName: strPtr("Grace"), Metadata: map[string]any{"actualUsername": 7, "isBot": "yes"}},
			want:   persist.Identity{ID: "u1", Name: "Grace", Handle: "grace", AvatarURL: persist.DefaultAvatarURL},
		},
	}

	for _, test := range tests {
		t.Run(test.title, func(t *testing.T) {
			assert.Equal(t, test.want, MapIdentity(test.record, unknownPostAuthorID))
		})
	}
}

func TestMapViewer(t *testing.T) {
	v := MapViewer(nhost.AuthUser{ID: "u1", Email: "a@example.com"})
	assert.Equal(t, "Anonymous", v.Name)
	assert.Equal(t, "user", v.Handle)
	assert.Equal(t, persist.DefaultAvatarURL, v.AvatarURL)
	assert.Equal(t, "a@example.com", v.Email)

	v = MapViewer(nhost.AuthUser{ID: "u2", DisplayName: "Bot Buddy", Metadata: map[string]any{"isBot": true}})
	assert.Equal(t, "botbuddy", v.Handle)
	assert.True(t, v.IsBot)
}

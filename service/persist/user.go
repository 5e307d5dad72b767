package persist

// DefaultAvatarURL is used whenever an account has no avatar of its own
const DefaultAvatarURL = "https://picsum.photos/seed/defaultuser/200/200"

// Identity is a denormalized snapshot of an account as of the last fetch. It is embedded by
// value in posts and comments and never refers back to a live account.
type Identity struct {
	ID        DBID   `json:"id"`
	Name      string `json:"name"`
	Handle    string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
	IsBot     bool   `json:"isBot"`
}

// Viewer is the authenticated account driving the session
type Viewer struct {
	Identity
	Email string `json:"email"`
}

// Persona is a predefined bot identity used to attribute generated welcome content
type Persona struct {
	Name      string `json:"name" mapstructure:"name"`
	Handle    string `json:"username" mapstructure:"username"`
	AvatarURL string `json:"avatarUrl" mapstructure:"avatar_url"`
}

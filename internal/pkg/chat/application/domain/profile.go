package chat

// Profile is the slice of a user profile the messenger needs.
// ID is the subject of the identity provider's access token.
type Profile struct {
	ID        string   `db:"id" json:"id"`
	FullName  string   `db:"full_name" json:"full_name"`
	Language  Language `db:"language" json:"language,omitempty"`
	AvatarURL *string  `db:"avatar_url" json:"avatar_url,omitempty"`
}

// NeedsLanguage reports whether the one-time language prompt must be shown.
func (p Profile) NeedsLanguage() bool {
	return !p.Language.IsSet()
}

package models

// FeedView is the home timeline.
type FeedView struct {
	Posts []*Post `json:"posts"`
}

// ProfileView is a user's page: the profile with follow counts and their top-level posts.
type ProfileView struct {
	User  *User   `json:"user"`
	Posts []*Post `json:"posts"`
}

// StatusView is a single post with its replies.
type StatusView struct {
	Post    *Post   `json:"post"`
	Replies []*Post `json:"replies"`
}

package models

// Session is the in-memory representation of the currently authenticated
// user. A nil *Session means no user is signed in. Email and DisplayName
// default to the empty string when the credential carries neither.
type Session struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

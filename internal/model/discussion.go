package model

import "time"

// Message is one top-level post in a piece's discussion thread. Likes holds
// the ids of users who liked the message, each at most once.
type Message struct {
	ID        string    `json:"id"`
	UserID    int       `json:"userId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Likes     []int     `json:"likes"`
	Replies   []Reply   `json:"replies"`
}

// Reply has the same shape as a Message but cannot itself be replied to.
// Replies are not independently likeable either; the Likes field exists so
// the stored shape matches the frontend's, and stays empty.
type Reply struct {
	ID        string    `json:"id"`
	UserID    int       `json:"userId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Likes     []int     `json:"likes"`
}

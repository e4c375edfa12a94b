package models

import "time"

// Message is one chat utterance scoped to a request. Messages are append
// only and ordered by store-assigned creation timestamps; the only permitted
// mutation is the monotonic seen flip (false -> true, never back).
type Message struct {
	ID        string     `json:"id"`
	RequestID string     `json:"request_id"`
	SenderID  string     `json:"sender_id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	Seen      bool       `json:"seen"`
	SeenAt    *time.Time `json:"seen_at,omitempty"`
}

// SendMessageRequest is the payload for posting a chat message.
type SendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// ThreadInfo describes a chat thread to one of its participants: who the
// peer is and whether the viewer gets the call affordance (helpers only).
type ThreadInfo struct {
	RequestID string  `json:"request_id"`
	PeerID    string  `json:"peer_id,omitempty"`
	PeerName  string  `json:"peer_name,omitempty"`
	PeerPhone *string `json:"peer_phone,omitempty"`
	PeerPic   *string `json:"peer_profile_pic,omitempty"`
	IsHelper  bool    `json:"is_helper"`
	CanCall   bool    `json:"can_call"`
}

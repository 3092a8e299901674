package backend

// Message is the wire representation of one chat message. Messages are
// immutable once created; translation text is attached client-side and
// never round-trips through the backend.
type Message struct {
	ID          string `json:"id"`
	ChatID      string `json:"chat_id"`
	SenderID    string `json:"sender_id"`
	Text        string `json:"text,omitempty"`
	MediaURL    string `json:"media_url,omitempty"`
	MediaType   string `json:"media_type,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	FileSize    int64  `json:"file_size,omitempty"`
	Timestamp   int64  `json:"timestamp"`
	ReplyToID   string `json:"reply_to_id,omitempty"`
	ReplyToName string `json:"reply_to_name,omitempty"`
	ReplyToText string `json:"reply_to_text,omitempty"`
}

// TranslationSettings is the backend copy of one participant's per-chat
// translation preference.
type TranslationSettings struct {
	Enabled        bool   `json:"enabled"`
	TargetLanguage string `json:"target_language"`
}

// Chat is a two-participant conversation container. DeletedAt is a logical
// delete marker; marked chats are filtered from listings, never removed.
type Chat struct {
	ID              string                         `json:"id"`
	ParticipantIDs  []string                       `json:"participant_ids"`
	LastMessage     string                         `json:"last_message,omitempty"`
	LastMessageTime int64                          `json:"last_message_time,omitempty"`
	Translation     map[string]TranslationSettings `json:"translation,omitempty"`
	DeletedAt       int64                          `json:"deleted_at,omitempty"`
}

// Counterpart returns the other participant's ID, or "" when the chat has
// no identifiable second participant.
func (c Chat) Counterpart(userID string) string {
	for _, id := range c.ParticipantIDs {
		if id != "" && id != userID {
			return id
		}
	}
	return ""
}

// Profile is the directory record for one user.
type Profile struct {
	UID         string   `json:"uid"`
	DisplayName string   `json:"display_name"`
	AvatarURL   string   `json:"avatar_url,omitempty"`
	BlockList   []string `json:"block_list,omitempty"`
}

// Blocked reports whether a sender is on this profile's block list.
func (p Profile) Blocked(senderID string) bool {
	for _, id := range p.BlockList {
		if id == senderID {
			return true
		}
	}
	return false
}

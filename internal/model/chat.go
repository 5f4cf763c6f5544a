package model

import "time"

// Conversation is a chat thread between the client and the provider on a job.
type Conversation struct {
	ID                string    `json:"id"`
	JobID             string    `json:"job_id"`
	ClientID          string    `json:"client_id"`
	ServiceProviderID string    `json:"service_provider_id"`
	CreatedAt         time.Time `json:"created_at"`
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

package domain

import "time"

// Message es una entrada inmutable del log de una conversación.
// Debe llevar texto, una referencia de media, o ambos.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Text           string    `json:"text,omitempty"`
	MediaURL       string    `json:"media_url,omitempty"`
	MediaType      string    `json:"media_type,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// WireMessage es la forma canónica de un mensaje en HTTP y websocket,
// con el remitente resuelto a nombre y email.
type WireMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	SenderName     string    `json:"senderName"`
	SenderEmail    string    `json:"senderEmail"`
	Text           string    `json:"text,omitempty"`
	MediaURL       string    `json:"mediaUrl,omitempty"`
	MediaType      string    `json:"mediaType,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Resolve arma la forma canónica a partir del mensaje y su remitente.
func (m Message) Resolve(sender UserSummary) WireMessage {
	return WireMessage{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderName:     sender.Name,
		SenderEmail:    sender.Email,
		Text:           m.Text,
		MediaURL:       m.MediaURL,
		MediaType:      m.MediaType,
		CreatedAt:      m.CreatedAt,
	}
}

package domain

import "time"

// Conversation es el hilo único entre dos usuarios. Los participantes se
// guardan en orden normalizado para que el par (A,B) y (B,A) sean la misma fila.
type Conversation struct {
	ID            string    `json:"id"`
	ParticipantA  string    `json:"participant_a"`
	ParticipantB  string    `json:"participant_b"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// PairKey devuelve la clave normalizada del par de participantes.
// La unicidad por conversación se apoya en esta clave.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

func (c Conversation) HasParticipant(userID string) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// ConversationView es la conversación con los participantes resueltos.
type ConversationView struct {
	ID            string        `json:"id"`
	Participants  []UserSummary `json:"participants"`
	LastMessageAt time.Time     `json:"lastMessageAt"`
	CreatedAt     time.Time     `json:"createdAt"`
}

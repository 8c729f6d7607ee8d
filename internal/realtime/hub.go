package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Subscriber es una conexión viva capaz de recibir eventos serializados.
// La implementación debe tolerar llamadas concurrentes a Send.
type Subscriber interface {
	ID() string
	UserID() string
	Send(payload []byte) error
}

// Event es el sobre de todo evento del servidor hacia el cliente.
type Event struct {
	Type    string `json:"type"`
	Message any    `json:"message,omitempty"`
}

// Hub mantiene el mapa de sala a suscriptores. Hay dos clases de sala: la personal
// (id de usuario, auto-suscrita al conectar) y la de conversación (id de la
// conversación, unida a pedido). Toda mutación del mapa pasa por el mutex.
//
// El Hub no valida membresía: esa decisión es del gateway antes de ordenar
// el Join.
type Hub struct {
	logger *zap.Logger

	mu          sync.RWMutex
	subs        map[string]Subscriber            // connection id -> subscriber
	rooms       map[string]map[string]Subscriber // room id -> connection id -> subscriber
	memberships map[string]map[string]struct{}   // connection id -> room ids
}

// NewHub construye un Hub vacío.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:      logger,
		subs:        make(map[string]Subscriber),
		rooms:       make(map[string]map[string]Subscriber),
		memberships: make(map[string]map[string]struct{}),
	}
}

// Attach registra la conexión y la suscribe a su sala personal.
func (h *Hub) Attach(sub Subscriber) {
	h.mu.Lock()
	h.subs[sub.ID()] = sub
	h.memberships[sub.ID()] = make(map[string]struct{})
	h.joinLocked(sub.UserID(), sub)
	h.mu.Unlock()
}

// Join suscribe la conexión a una sala. Es idempotente y no hace nada si la
// conexión ya fue dada de baja.
func (h *Hub) Join(room string, sub Subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[sub.ID()]; ok {
		h.joinLocked(room, sub)
	}
	h.mu.Unlock()
}

// Leave quita la conexión de una sala.
func (h *Hub) Leave(room string, sub Subscriber) {
	h.mu.Lock()
	h.leaveLocked(room, sub.ID())
	h.mu.Unlock()
}

// Detach da de baja la conexión de todas sus salas. La desconexión es
// terminal: una reconexión arranca sin membresías previas.
func (h *Hub) Detach(sub Subscriber) {
	h.mu.Lock()
	h.detachLocked(sub.ID())
	h.mu.Unlock()
}

// Publish entrega el evento a cada suscriptor actual de la sala, incluida la
// conexión del remitente. Devuelve cuántas entregas se encolaron; cero
// suscriptores no es un error.
func (h *Hub) Publish(room string, event string, payload any) int {
	data, err := json.Marshal(Event{Type: event, Message: payload})
	if err != nil {
		h.logger.Error("event encode failed", zap.String("event", event), zap.Error(err))
		return 0
	}

	h.mu.RLock()
	members := h.rooms[room]
	if len(members) == 0 {
		h.mu.RUnlock()
		return 0
	}

	delivered := 0
	for _, sub := range members {
		if err := sub.Send(data); err == nil {
			delivered++
		}
	}
	h.mu.RUnlock()
	return delivered
}

// Close da de baja todas las conexiones y deja el Hub vacío.
func (h *Hub) Close() {
	h.mu.Lock()
	closers := make([]Subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		closers = append(closers, sub)
	}
	h.subs = make(map[string]Subscriber)
	h.rooms = make(map[string]map[string]Subscriber)
	h.memberships = make(map[string]map[string]struct{})
	h.mu.Unlock()

	for _, sub := range closers {
		if c, ok := sub.(interface{ Close(code int, reason string) }); ok {
			c.Close(1001, "hub shutdown")
		}
	}
}

func (h *Hub) joinLocked(room string, sub Subscriber) {
	if room == "" {
		return
	}
	members := h.rooms[room]
	if members == nil {
		members = make(map[string]Subscriber)
		h.rooms[room] = members
	}
	members[sub.ID()] = sub

	memberships := h.memberships[sub.ID()]
	if memberships == nil {
		memberships = make(map[string]struct{})
		h.memberships[sub.ID()] = memberships
	}
	memberships[room] = struct{}{}
}

func (h *Hub) leaveLocked(room string, connID string) {
	members := h.rooms[room]
	if members == nil {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
	if memberships, ok := h.memberships[connID]; ok {
		delete(memberships, room)
	}
}

func (h *Hub) detachLocked(connID string) {
	if _, ok := h.subs[connID]; !ok {
		return
	}
	delete(h.subs, connID)
	for room := range h.memberships[connID] {
		h.leaveLocked(room, connID)
	}
	delete(h.memberships, connID)
}

package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/Krimson/vibro-monitor/internal/stream"
	"github.com/gorilla/websocket"
)

// Hub управляет WebSocket подписчиками исходящего потока событий
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Канал для регистрации клиентов
	register chan *Client

	// Канал для отмены регистрации клиентов
	unregister chan *Client

	// Канал исходящих событий
	broadcast chan outbound

	// Мютекс для безопасной работы с картой клиентов
	mu sync.RWMutex

	// Снимок действующих параметров для нового подписчика,
	// строится по интересующей его конструкции
	welcome func(structureID string) *stream.Event
}

// Client представляет WebSocket подписчика
type Client struct {
	hub *Hub

	// WebSocket соединение
	conn *websocket.Conn

	// Буферизованный канал исходящих сообщений
	send chan []byte

	// Конструкция, события которой интересуют клиента.
	// Пустая строка - все конструкции.
	structureID string
}

// outbound - событие с адресом для фильтрации по подписчикам
type outbound struct {
	structureID string
	data        []byte
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// В продакшене следует проверять домен
		return true
	},
}

// NewHub создает новый Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, 256),
	}
}

// Run запускает цикл рассылки Hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("[WEBSOCKET] Client registered: %p, structure: %q", client, client.structureID)

			if h.welcome != nil {
				if data, err := json.Marshal(h.welcome(client.structureID)); err == nil {
					select {
					case client.send <- data:
					default:
					}
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("[WEBSOCKET] Client unregistered: %p", client)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if client.structureID != "" && client.structureID != message.structureID {
					continue
				}
				select {
				case client.send <- message.data:
				default:
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// SetWelcome задает снимок параметров, отправляемый каждому
// новому подписчику. Вызывается до Run.
func (h *Hub) SetWelcome(welcome func(structureID string) *stream.Event) {
	h.welcome = welcome
}

// Broadcast отправляет событие потока всем подходящим подписчикам
func (h *Hub) Broadcast(e *stream.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Printf("[ERROR] Failed to marshal stream event: %v", err)
		return
	}

	select {
	case h.broadcast <- outbound{structureID: e.StructureID, data: data}:
	default:
		log.Printf("[WARN] Broadcast channel full, dropping event %s", e.Type)
	}
}

// HandleSubscribe обрабатывает подключения подписчиков
func (h *Hub) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ERROR] Failed to upgrade connection: %v", err)
		return
	}

	client := &Client{
		hub:         h,
		conn:        conn,
		send:        make(chan []byte, 256),
		structureID: r.URL.Query().Get("structure_id"),
	}

	client.hub.register <- client

	// Запускаем горутины для клиента
	go client.writePump()
	go client.readPump()
}

// readPump дочитывает входящие сообщения до закрытия соединения
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[ERROR] WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump отправляет сообщения клиенту
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("[ERROR] Failed to write message: %v", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
)

// Cliente de terminal para probar el flujo completo: login, directorio,
// apertura de conversación y chat en vivo por websocket.

type tokens struct {
	AccessToken string `json:"access_token"`
}

type userSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type wireMessage struct {
	ID         string `json:"id"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Text       string `json:"text"`
	MediaURL   string `json:"mediaUrl"`
}

type client struct {
	baseURL string
	http    *http.Client
	access  string
}

func main() {
	_ = godotenv.Load()

	baseURL := os.Getenv("PAIRCHAT_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	cl := &client{baseURL: strings.TrimRight(baseURL, "/"), http: &http.Client{Timeout: 10 * time.Second}}

	reader := bufio.NewReader(os.Stdin)
	email := prompt(reader, "email: ")
	password := prompt(reader, "password: ")

	if err := cl.login(email, password); err != nil {
		log.Fatalf("login: %v", err)
	}

	others, err := cl.listUsers()
	if err != nil {
		log.Fatalf("listar usuarios: %v", err)
	}
	if len(others) == 0 {
		log.Fatal("no hay otros usuarios registrados")
	}
	for i, u := range others {
		fmt.Printf("%d) %s <%s>\n", i+1, u.Name, u.Email)
	}
	choice := prompt(reader, "hablar con: ")
	idx := 0
	fmt.Sscanf(choice, "%d", &idx)
	if idx < 1 || idx > len(others) {
		log.Fatal("selección inválida")
	}
	other := others[idx-1]

	convID, err := cl.openConversation(other.ID)
	if err != nil {
		log.Fatalf("abrir conversación: %v", err)
	}

	ws, err := cl.dial(convID)
	if err != nil {
		log.Fatalf("websocket: %v", err)
	}
	defer ws.Close()

	go func() {
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				log.Printf("conexión cerrada: %v", err)
				os.Exit(0)
			}
			var event struct {
				Type    string      `json:"type"`
				Message wireMessage `json:"message"`
			}
			if json.Unmarshal(data, &event) != nil {
				continue
			}
			if event.Type == "message:new" {
				text := event.Message.Text
				if text == "" {
					text = event.Message.MediaURL
				}
				fmt.Printf("\n[%s] %s\n> ", event.Message.SenderName, text)
			}
		}
	}()

	fmt.Println("conectado; escribe y presiona enter (ctrl+c para salir)")
	for {
		text := prompt(reader, "> ")
		if text == "" {
			continue
		}
		if err := cl.sendMessage(convID, text); err != nil {
			log.Printf("enviar: %v", err)
		}
	}
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func (c *client) login(email, password string) error {
	var resp struct {
		Tokens tokens `json:"tokens"`
	}
	err := c.post("/auth/login", map[string]string{"email": email, "password": password}, &resp)
	if err != nil {
		return err
	}
	c.access = resp.Tokens.AccessToken
	return nil
}

func (c *client) listUsers() ([]userSummary, error) {
	var resp struct {
		Users []userSummary `json:"users"`
	}
	if err := c.get("/users", &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

func (c *client) openConversation(otherID string) (string, error) {
	var resp struct {
		Conversation struct {
			ID string `json:"id"`
		} `json:"conversation"`
	}
	err := c.post("/conversations", map[string]string{"otherUserId": otherID}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Conversation.ID, nil
}

func (c *client) sendMessage(convID, text string) error {
	return c.post("/messages/"+convID, map[string]string{"text": text}, nil)
}

func (c *client) dial(convID string) (*websocket.Conn, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	wsURL := fmt.Sprintf("%s://%s/ws?token=%s", scheme, u.Host, url.QueryEscape(c.access))

	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, err
	}

	join := map[string]string{"type": "conversation:join", "conversationId": convID}
	if err := ws.WriteJSON(join); err != nil {
		ws.Close()
		return nil, err
	}
	return ws, nil
}

func (c *client) post(path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *client) get(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *client) do(req *http.Request, out any) error {
	if c.access != "" {
		req.Header.Set("Authorization", "Bearer "+c.access)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// ApiClient talks to the Taverna API as one anonymous guest
type ApiClient struct {
	httpClient *http.Client
	BaseURL    string
	token      string
}

// NewApiClient creates a new API client
func NewApiClient() *ApiClient {
	baseURL := os.Getenv("TAVERNA_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	return &ApiClient{
		httpClient: &http.Client{
			// chat replies wait for the language model
			Timeout: time.Second * 60,
		},
		BaseURL: baseURL,
		token:   os.Getenv("TAVERNA_TOKEN"),
	}
}

// MenuItem is a dish from the menu
type MenuItem struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Dietary     []string `json:"dietary"`
}

// CartItem is one line of the cart
type CartItem struct {
	MenuItemID int     `json:"menuItemId"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
}

// Cart is the cart with its derived totals
type Cart struct {
	Items []CartItem `json:"items"`
	Count int        `json:"count"`
	Total float64    `json:"total"`
}

// Reservation is a table booking
type Reservation struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	PartySize int    `json:"partySize"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Occasion  string `json:"occasion"`
	Status    string `json:"status"`
}

// ChatMessage is one entry of the assistant conversation
type ChatMessage struct {
	ID        string     `json:"id"`
	Sender    string     `json:"sender"`
	Text      string     `json:"text"`
	ItemCards []MenuItem `json:"itemCards"`
	IsLoading bool       `json:"isLoading"`
}

// apiError is the error body every endpoint returns
type apiError struct {
	Error       string            `json:"error"`
	FieldErrors map[string]string `json:"fieldErrors"`
}

// CheckHealth checks if the API is up and running
func (c *ApiClient) CheckHealth() (bool, error) {
	resp, err := c.httpClient.Get(c.BaseURL + "/health")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("API health check failed with status code: %d", resp.StatusCode)
	}

	return true, nil
}

// ensureSession obtains a guest token on first use
func (c *ApiClient) ensureSession() error {
	if c.token != "" {
		return nil
	}
	var session struct {
		Token string `json:"token"`
	}
	if err := c.do(http.MethodPost, "/api/v1/session", nil, &session); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	c.token = session.Token
	return nil
}

func (c *ApiClient) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			for field, msg := range apiErr.FieldErrors {
				apiErr.Error += fmt.Sprintf("; %s: %s", field, msg)
			}
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (c *ApiClient) guest(method, path string, body, out interface{}) error {
	if err := c.ensureSession(); err != nil {
		return err
	}
	return c.do(method, path, body, out)
}

// GetMenu retrieves the menu
func (c *ApiClient) GetMenu() ([]MenuItem, error) {
	var resp struct {
		Items []MenuItem `json:"items"`
	}
	if err := c.do(http.MethodGet, "/api/v1/menu", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// GetCart retrieves the guest's cart
func (c *ApiClient) GetCart() (*Cart, error) {
	var cart Cart
	if err := c.guest(http.MethodGet, "/api/v1/cart", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddToCart adds one of the menu item
func (c *ApiClient) AddToCart(id int) (*Cart, error) {
	var cart Cart
	body := map[string]int{"menuItemId": id}
	if err := c.guest(http.MethodPost, "/api/v1/cart/items", body, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// SetQuantity changes a cart line; zero removes it
func (c *ApiClient) SetQuantity(id, qty int) (*Cart, error) {
	var cart Cart
	body := map[string]int{"quantity": qty}
	if err := c.guest(http.MethodPut, fmt.Sprintf("/api/v1/cart/items/%d", id), body, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetReservations retrieves the guest's upcoming reservations
func (c *ApiClient) GetReservations() ([]Reservation, error) {
	var resp struct {
		Reservations []Reservation `json:"reservations"`
	}
	if err := c.guest(http.MethodGet, "/api/v1/reservations?upcoming=true", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Reservations, nil
}

// GetAvailability lists the free times on date
func (c *ApiClient) GetAvailability(date string) ([]string, error) {
	var resp struct {
		Times []string `json:"times"`
	}
	path := "/api/v1/availability?date=" + url.QueryEscape(date)
	if err := c.guest(http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Times, nil
}

// CreateReservation books a table directly
func (c *ApiClient) CreateReservation(r *Reservation) (*Reservation, error) {
	var created Reservation
	if err := c.guest(http.MethodPost, "/api/v1/reservations", r, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// CancelReservation cancels a reservation by ID
func (c *ApiClient) CancelReservation(id string) error {
	return c.guest(http.MethodDelete, "/api/v1/reservations/"+url.PathEscape(id), nil, nil)
}

// GetChat retrieves the conversation so far
func (c *ApiClient) GetChat() ([]ChatMessage, error) {
	var resp struct {
		Messages []ChatMessage `json:"messages"`
	}
	if err := c.guest(http.MethodGet, "/api/v1/chat/messages", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// SendChat sends a message and waits for the assistant's reply
func (c *ApiClient) SendChat(text string) (*ChatMessage, error) {
	var resp struct {
		Message ChatMessage `json:"message"`
	}
	body := map[string]string{"text": text}
	if err := c.guest(http.MethodPost, "/api/v1/chat/messages", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Message, nil
}

// ChatFrame is one message pushed by the chat websocket
type ChatFrame struct {
	Type     string        `json:"type"`
	Message  *ChatMessage  `json:"message,omitempty"`
	Messages []ChatMessage `json:"messages,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// DialChat opens the live chat websocket. The first frame carries the history.
func (c *ApiClient) DialChat() (*websocket.Conn, error) {
	if err := c.ensureSession(); err != nil {
		return nil, err
	}
	wsURL := "ws" + strings.TrimPrefix(c.BaseURL, "http") + "/api/v1/chat/ws?token=" + url.QueryEscape(c.token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open chat: %w", err)
	}
	return conn, nil
}

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
)

// Styling
var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#1f5fa8")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#0a84ff")).
			Padding(0, 1)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#30d158")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#ff453a")).
			Padding(0, 1)

	guestStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0a84ff"))
	hostStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#30d158"))
)

// Model defines the application state
type Model struct {
	mainMenu     list.Model
	menuTable    table.Model
	cartTable    table.Model
	reservations list.Model
	menuItems    []MenuItem
	cart         Cart
	chat         []ChatMessage
	socket       *websocket.Conn
	textInput    textinput.Model
	spinner      spinner.Model
	client       *ApiClient
	loading      bool
	currentView  string
	status       string
	error        string
}

// item represents a list item
type item struct {
	title, desc string
}

// FilterValue implements list.Item interface
func (i item) FilterValue() string { return i.title }

// Title implements list.Item interface
func (i item) Title() string { return i.title }

// Description implements list.Item interface
func (i item) Description() string { return i.desc }

// Initialize the model
func initialModel() Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	items := []list.Item{
		item{title: "Menu", desc: "Browse dishes and add them to your cart"},
		item{title: "Cart", desc: "Review and change your order"},
		item{title: "Reservations", desc: "See and cancel your upcoming tables"},
		item{title: "Book a Table", desc: "Reserve a table"},
		item{title: "Ask the Host", desc: "Chat with the menu assistant"},
		item{title: "Exit", desc: "Exit the application"},
	}
	mainMenu := list.New(items, list.NewDefaultDelegate(), 0, 0)
	mainMenu.Title = "Taverna"

	menuTable := table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 4},
			{Title: "Dish", Width: 28},
			{Title: "Category", Width: 12},
			{Title: "Price", Width: 8},
		}),
		table.WithFocused(true),
		table.WithHeight(14),
	)
	cartTable := table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 4},
			{Title: "Dish", Width: 28},
			{Title: "Qty", Width: 5},
			{Title: "Subtotal", Width: 10},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	reservations := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	reservations.Title = "Upcoming Reservations"

	ti := textinput.New()
	ti.CharLimit = 500
	ti.Width = 60

	return Model{
		mainMenu:     mainMenu,
		menuTable:    menuTable,
		cartTable:    cartTable,
		reservations: reservations,
		spinner:      s,
		textInput:    ti,
		client:       NewApiClient(),
		currentView:  "main",
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tea.EnterAltScreen)
}

// Update handles UI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.mainMenu.SetSize(msg.Width-h, msg.Height-v)
		m.reservations.SetSize(msg.Width-h, msg.Height-v-2)
	case tea.KeyMsg:
		if m.textInput.Focused() {
			return m.updateInput(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			m.currentView = "main"
			m.error, m.status = "", ""
			return m, nil
		case "enter":
			if m.currentView == "main" {
				return m.selectMainItem()
			}
		case "a":
			if m.currentView == "menu" {
				if id, ok := selectedID(m.menuTable); ok {
					m.loading = true
					return m, addToCart(m.client, id)
				}
			}
		case "+", "-", "d":
			if m.currentView == "cart" {
				if id, ok := selectedID(m.cartTable); ok {
					qty := 0
					for _, line := range m.cart.Items {
						if line.MenuItemID == id {
							qty = line.Quantity
						}
					}
					switch msg.String() {
					case "+":
						qty++
					case "-":
						qty--
					case "d":
						qty = 0
					}
					return m, setQuantity(m.client, id, qty)
				}
			}
		case "c":
			if m.currentView == "reservations" {
				if selected, ok := m.reservations.SelectedItem().(reservationItem); ok {
					return m, cancelReservation(m.client, selected.id)
				}
			}
		}
	case menuMsg:
		m.loading = false
		m.menuItems = msg.items
		m.menuTable.SetRows(menuRows(msg.items))
		return m, nil
	case cartMsg:
		m.loading = false
		m.cart = msg.cart
		m.cartTable.SetRows(cartRows(msg.cart))
		if msg.added != "" {
			m.status = fmt.Sprintf("%s added to cart (%d items)", msg.added, msg.cart.Count)
		}
		return m, nil
	case reservationsMsg:
		m.loading = false
		m.reservations.SetItems(convertReservationsToItems(msg.reservations))
		return m, nil
	case chatMsg:
		m.loading = false
		m.chat = msg.messages
		return m, nil
	case chatSocketMsg:
		if m.currentView != "chat" {
			msg.conn.Close()
			return m, nil
		}
		m.socket = msg.conn
		return m, listen(msg.conn)
	case chatFrameMsg:
		if msg.conn != m.socket {
			return m, nil
		}
		switch msg.frame.Type {
		case "history":
			m.loading = false
			m.chat = msg.frame.Messages
		case "message":
			if msg.frame.Message != nil {
				m.chat = upsertMessage(m.chat, *msg.frame.Message)
				m.loading = msg.frame.Message.IsLoading
			}
		case "error":
			m.loading = false
			m.error = msg.frame.Error
		}
		return m, listen(msg.conn)
	case chatClosedMsg:
		if msg.conn == m.socket {
			m.socket = nil
			m.loading = false
			if m.currentView == "chat" {
				m.error = "Chat connection closed"
			}
		}
		return m, nil
	case errorMsg:
		m.loading = false
		m.error = msg.err
		return m, nil
	case confirmMsg:
		m.loading = false
		m.error = ""
		m.status = msg.message
		if m.currentView == "reservations" {
			return m, fetchReservations(m.client)
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	switch m.currentView {
	case "main":
		m.mainMenu, cmd = m.mainMenu.Update(msg)
	case "menu":
		m.menuTable, cmd = m.menuTable.Update(msg)
	case "cart":
		m.cartTable, cmd = m.cartTable.Update(msg)
	case "reservations":
		m.reservations, cmd = m.reservations.Update(msg)
	}

	return m, cmd
}

func (m Model) selectMainItem() (tea.Model, tea.Cmd) {
	selected, ok := m.mainMenu.SelectedItem().(item)
	if !ok {
		return m, nil
	}
	m.error, m.status = "", ""

	switch selected.title {
	case "Exit":
		return m, tea.Quit
	case "Menu":
		m.currentView = "menu"
		m.loading = true
		return m, fetchMenu(m.client)
	case "Cart":
		m.currentView = "cart"
		m.loading = true
		return m, fetchCart(m.client)
	case "Reservations":
		m.currentView = "reservations"
		m.loading = true
		return m, fetchReservations(m.client)
	case "Book a Table":
		m.currentView = "book"
		m.textInput.Placeholder = "2026-11-20,19:00,4,Jane Doe,jane@example.com,555-0100"
		m.textInput.SetValue("")
		m.textInput.Focus()
	case "Ask the Host":
		m.currentView = "chat"
		m.textInput.Placeholder = "Ask about the menu..."
		m.textInput.SetValue("")
		m.textInput.Focus()
		m.loading = true
		return m, openChat(m.client)
	}
	return m, nil
}

// updateInput handles keys while the text input has focus
func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.textInput.Blur()
		m.currentView = "main"
		m.error, m.status = "", ""
		if m.socket != nil {
			m.socket.Close()
			m.socket = nil
		}
		return m, nil
	case "enter":
		input := strings.TrimSpace(m.textInput.Value())
		if input == "" {
			return m, nil
		}
		m.textInput.SetValue("")
		switch m.currentView {
		case "book":
			return m, handleBookingInput(m.client, input)
		case "chat":
			m.loading = true
			if m.socket != nil {
				return m, sendFrame(m.socket, input)
			}
			m.chat = append(m.chat, ChatMessage{Sender: "user", Text: input})
			return m, sendChat(m.client, input)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// View renders the UI
func (m Model) View() string {
	footer := "\n"
	if m.loading {
		footer += m.spinner.View() + " Loading...\n"
	}
	if m.status != "" {
		footer += successStyle.Render(m.status) + "\n"
	}
	if m.error != "" {
		footer += errorStyle.Render(m.error) + "\n"
	}

	switch m.currentView {
	case "main":
		return docStyle.Render(m.mainMenu.View())
	case "menu":
		help := "\nPress 'a' to add the selected dish to your cart, 'esc' to go back\n"
		return docStyle.Render(titleStyle.Render("Menu") + "\n\n" + m.menuTable.View() + help + footer)
	case "cart":
		summary := fmt.Sprintf("\n%s  %d items, total $%.2f\n", infoStyle.Render("Cart"), m.cart.Count, m.cart.Total)
		help := "Press '+'/'-' to change quantity, 'd' to remove, 'esc' to go back\n"
		return docStyle.Render(titleStyle.Render("Your Cart") + "\n\n" + m.cartTable.View() + summary + help + footer)
	case "reservations":
		help := "\nPress 'c' to cancel the selected reservation, 'esc' to go back\n"
		return docStyle.Render(m.reservations.View() + help + footer)
	case "book":
		help := "\nFormat: <date>,<time>,<party size>,<name>,<email>,<phone>\nPress 'enter' to book, 'esc' to cancel\n"
		return docStyle.Render(titleStyle.Render("Book a Table") + "\n\n" + m.textInput.View() + help + footer)
	case "chat":
		help := "\nPress 'enter' to send, 'esc' to go back\n"
		return docStyle.Render(titleStyle.Render("Ask the Host") + "\n\n" + chatView(m.chat) + "\n" + m.textInput.View() + help + footer)
	default:
		return "Loading..."
	}
}

// Custom message types for the tea.Model
type menuMsg struct {
	items []MenuItem
}

type cartMsg struct {
	cart  Cart
	added string
}

type reservationsMsg struct {
	reservations []Reservation
}

type chatMsg struct {
	messages []ChatMessage
}

// chatSocketMsg carries a freshly opened chat websocket
type chatSocketMsg struct {
	conn *websocket.Conn
}

type chatFrameMsg struct {
	conn  *websocket.Conn
	frame ChatFrame
}

type chatClosedMsg struct {
	conn *websocket.Conn
}

type errorMsg struct {
	err string
}

type confirmMsg struct {
	message string
}

// reservationItem represents a reservation in the list
type reservationItem struct {
	id    string
	title string
	desc  string
}

func (i reservationItem) Title() string       { return i.title }
func (i reservationItem) Description() string { return i.desc }
func (i reservationItem) FilterValue() string { return i.title }

func fetchMenu(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		items, err := client.GetMenu()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching menu: %v", err)}
		}
		return menuMsg{items: items}
	}
}

func fetchCart(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		cart, err := client.GetCart()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching cart: %v", err)}
		}
		return cartMsg{cart: *cart}
	}
}

func addToCart(client *ApiClient, id int) tea.Cmd {
	return func() tea.Msg {
		cart, err := client.AddToCart(id)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error adding to cart: %v", err)}
		}
		added := ""
		for _, line := range cart.Items {
			if line.MenuItemID == id {
				added = line.Name
			}
		}
		return cartMsg{cart: *cart, added: added}
	}
}

func setQuantity(client *ApiClient, id, qty int) tea.Cmd {
	return func() tea.Msg {
		cart, err := client.SetQuantity(id, qty)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error updating cart: %v", err)}
		}
		return cartMsg{cart: *cart}
	}
}

func fetchReservations(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		reservations, err := client.GetReservations()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching reservations: %v", err)}
		}
		return reservationsMsg{reservations: reservations}
	}
}

func cancelReservation(client *ApiClient, id string) tea.Cmd {
	return func() tea.Msg {
		if err := client.CancelReservation(id); err != nil {
			return errorMsg{err: fmt.Sprintf("Error canceling reservation: %v", err)}
		}
		return confirmMsg{message: "Reservation cancelled"}
	}
}

// handleBookingInput parses the one-line booking form and reserves the table
func handleBookingInput(client *ApiClient, input string) tea.Cmd {
	parts := strings.Split(input, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) != 6 {
		return func() tea.Msg {
			return errorMsg{err: "Please enter all six booking details"}
		}
	}
	party, err := strconv.Atoi(parts[2])
	if err != nil {
		return func() tea.Msg {
			return errorMsg{err: "Party size must be a number"}
		}
	}

	return func() tea.Msg {
		times, err := client.GetAvailability(parts[0])
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error checking availability: %v", err)}
		}
		if !contains(times, parts[1]) {
			if len(times) == 0 {
				return errorMsg{err: "No times available for this date"}
			}
			return errorMsg{err: fmt.Sprintf("%s is taken. Free times: %s", parts[1], strings.Join(times, " "))}
		}

		created, err := client.CreateReservation(&Reservation{
			Date: parts[0], Time: parts[1], PartySize: party,
			Name: parts[3], Email: parts[4], Phone: parts[5],
		})
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error booking table: %v", err)}
		}
		return confirmMsg{message: fmt.Sprintf("Table booked for %s at %s", created.Date, created.Time)}
	}
}

// openChat connects the live chat, falling back to plain requests when the
// websocket cannot be opened
func openChat(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		conn, err := client.DialChat()
		if err != nil {
			return fetchChat(client)()
		}
		return chatSocketMsg{conn: conn}
	}
}

// listen waits for the next frame of the chat websocket
func listen(conn *websocket.Conn) tea.Cmd {
	return func() tea.Msg {
		var frame ChatFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return chatClosedMsg{conn: conn}
		}
		return chatFrameMsg{conn: conn, frame: frame}
	}
}

func sendFrame(conn *websocket.Conn, text string) tea.Cmd {
	return func() tea.Msg {
		if err := conn.WriteJSON(map[string]string{"type": "message", "text": text}); err != nil {
			return errorMsg{err: fmt.Sprintf("Error sending message: %v", err)}
		}
		return nil
	}
}

// upsertMessage replaces the message with the same id, or appends it
func upsertMessage(messages []ChatMessage, msg ChatMessage) []ChatMessage {
	for i := range messages {
		if messages[i].ID == msg.ID {
			messages[i] = msg
			return messages
		}
	}
	return append(messages, msg)
}

func fetchChat(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		messages, err := client.GetChat()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error loading chat: %v", err)}
		}
		return chatMsg{messages: messages}
	}
}

func sendChat(client *ApiClient, text string) tea.Cmd {
	return func() tea.Msg {
		if _, err := client.SendChat(text); err != nil {
			return errorMsg{err: fmt.Sprintf("Error sending message: %v", err)}
		}
		messages, err := client.GetChat()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error loading chat: %v", err)}
		}
		return chatMsg{messages: messages}
	}
}

func selectedID(t table.Model) (int, bool) {
	row := t.SelectedRow()
	if len(row) == 0 {
		return 0, false
	}
	id, err := strconv.Atoi(row[0])
	return id, err == nil
}

func menuRows(items []MenuItem) []table.Row {
	rows := make([]table.Row, len(items))
	for i, it := range items {
		rows[i] = table.Row{strconv.Itoa(it.ID), it.Name, it.Category, fmt.Sprintf("$%.2f", it.Price)}
	}
	return rows
}

func cartRows(cart Cart) []table.Row {
	rows := make([]table.Row, len(cart.Items))
	for i, line := range cart.Items {
		rows[i] = table.Row{
			strconv.Itoa(line.MenuItemID),
			line.Name,
			strconv.Itoa(line.Quantity),
			fmt.Sprintf("$%.2f", line.Price*float64(line.Quantity)),
		}
	}
	return rows
}

func convertReservationsToItems(reservations []Reservation) []list.Item {
	items := make([]list.Item, len(reservations))
	for i, r := range reservations {
		desc := fmt.Sprintf("Party of %d - %s", r.PartySize, r.Name)
		if r.Occasion != "" {
			desc += " - " + r.Occasion
		}
		items[i] = reservationItem{
			id:    r.ID,
			title: fmt.Sprintf("%s at %s", r.Date, r.Time),
			desc:  desc,
		}
	}
	return items
}

// chatView renders the last messages with their suggested dishes
func chatView(messages []ChatMessage) string {
	if len(messages) > 12 {
		messages = messages[len(messages)-12:]
	}
	var b strings.Builder
	for _, msg := range messages {
		if msg.Sender == "user" {
			b.WriteString(guestStyle.Render("You: "))
		} else {
			b.WriteString(hostStyle.Render("Host: "))
		}
		b.WriteString(msg.Text + "\n")
		for _, card := range msg.ItemCards {
			b.WriteString(fmt.Sprintf("   • %s ($%.2f) [#%d]\n", card.Name, card.Price, card.ID))
		}
	}
	return b.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running program: %v", err)
		os.Exit(1)
	}
}

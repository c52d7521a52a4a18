package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/elijahnyp/house_hub/state"
	. "github.com/elijahnyp/house_hub/util"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Data interface{} `json:"data"`
	Type string      `json:"type"`
}

// WSClient represents a connected WebSocket client
type WSClient struct {
	conn *websocket.Conn
	send chan WebSocketMessage
	hub  *WSHub
}

// WSHub maintains the set of active clients and broadcasts messages
type WSHub struct {
	clients    map[*WSClient]bool
	broadcast  chan WebSocketMessage
	register   chan *WSClient
	unregister chan *WSClient
}

// DeviceView is a device as rendered by the API: its record plus the
// resolved icon and current activity level.
type DeviceView struct {
	state.Device
	Icon     state.IconDetails `json:"icon"`
	Activity int               `json:"activity"`
	Active   bool              `json:"active"`
}

type RoomView struct {
	ID      string       `json:"id"`
	Name    string       `json:"name,omitempty"`
	Devices []DeviceView `json:"devices"`
}

type BrewProgress struct {
	Room     string            `json:"room"`
	Device   string            `json:"device"`
	JobID    string            `json:"job_id"`
	Progress int               `json:"progress"`
	Icon     state.IconDetails `json:"icon"`
}

type BrewResponse struct {
	JobID   string `json:"job_id"`
	Started bool   `json:"started"`
}

type stateRequest struct {
	State string `json:"state"`
}

var wsHub *WSHub

// NewHub creates a new WebSocket hub
func NewHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WebSocketMessage, 64),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
	}
}

// Run starts the WebSocket hub
func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			Logger.Info().Msg("Client connected to WebSocket")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				Logger.Info().Msg("Client disconnected from WebSocket")
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// BroadcastUpdate sends an update to all connected clients
func (h *WSHub) BroadcastUpdate(messageType string, data interface{}) {
	select {
	case h.broadcast <- WebSocketMessage{Type: messageType, Data: data}:
	default:
		// Channel is full, skip this update
	}
}

// readPump pumps messages from the websocket connection to the hub
func (c *WSClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		if err := c.conn.Close(); err != nil {
			Logger.Debug().Err(err).Msg("Error closing WebSocket connection")
		}
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *WSClient) writePump() {
	defer func() {
		if err := c.conn.Close(); err != nil {
			Logger.Debug().Err(err).Msg("Error closing WebSocket connection")
		}
	}()

	for message := range c.send {
		if err := c.conn.WriteJSON(message); err != nil {
			return
		}
	}
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		Logger.Debug().Err(err).Msg("Error writing close message")
	}
}

// ServeWebSocket handles websocket requests from the peer. New clients get
// the full house first.
func ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &WSClient{
		conn: conn,
		send: make(chan WebSocketMessage, 256),
		hub:  wsHub,
	}
	client.send <- WebSocketMessage{Type: "house", Data: viewHouse()}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

func viewDevice(roomID string, d state.Device) DeviceView {
	progress := brewer.Progress(BrewKey(roomID, d.ID))
	return DeviceView{
		Device:   d,
		Icon:     d.Icon(float64(progress)),
		Activity: progress,
		Active:   state.IsActive(d.State) || progress > 0,
	}
}

func viewRoom(room state.Room) RoomView {
	view := RoomView{ID: room.ID, Name: room.Name, Devices: make([]DeviceView, 0, len(room.Devices))}
	for _, d := range room.Devices {
		view.Devices = append(view.Devices, viewDevice(room.ID, d))
	}
	return view
}

func viewHouse() []RoomView {
	rooms := house.Rooms()
	views := make([]RoomView, 0, len(rooms))
	for _, room := range rooms {
		views = append(views, viewRoom(room))
	}
	return views
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		Logger.Error().Err(err).Msg("Error encoding response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, state.ErrDeviceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, state.ErrInvalidState), errors.Is(err, errNotBrewable):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}

func APIHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// APIRooms returns every room with its devices and icons
func APIRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewHouse())
}

// APIRoom returns a single room
func APIRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["room"]
	room, ok := house.Room(roomID)
	if !ok {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, viewRoom(room))
}

func APIToggleDevice(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	d, err := house.Toggle(vars["room"], vars["device"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewDevice(vars["room"], d))
}

func APISetDeviceState(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req stateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	d, err := house.Set(vars["room"], vars["device"], req.State)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewDevice(vars["room"], d))
}

func APIBrew(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	jobID, started, err := startBrew(vars["room"], vars["device"])
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusAccepted
	if !started {
		status = http.StatusOK
	}
	writeJSON(w, status, BrewResponse{JobID: jobID, Started: started})
}

// APIIcon resolves icon details for arbitrary type/state/activity values.
func APIIcon(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	activity := 0.0
	if raw := q.Get("activity"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			http.Error(w, "activity must be a number", http.StatusBadRequest)
			return
		}
		activity = v
	}
	writeJSON(w, http.StatusOK, state.GetDeviceIconDetails(state.DeviceType(q.Get("type")), q.Get("state"), activity))
}

func registerHandlers(monitor *MonitorServer) {
	monitor.AddHandler("/health", APIHealth, http.MethodGet)
	monitor.AddRawHandler("/ws", http.HandlerFunc(ServeWebSocket)).Methods(http.MethodGet)
	monitor.AddHandler("/api/icon", APIIcon, http.MethodGet)
	monitor.AddHandler("/api/rooms", APIRooms, http.MethodGet)
	monitor.AddHandler("/api/rooms/{room}", APIRoom, http.MethodGet)
	monitor.AddHandler("/api/rooms/{room}/devices/{device}/toggle", APIToggleDevice, http.MethodPost)
	monitor.AddHandler("/api/rooms/{room}/devices/{device}/state", APISetDeviceState, http.MethodPut)
	monitor.AddHandler("/api/rooms/{room}/devices/{device}/brew", APIBrew, http.MethodPost)
	monitor.AddHandler("/api/rooms/{room}/devices/{device}/tile.png", APITile, http.MethodGet)
}

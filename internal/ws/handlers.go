package ws

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     CheckOrigin,
}

// WSHandler upgrades widget connections and spawns the read/write pumps.
// The endpoint is public: widgets embed on customer sites and carry no
// credentials, so the only gate is the origin check.
type WSHandler struct {
	hub *Hub
}

func NewWSHandler(hub *Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// RegisterRoutes wires the WebSocket endpoint.
func (h *WSHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws/visitors/{websiteID}", h.ServeWS).Methods(http.MethodGet)
}

// ServeWS upgrades GET /ws/visitors/{websiteID} to a WebSocket connection
// counted as one live visitor for that website.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	websiteID := mux.Vars(r)["websiteID"]
	if websiteID == "" {
		http.Error(w, "website id required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader already wrote the error response.
		return
	}

	client := NewClient(h.hub, conn, websiteID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

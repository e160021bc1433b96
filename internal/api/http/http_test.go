package http

import (
	"bytes"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"avalon-be/internal/config"
	"avalon-be/internal/service"
	"avalon-be/internal/service/dto"
	"avalon-be/internal/service/game"
	"avalon-be/internal/state"
	"avalon-be/internal/storage/memory"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := memory.New()
	roomSvc := service.NewRoomService(store, service.RoomServiceOptions{SweepEvery: time.Hour})
	t.Cleanup(roomSvc.Close)

	app := NewApp(state.NewAppState(&config.AppConfig{}, store, roomSvc))
	if err := app.Build(); err != nil {
		t.Fatalf("build app: %v", err)
	}

	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)
	return srv
}

func createRoom(t *testing.T, srv *httptest.Server) dto.CreateRoomResponse {
	t.Helper()

	body, _ := json.Marshal(dto.CreateRoomRequest{RoomName: "camelot", CreatorName: "arthur"})
	resp, err := nethttp.Post(srv.URL+"/api/v1/rooms/create", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("create status = %d", resp.StatusCode)
	}

	var out dto.CreateRoomResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.RoomID == "" || out.Creator.ID == "" || out.Token == "" {
		t.Fatalf("incomplete create response %+v", out)
	}
	return out
}

type wireResponse struct {
	RespType string          `json:"response_type"`
	Data     json.RawMessage `json:"data"`
	ErrMsg   string          `json:"error_message"`
}

func readUntil(t *testing.T, conn *websocket.Conn, respType string) wireResponse {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var resp wireResponse
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("waiting for %s: %v", respType, err)
		}
		if resp.RespType == respType {
			return resp
		}
	}
}

func getView(srv *httptest.Server, roomID, playerID, token string) (*nethttp.Response, error) {
	req, err := nethttp.NewRequest(nethttp.MethodGet, srv.URL+"/api/v1/rooms/"+roomID+"/view?player_id="+playerID, nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set(PLAYER_TOKEN_HEADER, token)
	}
	return nethttp.DefaultClient.Do(req)
}

func dialJoin(t *testing.T, srv *httptest.Server, data map[string]string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/join"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	join := map[string]any{"request_type": game.REQ_JOIN_GAME, "data": data}
	if err := conn.WriteJSON(join); err != nil {
		t.Fatalf("write join: %v", err)
	}
	return conn
}

func TestCreateRoom_RejectsBadBody(t *testing.T) {
	srv := newTestServer(t)

	resp, err := nethttp.Post(srv.URL+"/api/v1/rooms/create", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != nethttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	resp, err = nethttp.Post(srv.URL+"/api/v1/rooms/create", "application/json", strings.NewReader(`{"room_name":"x"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != nethttp.StatusBadRequest {
		t.Fatalf("status without creator = %d, want 400", resp.StatusCode)
	}
}

func TestRoomView(t *testing.T) {
	srv := newTestServer(t)
	room := createRoom(t, srv)

	resp, err := getView(srv, room.RoomID, room.Creator.ID, room.Token)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var view game.GameView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.RoomID != room.RoomID || view.Stage != game.STAGE_LOBBY {
		t.Fatalf("view = %+v", view)
	}

	for _, token := range []string{"", "guess"} {
		resp, err := getView(srv, room.RoomID, room.Creator.ID, token)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != nethttp.StatusForbidden {
			t.Fatalf("creator view with token %q: status = %d, want 403", token, resp.StatusCode)
		}
	}

	for _, path := range []string{
		"/api/v1/rooms/nope/view",
		"/api/v1/rooms/" + room.RoomID + "/view?player_id=stranger",
	} {
		resp, err := nethttp.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != nethttp.StatusNotFound {
			t.Fatalf("%s: status = %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestListCharacters(t *testing.T) {
	srv := newTestServer(t)

	resp, err := nethttp.Get(srv.URL + "/api/v1/characters")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var out dto.CharactersResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Characters) != 8 || len(out.Setups) != 6 {
		t.Fatalf("characters %d setups %d", len(out.Characters), len(out.Setups))
	}
}

func TestWebsocket_JoinAndCommands(t *testing.T) {
	srv := newTestServer(t)
	room := createRoom(t, srv)

	conn := dialJoin(t, srv, map[string]string{
		"room_id":   room.RoomID,
		"player_id": room.Creator.ID,
		"token":     room.Token,
	})

	joined := readUntil(t, conn, game.RESP_JOIN_GAME)
	var jr game.JoinGameResponse
	if err := json.Unmarshal(joined.Data, &jr); err != nil {
		t.Fatalf("decode join: %v", err)
	}
	if jr.Joiner.ID != room.Creator.ID || !jr.Joiner.Host {
		t.Fatalf("joined as %+v", jr.Joiner)
	}

	// timeouts are server-internal
	if err := conn.WriteJSON(map[string]any{"request_type": game.REQ_TIMEOUT, "data": map[string]any{}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if resp := readUntil(t, conn, game.RESP_ERROR); resp.ErrMsg != "invalid request" {
		t.Fatalf("error = %q", resp.ErrMsg)
	}

	// one seated player cannot start a game
	if err := conn.WriteJSON(map[string]any{"request_type": game.REQ_START_GAME, "data": map[string]any{}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if resp := readUntil(t, conn, game.RESP_ERROR); !strings.Contains(resp.ErrMsg, "not enough seated players") {
		t.Fatalf("error = %q", resp.ErrMsg)
	}
}

func TestWebsocket_RejectsSeatTakeover(t *testing.T) {
	srv := newTestServer(t)
	room := createRoom(t, srv)

	for name, data := range map[string]map[string]string{
		"creator name":      {"room_id": room.RoomID, "joiner_name": "arthur"},
		"creator id":        {"room_id": room.RoomID, "player_id": room.Creator.ID},
		"creator id forged": {"room_id": room.RoomID, "player_id": room.Creator.ID, "token": "guess"},
	} {
		t.Run(name, func(t *testing.T) {
			conn := dialJoin(t, srv, data)
			if resp := readUntil(t, conn, game.RESP_ERROR); resp.ErrMsg == "" {
				t.Fatal("takeover answered without an error")
			}
		})
	}
}

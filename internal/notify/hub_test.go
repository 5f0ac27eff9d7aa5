package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marathon-league/internal/domain"
)

func dialHub(t *testing.T, server *httptest.Server, gameID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?game=" + gameID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, hub *Hub, gameID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.SubscriberCount(gameID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d subscribers for %s, got %d", want, gameID, hub.SubscriberCount(gameID))
}

func TestHub_BroadcastReachesSubscriber(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	conn := dialHub(t, server, "game-1")
	waitForSubscribers(t, hub, "game-1", 1)

	rows := []*domain.LeagueStanding{
		{GameID: "game-1", TeamID: "team-a", TotalPoints: 15, Rank: 1},
	}
	hub.BroadcastStandings("game-1", rows)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var update StandingsUpdate
	require.NoError(t, json.Unmarshal(payload, &update))
	assert.Equal(t, "game-1", update.GameID)
	require.Len(t, update.Standings, 1)
	assert.Equal(t, "team-a", update.Standings[0].TeamID)
	assert.Equal(t, 15, update.Standings[0].TotalPoints)
}

func TestHub_BroadcastIsScopedToGame(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	other := dialHub(t, server, "game-2")
	waitForSubscribers(t, hub, "game-2", 1)

	hub.BroadcastStandings("game-1", []*domain.LeagueStanding{
		{GameID: "game-1", TeamID: "team-a", TotalPoints: 10, Rank: 1},
	})

	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "subscriber of another game must not receive the update")
}

func TestHub_MissingGameParamRejected(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHub_UnsubscribeOnClose(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	conn := dialHub(t, server, "game-1")
	waitForSubscribers(t, hub, "game-1", 1)

	conn.Close()
	waitForSubscribers(t, hub, "game-1", 0)
}

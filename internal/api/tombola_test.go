package api

import (
	"net/http"
	"testing"

	"chip_games/internal/domain"
	"chip_games/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawRejectedOutsideRunning(t *testing.T) {
	db := testDB(t)
	hub := ws.NewHub("")
	rdb := testRedis()

	r := gin.New()
	r.POST("/rooms/:code/draw", authAs(1), DrawHandler(db, rdb, hub))

	tests := []struct {
		name   string
		code   string
		status string
	}{
		{"lobby room", "4001", domain.RoomLobby},
		{"finished room", "4002", domain.RoomFinished},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room := domain.Room{Code: tt.code, HostID: 1, Status: tt.status}
			require.NoError(t, db.Create(&room).Error)

			w := performRequest(r, http.MethodPost, "/rooms/"+tt.code+"/draw", "")
			assert.Equal(t, http.StatusBadRequest, w.Code)

			// The rejected draw left the history untouched
			var draws int64
			require.NoError(t, db.Model(&domain.TombolaDraw{}).
				Where("room_id = ?", room.ID).Count(&draws).Error)
			assert.Equal(t, int64(0), draws)
		})
	}
}

func TestDrawRejectedForNonHost(t *testing.T) {
	db := testDB(t)
	hub := ws.NewHub("")
	rdb := testRedis()

	room := domain.Room{Code: "4003", HostID: 1, Status: domain.RoomRunning}
	require.NoError(t, db.Create(&room).Error)

	// User 2 joined the room but does not host it
	r := gin.New()
	r.POST("/rooms/:code/draw", authAs(2), DrawHandler(db, rdb, hub))

	w := performRequest(r, http.MethodPost, "/rooms/4003/draw", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	var draws int64
	require.NoError(t, db.Model(&domain.TombolaDraw{}).Count(&draws).Error)
	assert.Equal(t, int64(0), draws)
}

func TestRoomLifecycleEndpoints(t *testing.T) {
	db := testDB(t)
	hub := ws.NewHub("")
	rdb := testRedis()

	r := gin.New()
	r.POST("/rooms/:code/start", authAs(1), StartRoomHandler(db, rdb, hub))
	r.POST("/rooms/:code/draw", authAs(1), DrawHandler(db, rdb, hub))
	r.POST("/rooms/:code/finish", authAs(1), FinishRoomHandler(db, rdb, hub))

	room := domain.Room{Code: "4004", HostID: 1, Status: domain.RoomLobby}
	require.NoError(t, db.Create(&room).Error)

	// The host walks the room forward: lobby -> running -> finished
	w := performRequest(r, http.MethodPost, "/rooms/4004/start", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var current domain.Room
	require.NoError(t, db.First(&current, room.ID).Error)
	assert.Equal(t, domain.RoomRunning, current.Status)

	// Running rooms accept draws
	w = performRequest(r, http.MethodPost, "/rooms/4004/draw", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var draws int64
	require.NoError(t, db.Model(&domain.TombolaDraw{}).Where("room_id = ?", room.ID).Count(&draws).Error)
	assert.Equal(t, int64(1), draws)

	w = performRequest(r, http.MethodPost, "/rooms/4004/finish", "")
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, db.First(&current, room.ID).Error)
	assert.Equal(t, domain.RoomFinished, current.Status)

	// Finished is terminal: no restart, no regression
	w = performRequest(r, http.MethodPost, "/rooms/4004/start", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NoError(t, db.First(&current, room.ID).Error)
	assert.Equal(t, domain.RoomFinished, current.Status)
}

package handlers

import (
	"net/http"

	"github.com/camden-git/echobackend/realtime"
)

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StatusStream upgrades to a websocket that receives the caller's entry status events
func StatusStream(hub *realtime.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		if !ok {
			WriteAPIError(w, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
			return
		}
		hub.ServeWS(w, r, userID)
	}
}

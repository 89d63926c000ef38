package util

import (
	"encoding/json"
	"net/http"
)

type APIMessage struct {
	Msg string `json:"msg"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError emits the {"msg": ...} error shape every endpoint uses.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, APIMessage{Msg: msg})
}

package platformtest

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (p *Platform) handleQuery(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"revolt": "0.8.0",
		"features": map[string]any{
			"captcha": map[string]any{"enabled": false, "key": ""},
			"email":   false,
			"autumn":  map[string]any{"enabled": true, "url": p.UploadURL()},
			"january": map[string]any{"enabled": false, "url": ""},
		},
		"ws":    p.WebsocketURL(),
		"app":   p.Server.URL,
		"vapid": "",
	})
}

func (p *Platform) handleLogin(w http.ResponseWriter, r *http.Request) {
	var login struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		FriendlyName string `json:"friendly_name"`
		MFATicket    string `json:"mfa_ticket"`
		MFAResponse  *struct {
			TOTPCode     string `json:"totp_code"`
			RecoveryCode string `json:"recovery_code"`
			Password     string `json:"password"`
		} `json:"mfa_response"`
	}
	if err := json.NewDecoder(r.Body).Decode(&login); err != nil {
		WriteError(w, http.StatusBadRequest, "FailedValidation")
		return
	}

	p.mutex.Lock()
	email, password, mfa := p.email, p.password, p.mfa
	p.mutex.Unlock()

	success := map[string]any{
		"result":  "Success",
		"_id":     "SESSION",
		"user_id": p.Self.ID,
		"token":   p.Token,
		"name":    login.FriendlyName,
	}

	if login.MFATicket != "" {
		if login.MFATicket != "TICKET" || login.MFAResponse == nil || login.MFAResponse.TOTPCode != "123456" {
			WriteError(w, http.StatusUnauthorized, "InvalidToken")
			return
		}
		WriteJSON(w, http.StatusOK, success)
		return
	}

	if login.Email != email || login.Password != password {
		WriteError(w, http.StatusUnauthorized, "InvalidCredentials")
		return
	}
	if mfa {
		WriteJSON(w, http.StatusOK, map[string]any{
			"result":          "MFA",
			"ticket":          "TICKET",
			"allowed_methods": []string{"Totp", "Recovery"},
		})
		return
	}
	WriteJSON(w, http.StatusOK, success)
}

func (p *Platform) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	p.mutex.Lock()
	onboarding := p.onboarding
	p.mutex.Unlock()

	WriteJSON(w, http.StatusOK, map[string]bool{"onboarding": onboarding})
}

func (p *Platform) handleSelf(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, p.Self)
}

func (p *Platform) handleUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	p.mutex.Lock()
	user, ok := p.users[userID]
	p.mutex.Unlock()

	if userID == p.Self.ID {
		user, ok = p.Self, true
	}
	if !ok {
		WriteError(w, http.StatusNotFound, "NotFound")
		return
	}
	WriteJSON(w, http.StatusOK, user)
}

func (p *Platform) handleTyping(start bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channelID := chi.URLParam(r, "channelID")

		p.mutex.Lock()
		status := p.typingStatus
		if status == 0 {
			if start {
				p.typingStarts[channelID]++
			} else {
				p.typingStops[channelID]++
			}
		}
		p.mutex.Unlock()

		if status != 0 {
			WriteError(w, status, "InternalError")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (p *Platform) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "FailedValidation")
		return
	}
	file.Close()

	WriteJSON(w, http.StatusOK, map[string]string{"id": chi.URLParam(r, "tag") + "-upload"})
}

package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hlhsinfo/hlhsinfo-backend/internal/broker"
	"github.com/hlhsinfo/hlhsinfo-backend/internal/portal"
	"github.com/hlhsinfo/hlhsinfo-backend/internal/token"
)

const helloMessage = "Hello from HLHSInfo Server!"

// Handler serves the broker's HTTP endpoints.
type Handler struct {
	broker   *broker.Broker
	provider string
}

// NewHandler creates the endpoint handler.
func NewHandler(b *broker.Broker, provider string) *Handler {
	return &Handler{broker: b, provider: provider}
}

// AliveResponse answers the liveness endpoints.
type AliveResponse struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Provider  string `json:"provider"`
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Message   string `json:"message"`
	AuthToken string `json:"authtoken"`
}

// ProfileShortResponse wraps the cached profile snapshot.
type ProfileShortResponse struct {
	Message string                 `json:"message"`
	Data    token.UserProfileShort `json:"data"`
}

// ProfileResponse wraps the full profile.
type ProfileResponse struct {
	Message string          `json:"message"`
	Data    *portal.Profile `json:"data"`
}

// AvailableScoreResponse wraps the exam list.
type AvailableScoreResponse struct {
	Message string               `json:"message"`
	Data    []portal.ScoreOption `json:"data"`
}

// ScoreResponse wraps one exam's scores.
type ScoreResponse struct {
	Message string              `json:"message"`
	Data    *portal.ScoreDetail `json:"data"`
}

// ConductResponse wraps the conduct records.
type ConductResponse struct {
	Message string                `json:"message"`
	Data    *portal.ConductRecord `json:"data"`
}

// AttendanceResponse wraps the attendance records.
type AttendanceResponse struct {
	Message string             `json:"message"`
	Data    *portal.Attendance `json:"data"`
}

// Alive answers the liveness probe.
func (h *Handler) Alive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AliveResponse{
		Message:   helloMessage,
		Timestamp: timestampMs(),
		Provider:  h.provider,
	})
}

// GetLoginInfo probes a caller-supplied host and opens a handshake.
func (h *Handler) GetLoginInfo(w http.ResponseWriter, r *http.Request) {
	host := r.URL.Query().Get("host")
	if host == "" {
		writeError(w, r, http.StatusBadRequest, "Wrong arguments", "Argument: host")
		return
	}

	info, err := h.broker.Discover(r.Context(), host)
	if err != nil {
		writeBrokerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// GetLoginCaptcha relays the captcha image for the handshake's session.
func (h *Handler) GetLoginCaptcha(w http.ResponseWriter, r *http.Request) {
	hs := HandshakeFromContext(r.Context())

	image, err := h.broker.Captcha(r.Context(), hs)
	if err != nil {
		writeBrokerError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/gif")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(image)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Vcode    string `json:"vcode"`
}

// decodeLogin accepts the credentials as JSON or as a classic form body.
func decodeLogin(r *http.Request) (loginRequest, bool) {
	var req loginRequest

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, false
		}
		return req, true
	}

	if err := r.ParseForm(); err != nil {
		return req, false
	}
	req.Username = r.PostForm.Get("username")
	req.Password = r.PostForm.Get("password")
	req.Vcode = r.PostForm.Get("vcode")
	return req, true
}

// Login submits the credentials upstream and issues a session credential.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	hs := HandshakeFromContext(r.Context())

	req, ok := decodeLogin(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, msgBadRequest, "Request body")
		return
	}

	var missing []string
	if req.Username == "" {
		missing = append(missing, "username")
	}
	if req.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		writeError(w, r, http.StatusBadRequest, "Argument is not satisfied",
			"Argument: "+strings.Join(missing, ", "))
		return
	}

	result, err := h.broker.Login(r.Context(), hs, req.Username, req.Password, req.Vcode)
	if err != nil {
		writeBrokerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Message:   "Login successful!",
		AuthToken: result.AuthToken,
	})
}

// GetUserInfoShort returns the profile snapshot embedded in the session
// credential. No upstream request is made.
func (h *Handler) GetUserInfoShort(w http.ResponseWriter, r *http.Request) {
	sc := SessionFromContext(r.Context())

	writeJSON(w, http.StatusOK, ProfileShortResponse{
		Message: "Get user profile short successful",
		Data:    sc.User,
	})
}

// GetUserInfo fetches the full profile from the portal.
func (h *Handler) GetUserInfo(w http.ResponseWriter, r *http.Request) {
	sc := SessionFromContext(r.Context())

	profile, err := h.broker.Profile(r.Context(), sc)
	if err != nil {
		writeBrokerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{
		Message: "Get user profile successful",
		Data:    profile,
	})
}

// GetAvailableScore lists the exams with published scores.
func (h *Handler) GetAvailableScore(w http.ResponseWriter, r *http.Request) {
	sc := SessionFromContext(r.Context())

	scores, err := h.broker.AvailableScores(r.Context(), sc)
	if err != nil {
		writeBrokerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AvailableScoreResponse{
		Message: "Get available score data successful",
		Data:    scores,
	})
}

// GetScoreInfo fetches one exam's scores, identified by query parameters.
func (h *Handler) GetScoreInfo(w http.ResponseWriter, r *http.Request) {
	sc := SessionFromContext(r.Context())

	query := r.URL.Query()
	q := broker.ScoreQuery{
		Year:   query.Get("year"),
		Term:   query.Get("term"),
		TestID: query.Get("testID"),
	}
	if q.Year == "" || q.Term == "" || q.TestID == "" || query.Get("times") == "" {
		writeError(w, r, http.StatusBadRequest, "Missing one or more arguments", "Arguments")
		return
	}

	detail, err := h.broker.ScoreDetail(r.Context(), sc, q)
	if err != nil {
		writeBrokerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ScoreResponse{
		Message: "Get score info successful",
		Data:    detail,
	})
}

// GetRewAndPun fetches the conduct records.
func (h *Handler) GetRewAndPun(w http.ResponseWriter, r *http.Request) {
	sc := SessionFromContext(r.Context())

	record, err := h.broker.Conduct(r.Context(), sc)
	if err != nil {
		writeBrokerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ConductResponse{
		Message: "Get reward and punish successful",
		Data:    record,
	})
}

// GetLack fetches the attendance records.
func (h *Handler) GetLack(w http.ResponseWriter, r *http.Request) {
	sc := SessionFromContext(r.Context())

	att, err := h.broker.Attendance(r.Context(), sc)
	if err != nil {
		writeBrokerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AttendanceResponse{
		Message: "Get lack successful",
		Data:    att,
	})
}

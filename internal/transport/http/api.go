package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"hanzi-quiz-service/internal/app"
	"hanzi-quiz-service/internal/domain"
	"hanzi-quiz-service/internal/i18n"
)

// Authenticator checks login credentials.
type Authenticator interface {
	Authenticate(username, password string) (string, error)
}

// TokenIssuer mints API tokens after a successful login.
type TokenIssuer interface {
	Issue(username string) (string, error)
}

// StatsProvider reports a user's learning progress.
type StatsProvider interface {
	Stats(userID string) app.UserStats
}

// LoginRecorder counts login attempts; optional.
type LoginRecorder interface {
	LoginAttempt(success bool)
}

// API serves the REST endpoints under /api/v1.
type API struct {
	service    *app.QuizService
	gate       Authenticator
	tokens     TokenIssuer
	verifier   TokenVerifier
	prefs      *i18n.Preferences
	translator *i18n.Translator
	stats      StatsProvider
	logins     LoginRecorder
}

// APIDeps bundles the collaborators of API.
type APIDeps struct {
	Service    *app.QuizService
	Gate       Authenticator
	Tokens     TokenIssuer
	Verifier   TokenVerifier
	Prefs      *i18n.Preferences
	Translator *i18n.Translator
	Stats      StatsProvider
	Logins     LoginRecorder
}

func NewAPI(deps APIDeps) *API {
	return &API{
		service:    deps.Service,
		gate:       deps.Gate,
		tokens:     deps.Tokens,
		verifier:   deps.Verifier,
		prefs:      deps.Prefs,
		translator: deps.Translator,
		stats:      deps.Stats,
		logins:     deps.Logins,
	}
}

// Register mounts public and protected routes on r.
func (a *API) Register(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/login", a.Login).Methods("POST")
	api.HandleFunc("/i18n/{lang}", a.Translations).Methods("GET")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(AuthMiddleware(a.verifier))
	protected.HandleFunc("/exercises", a.ListExercises).Methods("GET")
	protected.HandleFunc("/preferences/language", a.GetLanguage).Methods("GET")
	protected.HandleFunc("/preferences/language", a.SetLanguage).Methods("PUT")
	protected.HandleFunc("/stats", a.GetStats).Methods("GET")
	protected.HandleFunc("/sessions", a.StartSession).Methods("POST")
	protected.HandleFunc("/sessions/{id}", a.GetSession).Methods("GET")
	protected.HandleFunc("/sessions/{id}", a.EndSession).Methods("DELETE")
	protected.HandleFunc("/sessions/{id}/answer", a.SubmitAnswer).Methods("POST")
	protected.HandleFunc("/sessions/{id}/advance", a.Advance).Methods("POST")
	protected.HandleFunc("/sessions/{id}/restart", a.Restart).Methods("POST")
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Language string `json:"language"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	loc := a.translator.For(requestLanguage(req.Language))

	user, err := a.gate.Authenticate(req.Username, req.Password)
	if a.logins != nil {
		a.logins.LoginAttempt(err == nil)
	}
	if err != nil {
		writeError(w, loc, err)
		return
	}
	token, err := a.tokens.Issue(user)
	if err != nil {
		writeError(w, loc, err)
		return
	}
	if req.Language != "" {
		if _, err := a.prefs.SetLanguage(r.Context(), user, req.Language); err != nil {
			log.Printf("save language for %s: %v", user, err)
		}
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Username: user, Message: loc.T("welcome", "username", user)})
}

func (a *API) Translations(w http.ResponseWriter, r *http.Request) {
	lang, err := domain.ParseLanguage(mux.Vars(r)["lang"])
	if err != nil {
		writeError(w, a.translator.For(i18n.DefaultLanguage), err)
		return
	}
	writeJSON(w, http.StatusOK, a.translator.Table(lang))
}

type exerciseView struct {
	Kind        domain.ExerciseKind `json:"kind"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Questions   int                 `json:"questions"`
	TimeLimit   int                 `json:"timeLimit"`
	TimerMode   domain.TimerMode    `json:"timerMode"`
	AutoAdvance int                 `json:"autoAdvance"`
}

var exerciseText = map[domain.ExerciseKind][2]string{
	domain.ExerciseWordMeaning: {"wordMeaning", "wordMeaningDesc"},
	domain.ExerciseReverse:     {"reverseWordMeaning", "reverseWordMeaningDesc"},
	domain.ExerciseListening:   {"listeningExercise", "listeningDesc"},
	domain.ExerciseWriting:     {"writingExercise", "writingDesc"},
	domain.ExerciseGeography:   {"geographyExercise", "geographyDesc"},
}

func (a *API) ListExercises(w http.ResponseWriter, r *http.Request) {
	loc := a.localizer(r)
	list := a.service.Exercises()
	out := make([]exerciseView, 0, len(list))
	for _, ex := range list {
		text := exerciseText[ex.Kind]
		out = append(out, exerciseView{
			Kind:        ex.Kind,
			Title:       loc.T(text[0]),
			Description: loc.T(text[1]),
			Questions:   ex.Size,
			TimeLimit:   ex.TimeLimit,
			TimerMode:   ex.Mode,
			AutoAdvance: ex.AutoAdvance,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type languageBody struct {
	Language string `json:"language"`
}

func (a *API) GetLanguage(w http.ResponseWriter, r *http.Request) {
	lang, err := a.prefs.Language(r.Context(), userFromContext(r.Context()))
	if err != nil {
		log.Printf("read language: %v", err)
	}
	writeJSON(w, http.StatusOK, languageBody{Language: string(lang)})
}

func (a *API) SetLanguage(w http.ResponseWriter, r *http.Request) {
	var body languageBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	lang, err := a.prefs.SetLanguage(r.Context(), userFromContext(r.Context()), body.Language)
	if err != nil {
		writeError(w, a.localizer(r), err)
		return
	}
	writeJSON(w, http.StatusOK, languageBody{Language: string(lang)})
}

func (a *API) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.stats.Stats(userFromContext(r.Context())))
}

type startRequest struct {
	Exercise domain.ExerciseKind `json:"exercise"`
	Level    domain.Level        `json:"level"`
}

func (a *API) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	snap, err := a.service.Start(r.Context(), userFromContext(r.Context()), req.Exercise, app.StartOptions{Level: req.Level})
	if err != nil {
		writeError(w, a.localizer(r), err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (a *API) GetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := a.service.Snapshot(r.Context(), userFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, a.localizer(r), err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := a.service.End(r.Context(), userFromContext(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(w, a.localizer(r), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type answerResponse struct {
	Result   domain.AnswerResult `json:"result"`
	Feedback string              `json:"feedback"`
}

func (a *API) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var answer domain.Answer
	if err := json.NewDecoder(r.Body).Decode(&answer); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	loc := a.localizer(r)
	res, err := a.service.Submit(r.Context(), userFromContext(r.Context()), mux.Vars(r)["id"], answer)
	if err != nil {
		writeError(w, loc, err)
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{Result: res, Feedback: feedback(loc, res)})
}

func (a *API) Advance(w http.ResponseWriter, r *http.Request) {
	a.sessionAction(w, r, a.service.Advance)
}

func (a *API) Restart(w http.ResponseWriter, r *http.Request) {
	a.sessionAction(w, r, a.service.Restart)
}

type sessionOp func(ctx context.Context, userID, sessionID string) (domain.SessionSnapshot, error)

func (a *API) sessionAction(w http.ResponseWriter, r *http.Request, op sessionOp) {
	snap, err := op(r.Context(), userFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, a.localizer(r), err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// localizer picks the caller's saved language, falling back to English.
func (a *API) localizer(r *http.Request) i18n.Localizer {
	lang, err := a.prefs.Language(r.Context(), userFromContext(r.Context()))
	if err != nil {
		log.Printf("read language: %v", err)
	}
	return a.translator.For(lang)
}

func requestLanguage(code string) domain.Language {
	if lang, err := domain.ParseLanguage(code); err == nil {
		return lang
	}
	return i18n.DefaultLanguage
}

func feedback(loc i18n.Localizer, res domain.AnswerResult) string {
	switch {
	case res.TimedOut:
		return loc.T("timeUp")
	case res.Correct:
		return loc.T("correctFeedback")
	}
	return loc.T("incorrectFeedback", "answer", res.CorrectAnswer)
}

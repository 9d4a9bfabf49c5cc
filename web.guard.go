package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// GuardOutcome is what a protected page does for a given session state.
type GuardOutcome int

const (
	GuardLoading GuardOutcome = iota
	GuardAllow
	GuardRedirect
)

// GuardDecision is the outcome plus the redirect location if any.
type GuardDecision struct {
	Outcome  GuardOutcome
	Location string
}

// DecideGuard maps a session state to the behavior of a protected page.
// Anonymous visitors are sent to the login page which brings them back
// to requestURI once logged in.
func DecideGuard(state SessionState, requestURI string) GuardDecision {
	switch state {
	case SessionAuthenticated:
		return GuardDecision{Outcome: GuardAllow}
	case SessionAnonymous:
		return GuardDecision{Outcome: GuardRedirect, Location: LoginRedirectURL(requestURI)}
	default:
		return GuardDecision{Outcome: GuardLoading}
	}
}

// RequireSession protects a page. It waits a short time for the session to
// resolve, then renders a self refreshing loading page if it is still unknown.
func (web *WebHandler) RequireSession(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		v := GetVisitorFromContext(r.Context())
		if v == nil {
			web.redirect(w, r, LoginRedirectURL(r.URL.RequestURI()))
			return
		}
		state := v.Session.Await(r.Context(), web.config.Session.ResolveWait)
		decision := DecideGuard(state, r.URL.RequestURI())
		switch decision.Outcome {
		case GuardAllow:
			next(w, r, ps)
		case GuardRedirect:
			web.redirect(w, r, decision.Location)
		default:
			requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
			web.writePage(w, r, http.StatusOK, "loading", &PageData{
				Title:     "Loading",
				RequestID: requestID,
				Refresh:   1,
				Session:   v.Session.Snapshot(),
			})
		}
	}
}

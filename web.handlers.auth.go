package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
)

// LoginView feeds the login page.
type LoginView struct {
	From      string
	Email     string
	Error     string
	Errors    ValidationErrors
	Providers []string
}

// RegisterView feeds the register page.
type RegisterView struct {
	Data   RegisterData
	Error  string
	Errors ValidationErrors
}

func (web *WebHandler) providers() []string {
	for _, s := range web.config.Auth.Strategies {
		if s == IdentityProviderKey {
			return web.config.Auth.Providers
		}
	}
	return nil
}

// LoginPage shows the login form. Visitors already logged in are sent on.
func (web *WebHandler) LoginPage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	v := GetVisitorFromContext(r.Context())
	from := r.URL.Query().Get("from")
	if v.Session.Await(r.Context(), web.config.Session.ResolveWait) == SessionAuthenticated {
		web.redirect(w, r, LocalRedirectTarget(from, "/"))
		return
	}
	web.render(w, r, http.StatusOK, "login", "Log in", LoginView{From: from, Providers: web.providers()})
}

// Login authenticates with the posted credentials.
func (web *WebHandler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	v := GetVisitorFromContext(r.Context())
	creds := Credentials{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	view := LoginView{From: r.PostFormValue("from"), Email: creds.Email, Providers: web.providers()}

	if err := ValidateInput(creds); err != nil {
		var verrs ValidationErrors
		errors.As(err, &verrs)
		view.Errors = verrs
		web.render(w, r, http.StatusBadRequest, "login", "Log in", view)
		return
	}

	if _, err := v.Session.Login(r.Context(), creds); err != nil {
		view.Error = web.storeFailure(r, v, err, "Login failed")
		v.Notify(FlashError, "Login failed")
		web.render(w, r, http.StatusUnauthorized, "login", "Log in", view)
		return
	}
	v.Notify(FlashSuccess, "Logged in successfully")
	web.redirect(w, r, LocalRedirectTarget(view.From, "/"))
}

// ProviderLogin exchanges the ID token posted back by an identity provider.
func (web *WebHandler) ProviderLogin(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	v := GetVisitorFromContext(r.Context())
	provider := ps.ByName("provider")
	creds := ProviderCredentials{Provider: provider, IDToken: r.PostFormValue("credential")}
	from := r.PostFormValue("from")
	label := capitalize(provider)

	if err := ValidateInput(creds); err != nil {
		v.Notify(FlashError, label+" login failed")
		web.render(w, r, http.StatusBadRequest, "login", "Log in", LoginView{From: from, Providers: web.providers(), Error: "Missing identity provider credential"})
		return
	}

	if _, err := v.Session.LoginWithProvider(r.Context(), creds); err != nil {
		msg := web.storeFailure(r, v, err, "Provider login failed")
		v.Notify(FlashError, label+" login failed")
		web.render(w, r, http.StatusUnauthorized, "login", "Log in", LoginView{From: from, Providers: web.providers(), Error: msg})
		return
	}
	v.Notify(FlashSuccess, "Logged in with "+label)
	web.redirect(w, r, LocalRedirectTarget(from, "/"))
}

// RegisterPage shows the account creation form.
func (web *WebHandler) RegisterPage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	web.render(w, r, http.StatusOK, "register", "Register", RegisterView{})
}

// Register creates the account then logs the visitor in.
func (web *WebHandler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	v := GetVisitorFromContext(r.Context())
	data := RegisterData{
		Name:     strings.TrimSpace(r.PostFormValue("name")),
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	view := RegisterView{Data: RegisterData{Name: data.Name, Username: data.Username, Email: data.Email}}

	if err := ValidateInput(data); err != nil {
		var verrs ValidationErrors
		errors.As(err, &verrs)
		view.Errors = verrs
		web.render(w, r, http.StatusBadRequest, "register", "Register", view)
		return
	}

	if _, err := v.Session.Register(r.Context(), data); err != nil {
		view.Error = web.storeFailure(r, v, err, "Registration failed")
		v.Notify(FlashError, "Registration failed")
		web.render(w, r, http.StatusBadRequest, "register", "Register", view)
		return
	}
	v.Notify(FlashSuccess, "Account created!")
	web.redirect(w, r, "/")
}

// Logout forgets the visitor token and goes back home.
func (web *WebHandler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	v := GetVisitorFromContext(r.Context())
	if err := v.Session.Logout(r.Context()); err != nil {
		web.storeFailure(r, v, err, "Logout failed")
	}
	v.Notify(FlashSuccess, "Logged out")
	web.redirect(w, r, "/")
}

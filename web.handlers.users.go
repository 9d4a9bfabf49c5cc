package main

import (
	"net/http"
	"net/url"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/sync/errgroup"
)

// ActivityView feeds the activity_feed partial.
type ActivityView struct {
	Items []Activity
	Error string
}

// ProfileView feeds the profile page of any user.
type ProfileView struct {
	User        *Profile
	IsSelf      bool
	IsFollowing bool
	Followers   []UserRef
	Following   []UserRef
	Lists       []ReadingList
	ListsError  string
	Activity    ActivityView
}

// Profile renders the page of the logged in user.
func (web *WebHandler) Profile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	v := GetVisitorFromContext(r.Context())
	web.renderProfile(w, r, v, currentUser(v).ID)
}

// UserProfile renders the public page of a user.
func (web *WebHandler) UserProfile(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	web.renderProfile(w, r, GetVisitorFromContext(r.Context()), ps.ByName("id"))
}

func (web *WebHandler) renderProfile(w http.ResponseWriter, r *http.Request, v *Visitor, userID string) {
	ctx := r.Context()
	me := currentUser(v)

	user, err := v.Users.GetUser(ctx, userID)
	switch {
	case IsNotFound(err):
		web.renderError(w, r, http.StatusNotFound, "User not found", "The user you are looking for does not exist.")
		return
	case err != nil:
		msg := web.storeFailure(r, v, err, "Failed to fetch user")
		web.renderError(w, r, http.StatusBadGateway, "Profile unavailable", msg)
		return
	}

	view := ProfileView{User: user, IsSelf: me != nil && me.ID == user.ID}

	var g errgroup.Group
	g.Go(func() error {
		followers, err := v.Users.GetFollowers(ctx, user.ID)
		if err == nil {
			view.Followers = followers
		}
		return nil
	})
	g.Go(func() error {
		following, err := v.Users.GetFollowing(ctx, user.ID)
		if err == nil {
			view.Following = following
		}
		return nil
	})
	g.Go(func() error {
		items, err := v.Users.GetActivity(ctx, user.ID)
		if err != nil {
			view.Activity.Error = ErrorMessage(err, "Failed to load activity")
			return nil
		}
		view.Activity.Items = items
		return nil
	})
	g.Go(func() error {
		lists, err := v.Lists.GetUserReadingLists(ctx, user.ID)
		if err != nil {
			view.ListsError = ErrorMessage(err, "Failed to fetch reading lists")
			return nil
		}
		view.Lists = lists
		return nil
	})
	_ = g.Wait()

	if me != nil {
		for _, f := range view.Followers {
			if f.ID == me.ID {
				view.IsFollowing = true
				break
			}
		}
	}
	web.render(w, r, http.StatusOK, "profile", user.DisplayName(), view)
}

// Follow makes the logged in user follow another one.
func (web *WebHandler) Follow(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	v := GetVisitorFromContext(r.Context())
	id := ps.ByName("id")
	if err := v.Users.Follow(r.Context(), id); err != nil {
		v.Notify(FlashError, web.storeFailure(r, v, err, "Failed to follow user"))
	} else {
		v.Notify(FlashSuccess, "You are now following this user")
	}
	web.redirect(w, r, "/users/"+url.PathEscape(id))
}

// Unfollow stops following a user.
func (web *WebHandler) Unfollow(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	v := GetVisitorFromContext(r.Context())
	id := ps.ByName("id")
	if err := v.Users.Unfollow(r.Context(), id); err != nil {
		v.Notify(FlashError, web.storeFailure(r, v, err, "Failed to unfollow user"))
	} else {
		v.Notify(FlashSuccess, "You unfollowed this user")
	}
	web.redirect(w, r, "/users/"+url.PathEscape(id))
}

package httpapi

import (
	"github.com/weathervault/weathervault/internal/authcore"
)

// Output shaping is explicit: view structs decide exactly which fields leave
// the process. The password hash and active flag are never serialized.

type userView struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles"`
}

type authView struct {
	User   userView           `json:"user"`
	Tokens authcore.TokenPair `json:"tokens"`
}

type apiKeyView struct {
	Key         string   `json:"key"`
	Version     int      `json:"version"`
	Permissions []string `json:"permissions"`
	Comments    []string `json:"comments"`
}

func toUserView(user authcore.User) userView {
	roles := make([]string, 0, len(user.Roles))
	for _, code := range user.Roles {
		roles = append(roles, string(code))
	}
	return userView{
		ID:    user.ID.String(),
		Email: user.Email,
		Name:  user.Name,
		Roles: roles,
	}
}

func toUserViews(users []authcore.User) []userView {
	views := make([]userView, 0, len(users))
	for _, user := range users {
		views = append(views, toUserView(user))
	}
	return views
}

func toAPIKeyView(apiKey authcore.APIKey) apiKeyView {
	permissions := make([]string, 0, len(apiKey.Permissions))
	for _, permission := range apiKey.Permissions {
		permissions = append(permissions, string(permission))
	}
	return apiKeyView{
		Key:         apiKey.Key,
		Version:     apiKey.Version,
		Permissions: permissions,
		Comments:    apiKey.Comments,
	}
}

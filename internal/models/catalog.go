package models

import "time"

// Permission lists the roles granted one permission.
type Permission struct {
	ID    string   `json:"_id"`
	Roles []string `json:"roles"`
}

// Role is a named set of permissions.
type Role struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Scope       string `json:"scope"`
	Description string `json:"description,omitempty"`
	Protected   bool   `json:"protected"`
}

// Emoji is a custom emoji uploaded to a server.
type Emoji struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Aliases   []string  `json:"aliases"`
	Extension string    `json:"extension"`
	UpdatedAt time.Time `json:"_updatedAt"`
}

// SlashCommand is a chat command offered by the server.
type SlashCommand struct {
	Command     string `json:"command"`
	Params      string `json:"params,omitempty"`
	Description string `json:"description,omitempty"`
	ClientOnly  bool   `json:"clientOnly"`
}

// Presence is the online status of a user.
type Presence struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Status   string `json:"status"`
}

// PushToken is a device token registered for push notifications.
type PushToken struct {
	Type    string `json:"type" validate:"oneof=gcm apn"`
	Value   string `json:"value" validate:"required"`
	AppName string `json:"appName" validate:"required"`
}

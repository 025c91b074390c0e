package models

import "time"

// Shop is the tenant record for a storefront. Widget settings are served to
// the storefront script verbatim.
type Shop struct {
	ShopID           string    `json:"shop_id"`
	ShopDomain       string    `json:"shop_domain"`
	TryOnEnabled     bool      `json:"try_on_enabled"`
	ButtonText       string    `json:"button_text"`
	ButtonColor      string    `json:"button_color"`
	PopupTitle       string    `json:"popup_title"`
	MaxFileSize      int64     `json:"max_file_size"`
	AllowedFileTypes string    `json:"allowed_file_types"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Defaults applied when a shop row is first created.
const (
	DefaultButtonText       = "Try On"
	DefaultButtonColor      = "#007acc"
	DefaultPopupTitle       = "Virtual Try-On"
	DefaultMaxFileSize      = 5242880 // 5MB
	DefaultAllowedFileTypes = "image/jpeg,image/png,image/webp"
)

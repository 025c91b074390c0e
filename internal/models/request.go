package models

// TryOnSubmission is the form payload posted by the storefront widget.
// All fields are required.
type TryOnSubmission struct {
	Shop          string `form:"shop"`
	ProductID     string `form:"productId"`
	ProductTitle  string `form:"productTitle"`
	ProductImage  string `form:"productImage"`
	CustomerImage string `form:"customerImage"`
}

// Validate reports whether all required fields are present.
func (s *TryOnSubmission) Validate() bool {
	return s.Shop != "" && s.ProductID != "" && s.ProductTitle != "" &&
		s.ProductImage != "" && s.CustomerImage != ""
}

type UpdateSettingsRequest struct {
	TryOnEnabled     *bool   `json:"try_on_enabled,omitempty"`
	ButtonText       *string `json:"button_text,omitempty"`
	ButtonColor      *string `json:"button_color,omitempty"`
	PopupTitle       *string `json:"popup_title,omitempty"`
	MaxFileSize      *int64  `json:"max_file_size,omitempty"`
	AllowedFileTypes *string `json:"allowed_file_types,omitempty"`
}

package models

type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Mobile string `json:"mobile,omitempty"`
	Role   string `json:"role,omitempty"` // admin, organizer, buyer
}

// Contact returns the user's preferred contact as recipient info, used
// when a purchase does not spell out per-ticket recipients.
func (u *User) Contact() RecipientInfo {
	if u.Mobile != "" {
		return RecipientInfo{Type: RecipientMobile, Value: u.Mobile, Name: u.Name}
	}
	return RecipientInfo{Type: RecipientEmail, Value: u.Email, Name: u.Name}
}

package facebook

import "github.com/goliatone/go-auth-gateway/social"

type facebookUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Gender    string `json:"gender"`
	Birthday  string `json:"birthday"`
	Picture   struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

func mapProfile(info *facebookUser) *social.Profile {
	if info == nil {
		return nil
	}

	return &social.Profile{
		Provider:       ProviderName,
		ProviderUserID: info.ID,
		Email:          info.Email,
		FirstName:      info.FirstName,
		LastName:       info.LastName,
		Raw: map[string]any{
			"id":         info.ID,
			"email":      info.Email,
			"name":       info.Name,
			"first_name": info.FirstName,
			"last_name":  info.LastName,
			"gender":     info.Gender,
			"birthday":   info.Birthday,
			"picture":    info.Picture.Data.URL,
		},
	}
}

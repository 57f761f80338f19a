package google

import (
	"github.com/goliatone/go-authist"
	"github.com/goliatone/go-authist/social"
)

type fieldMetadata struct {
	Primary  bool `json:"primary"`
	Verified bool `json:"verified"`
}

type googleField struct {
	Value       string        `json:"value"`
	DisplayName string        `json:"displayName"`
	URL         string        `json:"url"`
	Metadata    fieldMetadata `json:"metadata"`
}

type googlePerson struct {
	ResourceName   string        `json:"resourceName"`
	Names          []googleField `json:"names"`
	EmailAddresses []googleField `json:"emailAddresses"`
	PhoneNumbers   []googleField `json:"phoneNumbers"`
	Photos         []googleField `json:"photos"`
}

// primary returns the entry flagged primary, or nil when none is.
func primary(fields []googleField) *googleField {
	for i := range fields {
		if fields[i].Metadata.Primary {
			return &fields[i]
		}
	}
	return nil
}

func mapProfile(person *googlePerson, phoneRegion string) *authist.Profile {
	if person == nil {
		return nil
	}

	profile := &authist.Profile{
		Provider: providerName,
		ID:       person.ResourceName,
		Raw: map[string]any{
			"resourceName": person.ResourceName,
		},
	}

	if email := primary(person.EmailAddresses); email != nil {
		profile.Email = email.Value
		profile.EmailVerified = email.Metadata.Verified
	}
	if name := primary(person.Names); name != nil {
		profile.DisplayName = name.DisplayName
	}
	if phone := primary(person.PhoneNumbers); phone != nil {
		profile.PhoneNumber = social.NormalizePhone(phone.Value, phoneRegion)
	}
	if photo := primary(person.Photos); photo != nil {
		profile.PhotoURL = photo.URL
	}

	return profile
}

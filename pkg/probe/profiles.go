package probe

import (
	"fmt"
	"sort"
	"strings"
)

// Profile is a named set of request headers, mostly a User-Agent variation
type Profile struct {
	Name    string
	Headers map[string]string
}

const (
	ProfileBrowser   = "browser"
	ProfileFacebook  = "facebook"
	ProfileGooglebot = "googlebot"
	ProfileGeneric   = "generic"
)

var profiles = map[string]Profile{
	ProfileBrowser: {
		Name: ProfileBrowser,
		Headers: map[string]string{
			"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		},
	},
	ProfileFacebook: {
		Name: ProfileFacebook,
		Headers: map[string]string{
			"User-Agent": "facebookexternalhit/1.1",
		},
	},
	ProfileGooglebot: {
		Name: ProfileGooglebot,
		Headers: map[string]string{
			"User-Agent": "Googlebot/2.1 (+http://www.google.com/bot.html)",
			"Accept":     "text/html",
		},
	},
	ProfileGeneric: {
		Name: ProfileGeneric,
		Headers: map[string]string{
			"User-Agent": "Mozilla/5.0",
		},
	},
}

// LookupProfile returns the profile with the given name (case-insensitive)
func LookupProfile(name string) (Profile, error) {
	p, ok := profiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Profile{}, fmt.Errorf("unknown header profile %q (valid: %s)", name, strings.Join(ProfileNames(), ", "))
	}
	return p.clone(), nil
}

// ProfileNames lists the known profile names in sorted order
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// With returns a copy of the profile's headers merged with extra.
// Extra headers win.
func (p Profile) With(extra map[string]string) map[string]string {
	out := make(map[string]string, len(p.Headers)+len(extra))
	for k, v := range p.Headers {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func (p Profile) clone() Profile {
	return Profile{Name: p.Name, Headers: p.With(nil)}
}

// Package share builds social share links for a calculator URL.
package share

import (
	"net/url"
	"strings"

	"github.com/iwvelando/sip-forecast/pkg/constants"
)

// Links holds one share URL per network.
type Links struct {
	URL      string `json:"url"`
	WhatsApp string `json:"whatsapp"`
	Facebook string `json:"facebook"`
	Telegram string `json:"telegram"`
	Twitter  string `json:"twitter"`
}

// CleanURL strips the query string and fragment, keeping origin and path.
func CleanURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

// Build returns share links for pageURL using the default title.
func Build(pageURL string) (Links, error) {
	return BuildWithTitle(pageURL, constants.ShareTitle)
}

// BuildWithTitle returns share links for pageURL with a custom message title.
func BuildWithTitle(pageURL, title string) (Links, error) {
	clean, err := CleanURL(pageURL)
	if err != nil {
		return Links{}, err
	}
	encodedURL := encodeURIComponent(clean)
	encodedTitle := encodeURIComponent(title)

	return Links{
		URL:      clean,
		WhatsApp: "https://api.whatsapp.com/send?text=" + encodeURIComponent(title+" "+clean),
		Facebook: "https://www.facebook.com/sharer/sharer.php?u=" + encodedURL,
		Telegram: "https://t.me/share/url?url=" + encodedURL + "&text=" + encodedTitle,
		Twitter:  "https://twitter.com/intent/tweet?url=" + encodedURL + "&text=" + encodedTitle,
	}, nil
}

// encodeURIComponent escapes like the browser function of the same name,
// leaving A-Z a-z 0-9 - _ . ! ~ * ' ( ) unescaped.
func encodeURIComponent(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	return unreserved.Replace(escaped)
}

var unreserved = strings.NewReplacer(
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

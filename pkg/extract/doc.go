// Package extract pulls image URLs and other fields out of upstream bodies.
//
// HTML pages are matched with patterns against the og:image meta tag and a
// known image host prefix. JSON bodies are read with sequences of optional
// nested key lookups where a missing key yields "" instead of an error.
package extract

import "errors"

var errMalformedToken = errors.New("token does not have three segments")

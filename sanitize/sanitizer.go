// Package sanitize cleans user supplied strings before they are stored.
package sanitize

import (
	"chat-relay/moderation"
	"html"
	"log/slog"
	"strings"

	"github.com/abadojack/whatlanggo"
	"github.com/microcosm-cc/bluemonday"
)

type Sanitizer struct {
	policy    *bluemonday.Policy
	moderator *moderation.Moderator
	log       *slog.Logger
}

// NewSanitizer strips all markup. A nil moderator disables word censoring.
func NewSanitizer(moderator *moderation.Moderator, log *slog.Logger) *Sanitizer {
	return &Sanitizer{
		policy:    bluemonday.StrictPolicy(),
		moderator: moderator,
		log:       log,
	}
}

// maxPasses bounds the strip/decode rounds of Sanitize.
const maxPasses = 8

var angleBrackets = strings.NewReplacer("<", "", ">", "")

// Sanitize removes every tag and trims surrounding whitespace. The relay
// stores plain text, so entities escaped by the policy are decoded again,
// and the policy runs over the decoded text until it no longer changes:
// markup sent as entities never comes back as live tags.
func (s *Sanitizer) Sanitize(input string) string {
	clean := input
	for range maxPasses {
		next := html.UnescapeString(s.policy.Sanitize(clean))
		if next == clean {
			return strings.TrimSpace(clean)
		}
		clean = next
	}
	return strings.TrimSpace(angleBrackets.Replace(clean))
}

// SanitizeText is Sanitize plus censoring of forbidden words in message text.
func (s *Sanitizer) SanitizeText(author, text string) string {
	clean := s.Sanitize(text)
	if s.moderator == nil || clean == "" {
		return clean
	}
	censored, words := s.moderator.Censor(clean)
	if len(words) > 0 {
		info := whatlanggo.Detect(clean)
		s.log.Warn("Censored message",
			"author", author,
			"words", len(words),
			"lang", info.Lang.Iso6391())
	}
	return censored
}

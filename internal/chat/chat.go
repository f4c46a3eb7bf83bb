// Package chat answers chat widget messages from a canned phrase table,
// falling back to a listing search.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/and161185/grader-market/internal/catalog"
	"github.com/and161185/grader-market/internal/events"
	"github.com/and161185/grader-market/internal/model"
	"go.uber.org/zap"
)

// MaxSearchResults caps the listing fallback.
const MaxSearchResults = 3

// Rule maps an example phrase to a canned answer.
type Rule struct {
	Phrase   string
	Response string
}

// DefaultRules is the built-in phrase table. Order matters: the first match wins.
var DefaultRules = []Rule{
	{"hello", "Hello! I can help you find graders and parts. Try a brand, a model or a part number."},
	{"hi", "Hi there! Looking for a grader or a spare part?"},
	{"graders", "We stock motor graders from Caterpillar, Komatsu, John Deere, Volvo and others. Open the gallery to browse them."},
	{"parts", "We carry cutting edges, end bits, ripper shanks, filters and more. Search by part number for the fastest result."},
	{"shipping", "We ship from our EU, Kenya and US yards. Freight is quoted per machine after you contact us."},
	{"delivery", "Delivery times depend on the stock country: usually 2 to 6 weeks door to door."},
	{"financing", "Financing and leasing can be arranged through our partners. Contact us with the listing you like."},
	{"price", "All prices are listed per unit. Use the price filter in the gallery to narrow your budget."},
	{"warranty", "Used machines are sold as inspected; new parts carry the manufacturer warranty."},
	{"inspection", "Every grader is inspected before listing. Ask us for the full inspection report."},
	{"contact", "You can reach us through the contact page or by phone during business hours."},
	{"thanks", "You're welcome! Anything else I can help with?"},
}

// DefaultReply is used when nothing else matches.
const DefaultReply = "I'm not sure about that. Try asking about graders, parts, shipping or financing, or search for a brand or part number."

// Responder produces chat replies.
type Responder struct {
	rules    []Rule
	listings func() []model.Listing
	pub      events.Publisher
	log      *zap.Logger
	now      func() time.Time
}

// NewResponder builds a Responder over rules. listings supplies the current catalog.
func NewResponder(rules []Rule, listings func() []model.Listing, pub events.Publisher, log *zap.Logger) *Responder {
	norm := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if p := normalize(r.Phrase); p != "" {
			norm = append(norm, Rule{Phrase: p, Response: r.Response})
		}
	}
	return &Responder{rules: norm, listings: listings, pub: pub, log: log.Named("chat"), now: time.Now}
}

// normalize lower-cases, strips punctuation and collapses whitespace.
func normalize(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '?' || r == '!' || r == '.' || r == ',' || r == ';' || r == ':':
			return ' '
		}
		return r
	}, strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

// Reply answers input. When consent is true the interaction is published for
// analytics; otherwise nothing about it leaves the process.
func (r *Responder) Reply(ctx context.Context, clientID, input string, consent bool) model.ChatReply {
	reply := r.answer(input)
	if consent {
		ev := events.ChatInteraction{
			ClientID: clientID,
			Input:    input,
			Source:   reply.Source,
			Results:  len(reply.Listings),
			At:       r.now().UTC(),
		}
		if err := r.pub.Publish(ctx, events.SubjectChatInteraction, ev); err != nil {
			r.log.Warn("chat analytics publish failed", zap.Error(err))
		}
	}
	return reply
}

func (r *Responder) answer(input string) model.ChatReply {
	in := normalize(input)
	if in == "" {
		return model.ChatReply{Reply: DefaultReply, Source: model.SourceDefault}
	}
	for _, rule := range r.rules {
		if in == rule.Phrase {
			return model.ChatReply{Reply: rule.Response, Source: model.SourceExact}
		}
	}
	for _, rule := range r.rules {
		if containsWord(in, rule.Phrase) {
			return model.ChatReply{Reply: rule.Response, Source: model.SourceSubstring}
		}
	}
	if found := catalog.Search(r.listings(), in, MaxSearchResults); len(found) > 0 {
		return model.ChatReply{Reply: searchReply(found), Source: model.SourceSearch, Listings: found}
	}
	return model.ChatReply{Reply: DefaultReply, Source: model.SourceDefault}
}

// containsWord reports whether phrase occurs in s starting at a word
// boundary. Trailing letters are allowed ("partsss" hits "parts"), leading
// ones are not, so "hi" does not fire inside "machine".
func containsWord(s, phrase string) bool {
	return strings.Contains(" "+s, " "+phrase)
}

func searchReply(found []model.Listing) string {
	var b strings.Builder
	if len(found) == 1 {
		b.WriteString("I found this listing:")
	} else {
		fmt.Fprintf(&b, "I found %d listings:", len(found))
	}
	for _, l := range found {
		fmt.Fprintf(&b, "\n- %s (%d)", l.Title, l.Price)
	}
	return b.String()
}

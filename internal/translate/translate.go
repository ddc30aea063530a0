// Package translate turns a final transcript in one language into text in
// another. Engines may fail; the Gateway never does.
package translate

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
)

// Engine defines the interface for translation providers.
type Engine interface {
	// Translate returns text translated from the source language to the
	// target language. Languages are BCP-47 tags such as "en-US".
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// Request is a single unit of translation work.
type Request struct {
	ID   string
	Text string
	From string
	To   string
}

// NewRequest creates a request with a fresh correlation ID.
func NewRequest(text, from, to string) Request {
	return Request{ID: uuid.NewString(), Text: text, From: from, To: to}
}

// Result is the outcome of a Request. An empty Translation means nothing
// should be spoken. Err is informational only; it has already been logged.
type Result struct {
	Request
	Translation string
	Err         error
	Duration    time.Duration
}

// Translator is what call sessions depend on.
type Translator interface {
	Translate(ctx context.Context, req Request) Result
}

// Gateway adapts an Engine to the Translator contract: engine errors and
// panics are logged and turned into an empty result.
type Gateway struct {
	engine Engine
	logger *log.Logger
}

// NewGateway creates a new Gateway. A nil engine yields empty results.
func NewGateway(engine Engine, logger *log.Logger) *Gateway {
	return &Gateway{engine: engine, logger: logger}
}

// Translate runs req through the engine.
func (g *Gateway) Translate(ctx context.Context, req Request) (res Result) {
	res.Request = req
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res.Translation = ""
			res.Err = fmt.Errorf("translate: engine panic: %v", p)
			g.logger.Printf("translate: error: request %s: %v", req.ID, res.Err)
		}
		res.Duration = time.Since(start)
	}()

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return res
	}
	if SameLanguage(req.From, req.To) {
		g.logger.Printf("translate: request %s: %s and %s share a language, nothing to do", req.ID, req.From, req.To)
		return res
	}
	if g.engine == nil {
		g.logger.Printf("translate: request %s: no engine configured", req.ID)
		return res
	}

	out, err := g.engine.Translate(ctx, text, req.From, req.To)
	if err != nil {
		res.Err = err
		g.logger.Printf("translate: error: request %s (%s -> %s): %v", req.ID, req.From, req.To, err)
		return res
	}
	res.Translation = strings.TrimSpace(out)
	return res
}

// SameLanguage reports whether two tags name the same base language, e.g.
// "en-US" and "en-GB". Unparseable tags are compared verbatim.
func SameLanguage(a, b string) bool {
	ta, errA := language.Parse(a)
	tb, errB := language.Parse(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(a, b)
	}
	ba, _ := ta.Base()
	bb, _ := tb.Base()
	return ba == bb
}

// DisplayName returns the English name of a language tag ("ta-IN" -> "Tamil"),
// falling back to the tag itself.
func DisplayName(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	base, _ := t.Base()
	if name, ok := languageNames[base.String()]; ok {
		return name
	}
	return tag
}

var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"hi": "Hindi",
	"mr": "Marathi",
	"ta": "Tamil",
	"te": "Telugu",
	"gu": "Gujarati",
	"vi": "Vietnamese",
	"pt": "Portuguese",
	"it": "Italian",
	"ja": "Japanese",
	"zh": "Chinese",
}

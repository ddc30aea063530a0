// Package language maps the caller's DTMF menu choice to the recognizer and
// synthesizer settings used for their leg of the call.
package language

// Choice is the outcome of the language menu.
type Choice struct {
	Language string // BCP-47 tag used for both recognition and synthesis
	Voice    string // synthesizer voice name
}

// Default is used when the caller enters nothing or an unmapped digit.
var Default = Choice{Language: "en-US", Voice: "en-US-JennyNeural"}

var menu = map[string]Choice{
	"1": {Language: "hi-IN", Voice: "hi-IN-SwaraNeural"},
	"2": {Language: "mr-IN", Voice: "mr-IN-AarohiNeural"},
	"3": {Language: "ta-IN", Voice: "ta-IN-PallaviNeural"},
	"4": {Language: "te-IN", Voice: "te-IN-ShrutiNeural"},
	"5": {Language: "gu-IN", Voice: "gu-IN-DhwaniNeural"},
	"6": {Language: "vi-VN", Voice: "vi-VN-HoaiMyNeural"},
}

// Select returns the choice for digits. Anything other than a single mapped
// digit falls through to Default.
func Select(digits string) Choice {
	if c, ok := menu[digits]; ok {
		return c
	}
	return Default
}

// Prompt is the text read to the caller while gathering their selection.
const Prompt = "For Hindi, press 1. For Marathi, press 2. For Tamil, press 3. " +
	"For Telugu, press 4. For Gujarati, press 5. For Vietnamese, press 6. " +
	"To continue in English, press any other key or wait."

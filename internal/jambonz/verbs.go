package jambonz

// Recognizer selects and tunes the speech recognition engine.
type Recognizer struct {
	Vendor          string           `json:"vendor"`
	Language        string           `json:"language"`
	DeepgramOptions *DeepgramOptions `json:"deepgramOptions,omitempty"`
}

// DeepgramOptions are Deepgram specific recognizer settings.
type DeepgramOptions struct {
	Endpointing     int  `json:"endpointing,omitempty"`
	UtteranceEndMs  int  `json:"utteranceEndMs,omitempty"`
	SmartFormatting bool `json:"smartFormatting,omitempty"`
}

// Synthesizer selects the text-to-speech engine and voice.
type Synthesizer struct {
	Vendor   string `json:"vendor"`
	Language string `json:"language"`
	Voice    string `json:"voice,omitempty"`
}

// Say speaks text.
type Say struct {
	Text        string       `json:"text"`
	Synthesizer *Synthesizer `json:"synthesizer,omitempty"`
}

// Gather collects DTMF digits (and optionally speech) from the caller.
type Gather struct {
	Verb        string   `json:"verb"`
	Input       []string `json:"input"`
	NumDigits   int      `json:"numDigits,omitempty"`
	Timeout     int      `json:"timeout,omitempty"` // seconds
	DTMFBargein bool     `json:"dtmfBargein"`
	ActionHook  string   `json:"actionHook"`
	Say         *Say     `json:"say,omitempty"`
}

// Transcribe enables background transcription of a call leg.
type Transcribe struct {
	Enable            bool        `json:"enable,omitempty"`
	TranscriptionHook string      `json:"transcriptionHook"`
	Channel           int         `json:"channel,omitempty"`
	Recognizer        *Recognizer `json:"recognizer,omitempty"`
}

// Config changes session-level settings for the rest of the call.
type Config struct {
	Verb             string      `json:"verb"`
	BoostAudioSignal string      `json:"boostAudioSignal,omitempty"`
	Recognizer       *Recognizer `json:"recognizer,omitempty"`
	Transcribe       *Transcribe `json:"transcribe,omitempty"`
}

// Dub actions.
const (
	DubAddTrack   = "addTrack"
	DubSayOnTrack = "sayOnTrack"
)

// Dub manages auxiliary audio tracks. It is used as a verb, inside a Dial,
// and as the payload of a live dub command.
type Dub struct {
	Verb   string `json:"verb,omitempty"`
	Action string `json:"action"`
	Track  string `json:"track"`
	Say    *Say   `json:"say,omitempty"`
}

// Target is a party to dial.
type Target struct {
	Type   string `json:"type"` // user, phone, sip
	Name   string `json:"name,omitempty"`
	Number string `json:"number,omitempty"`
	SipURI string `json:"sipUri,omitempty"`
}

// Dial outdials and bridges a new call leg.
type Dial struct {
	Verb             string      `json:"verb"`
	Target           []Target    `json:"target"`
	BoostAudioSignal string      `json:"boostAudioSignal,omitempty"`
	Transcribe       *Transcribe `json:"transcribe,omitempty"`
	Dub              []Dub       `json:"dub,omitempty"`
}

type simpleVerb struct {
	Verb string `json:"verb"`
}

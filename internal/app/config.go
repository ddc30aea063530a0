package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lukasbauer/calltranslator/internal/jambonz"
	"github.com/lukasbauer/calltranslator/internal/language"
	"github.com/lukasbauer/calltranslator/internal/translator"
)

type Config struct {
	HTTPAddr    string
	LogLevel    string
	SentryDSN   string
	Environment string
	DatabaseURL string

	// Outdial target for leg B
	TargetAgent string
	TargetType  string

	// IVR language menu
	LanguageMenu    bool
	MenuPrompt      string
	MenuTimeoutSecs int

	RecognizerA  jambonz.Recognizer
	RecognizerB  jambonz.Recognizer
	SynthesizerA jambonz.Synthesizer
	SynthesizerB jambonz.Synthesizer

	// Deepgram settings for leg B
	STTEndpointingMs  int // silence before a result is finalized
	STTUtteranceEndMs int // hard timeout after last speech, regardless of noise

	BoostAudioSignal string

	// Translation engine
	TranslateProvider string
	OpenAIAPIKey      string
	OpenAIModel       string
	GeminiAPIKey      string
	GeminiModel       string

	// Live transcript dashboard
	DashboardURL       string
	DashboardJWTSecret string

	// Operator endpoints (/calls); empty disables them
	AdminJWTSecret string

	DrainTimeout time.Duration
}

func LoadConfigFromEnv() Config {
	return Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":3000"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		SentryDSN:   getenv("SENTRY_DSN", ""),
		Environment: getenv("ENVIRONMENT", "development"),
		DatabaseURL: getenv("DATABASE_URL", ""),

		TargetAgent: getenv("TARGET_AGENT", "daveh@sip.jambonz.xyz"),
		TargetType:  getenv("TARGET_TYPE", "user"),

		LanguageMenu:    getenvBool("LANGUAGE_MENU", false),
		MenuPrompt:      getenv("MENU_PROMPT", language.Prompt),
		MenuTimeoutSecs: getenvIntClamped("MENU_TIMEOUT_SECS", 20, 5, 60),

		RecognizerA: jambonz.Recognizer{
			Vendor:   getenv("RECOGNIZER_A_VENDOR", "deepgram"),
			Language: getenv("RECOGNIZER_A_LANGUAGE", "en-US"),
		},
		RecognizerB: jambonz.Recognizer{
			Vendor:   getenv("RECOGNIZER_B_VENDOR", "deepgram"),
			Language: getenv("RECOGNIZER_B_LANGUAGE", "es-ES"),
		},
		SynthesizerA: jambonz.Synthesizer{
			Vendor:   getenv("SYNTHESIZER_A_VENDOR", "microsoft"),
			Language: getenv("SYNTHESIZER_A_LANGUAGE", "en-US"),
			Voice:    getenv("SYNTHESIZER_A_VOICE", "en-US-JennyNeural"),
		},
		SynthesizerB: jambonz.Synthesizer{
			Vendor:   getenv("SYNTHESIZER_B_VENDOR", "microsoft"),
			Language: getenv("SYNTHESIZER_B_LANGUAGE", "es-ES"),
			Voice:    getenv("SYNTHESIZER_B_VOICE", "es-ES-ElviraNeural"),
		},

		STTEndpointingMs:  getenvIntClamped("STT_ENDPOINTING_MS", 500, 10, 5000),
		STTUtteranceEndMs: getenvIntClamped("STT_UTTERANCE_END_MS", 1000, 1000, 5000),

		BoostAudioSignal: getenv("BOOST_AUDIO_SIGNAL", "-10 dB"),

		TranslateProvider: strings.ToLower(getenv("TRANSLATE_PROVIDER", "openai")),
		OpenAIAPIKey:      getenv("OPENAI_API_KEY", ""),
		OpenAIModel:       getenv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:      getenv("GEMINI_API_KEY", ""),
		GeminiModel:       getenv("GEMINI_MODEL", "gemini-2.0-flash"),

		DashboardURL:       getenv("DASHBOARD_URL", ""),
		DashboardJWTSecret: getenv("DASHBOARD_JWT_SECRET", ""),

		AdminJWTSecret: os.Getenv("ADMIN_JWT_SECRET"),

		DrainTimeout: getenvDuration("DRAIN_TIMEOUT", 30*time.Second),
	}
}

// Settings derives the per-call parameters shared by every session.
func (c Config) Settings() translator.Settings {
	recB := c.RecognizerB
	if recB.Vendor == "deepgram" {
		recB.DeepgramOptions = &jambonz.DeepgramOptions{
			Endpointing:     c.STTEndpointingMs,
			UtteranceEndMs:  c.STTUtteranceEndMs,
			SmartFormatting: true,
		}
	}
	return translator.Settings{
		Target:           target(c.TargetType, c.TargetAgent),
		BoostAudioSignal: c.BoostAudioSignal,
		LanguageMenu:     c.LanguageMenu,
		MenuPrompt:       c.MenuPrompt,
		MenuTimeout:      c.MenuTimeoutSecs,
		RecognizerA:      c.RecognizerA,
		RecognizerB:      recB,
		SynthesizerA:     c.SynthesizerA,
		SynthesizerB:     c.SynthesizerB,
	}
}

func target(kind, dest string) jambonz.Target {
	switch kind {
	case "phone":
		return jambonz.Target{Type: kind, Number: dest}
	case "sip":
		return jambonz.Target{Type: kind, SipURI: dest}
	default:
		return jambonz.Target{Type: "user", Name: dest}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntClamped(k string, def, min, max int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func getenvBool(k string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(k))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

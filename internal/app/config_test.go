package app

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/lukasbauer/calltranslator/internal/jambonz"
	"github.com/lukasbauer/calltranslator/internal/language"
)

func TestGetenv(t *testing.T) {
	tests := []struct {
		name     string
		envKey   string
		envValue string
		defValue string
		want     string
	}{
		{
			name:     "env set",
			envKey:   "TEST_ENV_VAR",
			envValue: "custom_value",
			defValue: "default",
			want:     "custom_value",
		},
		{
			name:     "env not set",
			envKey:   "TEST_ENV_VAR_NOTSET",
			defValue: "default",
			want:     "default",
		},
		{
			name:   "empty default",
			envKey: "TEST_ENV_VAR_EMPTY",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.envKey, tt.envValue)
			}

			got := getenv(tt.envKey, tt.defValue)
			if got != tt.want {
				t.Errorf("getenv(%q, %q) = %q, want %q", tt.envKey, tt.defValue, got, tt.want)
			}
		})
	}
}

func TestGetenvIntClamped(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      int
		min      int
		max      int
		want     int
	}{
		{"value within range", "500", 100, 0, 1000, 500},
		{"value below min - clamp to min", "-100", 100, 0, 1000, 0},
		{"value above max - clamp to max", "2000", 100, 0, 1000, 1000},
		{"env not set - use default", "", 100, 0, 1000, 100},
		{"invalid value - use default", "not_a_number", 100, 0, 1000, 100},
		{"boundary: exactly min", "200", 500, 200, 800, 200},
		{"boundary: exactly max", "800", 500, 200, 800, 800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.envValue)

			got := getenvIntClamped("TEST_INT", tt.def, tt.min, tt.max)
			if got != tt.want {
				t.Errorf("getenvIntClamped(%q, %d, %d, %d) = %d, want %d",
					tt.envValue, tt.def, tt.min, tt.max, got, tt.want)
			}
		})
	}
}

func TestGetenvBool(t *testing.T) {
	tests := []struct {
		envValue string
		def      bool
		want     bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"false", true, false},
		{"", true, true},
		{"yes please", false, false},
	}

	for _, tt := range tests {
		t.Setenv("TEST_BOOL", tt.envValue)
		if got := getenvBool("TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("getenvBool(%q, %t) = %t, want %t", tt.envValue, tt.def, got, tt.want)
		}
	}
}

func TestGetenvDuration(t *testing.T) {
	tests := []struct {
		envValue string
		want     time.Duration
	}{
		{"45s", 45 * time.Second},
		{"2m", 2 * time.Minute},
		{"", 30 * time.Second},
		{"soon", 30 * time.Second},
		{"-5s", 30 * time.Second},
	}

	for _, tt := range tests {
		t.Setenv("TEST_DURATION", tt.envValue)
		if got := getenvDuration("TEST_DURATION", 30*time.Second); got != tt.want {
			t.Errorf("getenvDuration(%q) = %v, want %v", tt.envValue, got, tt.want)
		}
	}
}

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"HTTP_ADDR", "LOG_LEVEL", "DATABASE_URL", "TARGET_AGENT", "TARGET_TYPE",
		"LANGUAGE_MENU", "MENU_TIMEOUT_SECS", "STT_ENDPOINTING_MS", "STT_UTTERANCE_END_MS",
		"RECOGNIZER_B_LANGUAGE", "SYNTHESIZER_B_VOICE", "TRANSLATE_PROVIDER", "DRAIN_TIMEOUT",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfigFromEnv()

	if cfg.HTTPAddr != ":3000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":3000")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.TargetAgent != "daveh@sip.jambonz.xyz" || cfg.TargetType != "user" {
		t.Errorf("target = %s/%s", cfg.TargetType, cfg.TargetAgent)
	}
	if cfg.LanguageMenu {
		t.Error("LanguageMenu should default to false")
	}
	if cfg.MenuTimeoutSecs != 20 {
		t.Errorf("MenuTimeoutSecs = %d, want 20", cfg.MenuTimeoutSecs)
	}
	if cfg.MenuPrompt != language.Prompt {
		t.Errorf("MenuPrompt = %q, want the built-in prompt", cfg.MenuPrompt)
	}
	if cfg.STTEndpointingMs != 500 {
		t.Errorf("STTEndpointingMs = %d, want 500", cfg.STTEndpointingMs)
	}
	if cfg.STTUtteranceEndMs != 1000 {
		t.Errorf("STTUtteranceEndMs = %d, want 1000", cfg.STTUtteranceEndMs)
	}
	if cfg.RecognizerB.Language != "es-ES" || cfg.SynthesizerB.Voice != "es-ES-ElviraNeural" {
		t.Errorf("leg B = %+v / %+v", cfg.RecognizerB, cfg.SynthesizerB)
	}
	if cfg.SynthesizerA.Voice != "en-US-JennyNeural" {
		t.Errorf("SynthesizerA.Voice = %q", cfg.SynthesizerA.Voice)
	}
	if cfg.BoostAudioSignal != "-10 dB" {
		t.Errorf("BoostAudioSignal = %q", cfg.BoostAudioSignal)
	}
	if cfg.TranslateProvider != "openai" || cfg.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("translation = %s/%s", cfg.TranslateProvider, cfg.OpenAIModel)
	}
	if cfg.DrainTimeout != 30*time.Second {
		t.Errorf("DrainTimeout = %v, want 30s", cfg.DrainTimeout)
	}
}

func TestLoadConfigFromEnvCustomValues(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LANGUAGE_MENU", "true")
	t.Setenv("MENU_TIMEOUT_SECS", "90")
	t.Setenv("STT_ENDPOINTING_MS", "1200")
	t.Setenv("STT_UTTERANCE_END_MS", "500")
	t.Setenv("TARGET_TYPE", "phone")
	t.Setenv("TARGET_AGENT", "+15551234567")
	t.Setenv("TRANSLATE_PROVIDER", "Gemini")

	cfg := LoadConfigFromEnv()

	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if !cfg.LanguageMenu {
		t.Error("LanguageMenu = false, want true")
	}
	if cfg.MenuTimeoutSecs != 60 {
		t.Errorf("MenuTimeoutSecs = %d, want clamped 60", cfg.MenuTimeoutSecs)
	}
	if cfg.STTEndpointingMs != 1200 {
		t.Errorf("STTEndpointingMs = %d, want 1200", cfg.STTEndpointingMs)
	}
	if cfg.STTUtteranceEndMs != 1000 {
		t.Errorf("STTUtteranceEndMs = %d, want clamped 1000", cfg.STTUtteranceEndMs)
	}
	if cfg.TranslateProvider != "gemini" {
		t.Errorf("TranslateProvider = %q, want gemini", cfg.TranslateProvider)
	}

	st := cfg.Settings()
	if st.Target != (jambonz.Target{Type: "phone", Number: "+15551234567"}) {
		t.Errorf("Target = %+v", st.Target)
	}
}

func TestSettings(t *testing.T) {
	cfg := Config{
		TargetType:        "user",
		TargetAgent:       "agent@sip.example.com",
		LanguageMenu:      true,
		MenuTimeoutSecs:   20,
		RecognizerA:       jambonz.Recognizer{Vendor: "deepgram", Language: "en-US"},
		RecognizerB:       jambonz.Recognizer{Vendor: "deepgram", Language: "es-ES"},
		STTEndpointingMs:  500,
		STTUtteranceEndMs: 1000,
		BoostAudioSignal:  "-10 dB",
	}

	st := cfg.Settings()
	if st.Target != (jambonz.Target{Type: "user", Name: "agent@sip.example.com"}) {
		t.Errorf("Target = %+v", st.Target)
	}
	if st.RecognizerA.DeepgramOptions != nil {
		t.Error("leg A recognizer should not carry engine options")
	}
	opts := st.RecognizerB.DeepgramOptions
	if opts == nil || opts.Endpointing != 500 || opts.UtteranceEndMs != 1000 || !opts.SmartFormatting {
		t.Errorf("leg B options = %+v", opts)
	}
	if cfg.RecognizerB.DeepgramOptions != nil {
		t.Error("Settings must not mutate the config")
	}

	cfg.RecognizerB.Vendor = "google"
	if cfg.Settings().RecognizerB.DeepgramOptions != nil {
		t.Error("non-deepgram recognizer should not carry deepgram options")
	}
}

func TestTarget(t *testing.T) {
	tests := []struct {
		kind, dest string
		want       jambonz.Target
	}{
		{"user", "daveh@sip.jambonz.xyz", jambonz.Target{Type: "user", Name: "daveh@sip.jambonz.xyz"}},
		{"phone", "+15550001111", jambonz.Target{Type: "phone", Number: "+15550001111"}},
		{"sip", "sip:bob@example.com", jambonz.Target{Type: "sip", SipURI: "sip:bob@example.com"}},
		{"carrier-pigeon", "x", jambonz.Target{Type: "user", Name: "x"}},
	}
	for _, tt := range tests {
		if got := target(tt.kind, tt.dest); got != tt.want {
			t.Errorf("target(%q, %q) = %+v, want %+v", tt.kind, tt.dest, got, tt.want)
		}
	}
}

func TestNewEngine(t *testing.T) {
	ctx := context.Background()

	engine, err := newEngine(ctx, Config{TranslateProvider: "openai"}, nil)
	if err != nil || engine != nil {
		t.Errorf("openai without key = %v, %v; want nil, nil", engine, err)
	}

	engine, err = newEngine(ctx, Config{TranslateProvider: "openai", OpenAIAPIKey: "sk-test"}, nil)
	if err != nil || engine == nil {
		t.Errorf("openai with key = %v, %v", engine, err)
	}

	engine, err = newEngine(ctx, Config{TranslateProvider: "gemini"}, nil)
	if err != nil || engine != nil {
		t.Errorf("gemini without key = %v, %v; want nil, nil", engine, err)
	}

	if _, err := newEngine(ctx, Config{TranslateProvider: "babelfish"}, nil); err == nil {
		t.Error("unknown provider should fail")
	}
}

func TestNewWithoutDatabase(t *testing.T) {
	cfg := Config{
		TranslateProvider: "openai",
		TargetType:        "user",
		TargetAgent:       "agent@sip.example.com",
		MenuTimeoutSecs:   20,
	}
	a, err := New(context.Background(), cfg, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if a.Calls() == nil {
		t.Fatal("Calls() = nil")
	}
	if a.Router() == nil {
		t.Fatal("Router() = nil")
	}
}

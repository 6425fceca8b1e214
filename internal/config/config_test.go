package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"PORT", "JOKE_MODEL", "OPENROUTER_BASE_URL", "VONAGE_SMS_BACKEND",
		"VERIFY_INBOUND_SMS", "SERVICE_NAME", "OPENROUTER_TITLE",
	} {
		t.Setenv(k, "")
	}

	cfg := Load()
	if cfg.Port != "8000" {
		t.Errorf("Port = %q, want 8000", cfg.Port)
	}
	if cfg.JokeModel != "anthropic/claude-3-haiku" {
		t.Errorf("JokeModel = %q", cfg.JokeModel)
	}
	if cfg.OpenRouterBaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("OpenRouterBaseURL = %q", cfg.OpenRouterBaseURL)
	}
	if cfg.OpenRouterTitle != "Dad Joke Hotline" {
		t.Errorf("OpenRouterTitle = %q", cfg.OpenRouterTitle)
	}
	if cfg.SMSBackend != "sms" {
		t.Errorf("SMSBackend = %q, want sms", cfg.SMSBackend)
	}
	if cfg.VerifyInboundSMS {
		t.Error("VerifyInboundSMS should default to false")
	}
	if cfg.ServiceName != "dad-joke-hotline" {
		t.Errorf("ServiceName = %q", cfg.ServiceName)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("VONAGE_SMS_BACKEND", "Messages")
	t.Setenv("VERIFY_INBOUND_SMS", "yes")
	t.Setenv("VONAGE_PHONE_NUMBER", "15550001111")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.SMSBackend != "messages" {
		t.Errorf("SMSBackend = %q, want messages", cfg.SMSBackend)
	}
	if !cfg.VerifyInboundSMS {
		t.Error("VerifyInboundSMS should be true")
	}
	if cfg.VonagePhoneNumber != "15550001111" {
		t.Errorf("VonagePhoneNumber = %q", cfg.VonagePhoneNumber)
	}
}

func TestGetEnvBoolDefault(t *testing.T) {
	tests := []struct {
		val  string
		def  bool
		want bool
	}{
		{"", true, true},
		{"on", false, true},
		{"OFF", true, false},
		{"garbage", true, true},
		{" 0 ", true, false},
	}
	for _, tt := range tests {
		t.Setenv("TEST_BOOL", tt.val)
		if got := getEnvBoolDefault("TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("getEnvBoolDefault(%q, %v) = %v, want %v", tt.val, tt.def, got, tt.want)
		}
	}
}

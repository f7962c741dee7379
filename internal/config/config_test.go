package config

import "testing"

func TestLoadIntakeDefaults(t *testing.T) {
	t.Setenv("NATS_SUBJECT", "")
	t.Setenv("OCR_LANGUAGES", "")
	t.Setenv("WATCH_DIRS", "")
	t.Setenv("POLL_INTERVAL_SECONDS", "")

	cfg := Load()
	if cfg.NATSSubject != "documents.intake" {
		t.Fatalf("expected default intake subject, got %q", cfg.NATSSubject)
	}
	if cfg.OCRLanguages != "eng+mal" {
		t.Fatalf("expected default ocr languages eng+mal, got %q", cfg.OCRLanguages)
	}
	if cfg.WatchDirs != nil {
		t.Fatalf("expected no default watch dirs, got %v", cfg.WatchDirs)
	}
	if cfg.PollIntervalSeconds != 30 {
		t.Fatalf("expected default poll interval 30, got %d", cfg.PollIntervalSeconds)
	}
	if cfg.IMAPEnabled {
		t.Fatal("mail channel must be disabled by default")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("WATCH_DIRS", "./scans, ./cad ,")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("API_RATE_LIMIT_BURST", "7")
	t.Setenv("IMAP_ENABLED", "true")
	t.Setenv("OCR_LANGUAGES", "eng")

	cfg := Load()
	if len(cfg.WatchDirs) != 2 || cfg.WatchDirs[0] != "./scans" || cfg.WatchDirs[1] != "./cad" {
		t.Fatalf("watch dirs not parsed: %v", cfg.WatchDirs)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit 2.5, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.APIRateLimitBurst != 7 {
		t.Fatalf("expected burst 7, got %d", cfg.APIRateLimitBurst)
	}
	if !cfg.IMAPEnabled {
		t.Fatal("expected mail channel enabled")
	}
	if cfg.OCRLanguages != "eng" {
		t.Fatalf("expected ocr languages override, got %q", cfg.OCRLanguages)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("POLL_INTERVAL_SECONDS", "soon")
	t.Setenv("API_RATE_LIMIT_RPS", "fast")

	cfg := Load()
	if cfg.PollIntervalSeconds != 30 {
		t.Fatalf("malformed int should fall back, got %d", cfg.PollIntervalSeconds)
	}
	if cfg.APIRateLimitRPS != 0 {
		t.Fatalf("malformed float should fall back, got %v", cfg.APIRateLimitRPS)
	}
}

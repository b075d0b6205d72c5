package config

import "testing"

func TestDefaultPassesValidateWithRequiredFieldsSet(t *testing.T) {
	cfg := Default()
	cfg.Store.ForegroundDSN = "postgres://localhost/pgl"
	cfg.Store.BackgroundDSN = "postgres://localhost/pgl"
	cfg.AuthSecret = "test-secret"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate once required fields are set, got: %v", err)
	}
}

func TestValidateRejectsMissingDSNs(t *testing.T) {
	cfg := Default()
	cfg.AuthSecret = "test-secret"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when store DSNs are unset")
	}
}

func TestValidateRejectsOutOfRangeMatchThreshold(t *testing.T) {
	cfg := Default()
	cfg.Store.ForegroundDSN = "postgres://localhost/pgl"
	cfg.Store.BackgroundDSN = "postgres://localhost/pgl"
	cfg.AuthSecret = "test-secret"
	cfg.Vetting.MatchThreshold = 150

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for match threshold above 100")
	}
}

func TestValidateRejectsEmptyAuthSecret(t *testing.T) {
	cfg := Default()
	cfg.Store.ForegroundDSN = "postgres://localhost/pgl"
	cfg.Store.BackgroundDSN = "postgres://localhost/pgl"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing auth secret")
	}
}

func TestEnvTransformFuncMapsKnownKeys(t *testing.T) {
	got := envTransformFunc("PGL_STORE_FOREGROUND_DSN")
	if got != "store.foreground_dsn" {
		t.Fatalf("expected store.foreground_dsn, got %q", got)
	}
}

func TestEnvTransformFuncDropsUnknownKeys(t *testing.T) {
	got := envTransformFunc("PGL_SOME_UNRELATED_VAR")
	if got != "" {
		t.Fatalf("expected empty path for unrecognized var, got %q", got)
	}
}

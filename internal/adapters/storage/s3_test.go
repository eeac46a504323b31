package storage

import (
	"errors"
	"strings"
	"testing"

	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/entities"
)

func validConfig() entities.ProviderConfig {
	return entities.ProviderConfig{
		AccessKey:   "AKIATEST",
		SecretKey:   "secret",
		BucketName:  "demo-bucket",
		Region:      "us-east-1",
		EndpointURL: "https://storage.example.com:9000",
	}
}

func TestNewClient_ValidConfig(t *testing.T) {
	client, err := NewClient(entities.RolePrimary, validConfig())
	if err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if client.Provider() != entities.RolePrimary {
		t.Errorf("unexpected provider: %s", client.Provider())
	}
}

func TestNewClient_EnumeratesAllMissingFields(t *testing.T) {
	_, err := NewClient(entities.RolePrimary, entities.ProviderConfig{})
	if err == nil {
		t.Fatal("empty config should fail")
	}

	var se *entities.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %T", err)
	}
	if se.Kind != entities.KindConfiguration {
		t.Errorf("expected configuration kind, got %s", se.Kind)
	}

	msg := err.Error()
	for _, field := range []string{"access_key", "secret_key", "bucket_name", "region"} {
		if !strings.Contains(msg, field) {
			t.Errorf("error should name missing field %s: %s", field, msg)
		}
	}
}

func TestNewClient_ComparisonRequiresEndpoint(t *testing.T) {
	cfg := validConfig()
	cfg.EndpointURL = ""

	if _, err := NewClient(entities.RolePrimary, cfg); err != nil {
		t.Errorf("primary may omit endpoint_url: %v", err)
	}

	_, err := NewClient(entities.RoleComparison, cfg)
	if err == nil || !strings.Contains(err.Error(), "endpoint_url") {
		t.Errorf("comparison without endpoint_url should fail naming the field, got %v", err)
	}
}

func TestResolveEndpoint_DefaultsToRegionalAWS(t *testing.T) {
	cfg := validConfig()
	cfg.EndpointURL = ""
	cfg.Region = "eu-west-2"

	endpoint, secure, err := resolveEndpoint(cfg)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if endpoint != "s3.eu-west-2.amazonaws.com" {
		t.Errorf("unexpected endpoint: %s", endpoint)
	}
	if !secure {
		t.Error("AWS endpoint should be secure")
	}
}

func TestResolveEndpoint_SchemeControlsTLS(t *testing.T) {
	cfg := validConfig()

	cfg.EndpointURL = "http://10.0.0.5:8000"
	endpoint, secure, _ := resolveEndpoint(cfg)
	if endpoint != "10.0.0.5:8000" || secure {
		t.Errorf("http endpoint mishandled: %s secure=%v", endpoint, secure)
	}

	cfg.EndpointURL = "https://10.0.0.5:8443"
	endpoint, secure, _ = resolveEndpoint(cfg)
	if endpoint != "10.0.0.5:8443" || !secure {
		t.Errorf("https endpoint mishandled: %s secure=%v", endpoint, secure)
	}
}

func TestValidate_CompleteConfigPasses(t *testing.T) {
	if err := validate(entities.RoleComparison, validConfig()); err != nil {
		t.Errorf("complete comparison config rejected: %v", err)
	}
}

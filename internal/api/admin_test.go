// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLLMConfigRoundTrip(t *testing.T) {
	var gotUpdate LLMConfig
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(LLMConfig{
				Provider:    "openai",
				Model:       "gpt-4o-mini",
				Temperature: 0.2,
				MaxTokens:   2048,
			})
		case http.MethodPut:
			if err := json.NewDecoder(r.Body).Decode(&gotUpdate); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)

	cfg, err := client.LLMConfig(t.Context())
	if err != nil {
		t.Fatalf("LLMConfig: %v", err)
	}
	if cfg.Provider != "openai" || cfg.Model != "gpt-4o-mini" {
		t.Errorf("unexpected config: %+v", cfg)
	}

	cfg.Temperature = 0.7
	if err := client.UpdateLLMConfig(t.Context(), *cfg); err != nil {
		t.Fatalf("UpdateLLMConfig: %v", err)
	}
	if gotUpdate.Temperature != 0.7 {
		t.Errorf("update body temperature = %v", gotUpdate.Temperature)
	}
}

func TestAdminEndpointsSurfaceForbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"detail": "admin role required"}`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)

	if _, err := client.LLMConfig(t.Context()); !errors.Is(err, ErrForbidden) {
		t.Errorf("LLMConfig err = %v, want ErrForbidden", err)
	}
	if err := client.RemoveMCPServer(t.Context(), "search"); !errors.Is(err, ErrForbidden) {
		t.Errorf("RemoveMCPServer err = %v, want ErrForbidden", err)
	}
}

package handlers_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func TestStoreRegistrationFlow(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t, "")

	resp, _ := c.get("/cadastroloja")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if c.cookies["sid"] == "" {
		t.Fatal("store page did not issue a sid")
	}

	c.post("/cadastroloja/cep", url.Values{"name": {"Mercado Central"}, "postal_code": {"1234567"}})
	_, body := c.get("/cadastroloja")
	if !strings.Contains(body, "postal code must have exactly 8 digits") {
		t.Fatalf("length error missing; body=%s", body)
	}

	c.post("/cadastroloja/cep", url.Values{"name": {"Mercado Central"}, "postal_code": {"99999999"}})
	_, body = c.get("/cadastroloja")
	if !strings.Contains(body, "postal code not found") {
		t.Fatalf("not-found error missing; body=%s", body)
	}

	c.post("/cadastroloja/cep", url.Values{"name": {"Mercado Central"}, "postal_code": {"01001000"}})
	_, body = c.get("/cadastroloja")
	if !strings.Contains(body, "Praça da Sé") || !strings.Contains(body, "São Paulo") {
		t.Fatalf("address not filled; body=%s", body)
	}

	resp = c.post("/cadastroloja", url.Values{"name": {"Mercado Central"}, "postal_code": {"01001000"}})
	body = readBody(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Store registered: Mercado Central") {
		t.Fatalf("confirmation missing, status %d; body=%s", resp.StatusCode, body)
	}

	_, body = c.get("/cadastroloja")
	if strings.Contains(body, "Praça da Sé") {
		t.Fatal("form was not reset after registration")
	}
}

func TestStoreSubmitLooksUpChangedCode(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t, "")

	resp := c.post("/cadastroloja", url.Values{"name": {"Quitanda"}, "postal_code": {"01001000"}})
	body := readBody(t, resp)
	if !strings.Contains(body, "Store registered: Quitanda") {
		t.Fatalf("submit should look the code up first; body=%s", body)
	}
}

func TestStoreSubmitIncomplete(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t, "")

	resp := c.post("/cadastroloja", url.Values{"name": {""}, "postal_code": {"0100100a"}})
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(body, "please fill in all fields correctly") {
		t.Fatalf("expected 400 with error, got %d; body=%s", resp.StatusCode, body)
	}
}

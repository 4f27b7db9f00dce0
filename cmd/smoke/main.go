package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"os"
	"time"
)

// Drives a running iskolar-api through one full session: the route guard
// must refuse first, then login, me, a scoped student list, and logout must
// all behave. Exits non-zero on the first surprise.
func main() {
	base := os.Getenv("ISKOLAR_SMOKE_ADDR")
	if base == "" {
		base = "http://localhost:8080"
	}
	email := os.Getenv("ISKOLAR_SMOKE_EMAIL")
	password := os.Getenv("ISKOLAR_SMOKE_PASSWORD")
	if email == "" || password == "" {
		log.Fatal("set ISKOLAR_SMOKE_EMAIL and ISKOLAR_SMOKE_PASSWORD")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		log.Fatalf("cookiejar: %v", err)
	}
	client := &http.Client{Jar: jar, Timeout: 10 * time.Second}

	// The guard must be up before anything else.
	expectStatus(client, http.MethodGet, base+"/v1/auth/me", nil, http.StatusUnauthorized)

	loginBody, _ := json.Marshal(map[string]any{
		"email":    email,
		"password": password,
	})
	expectStatus(client, http.MethodPost, base+"/v1/auth/login", loginBody, http.StatusOK)

	me := struct {
		Account struct {
			ID    string `json:"id"`
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"account"`
	}{}
	resp := mustDo(client, http.MethodGet, base+"/v1/auth/me", nil)
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("me after login: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		log.Fatalf("decode me: %v", err)
	}
	resp.Body.Close()
	if me.Account.Email == "" {
		log.Fatal("me returned no account")
	}

	expectStatus(client, http.MethodGet, base+"/v1/students", nil, http.StatusOK)

	expectStatus(client, http.MethodPost, base+"/v1/auth/logout", nil, http.StatusNoContent)
	expectStatus(client, http.MethodGet, base+"/v1/auth/me", nil, http.StatusUnauthorized)

	fmt.Printf("smoke test passed: %s (%s) at %s\n", me.Account.Email, me.Account.Role, base)
}

func mustDo(client *http.Client, method, url string, body []byte) *http.Response {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		log.Fatalf("%s %s: %v", method, url, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func expectStatus(client *http.Client, method, url string, body []byte, want int) {
	resp := mustDo(client, method, url, body)
	defer resp.Body.Close()
	if resp.StatusCode != want {
		log.Fatalf("%s %s: status %d, want %d", method, url, resp.StatusCode, want)
	}
}

// Command workflow_smoke drives a full approval cycle against a running
// instance: create as lecturer, submit, approve as HOD, AA and Principal,
// then publish as admin. It exits non-zero on the first failed step, so it
// can gate deployments.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
)

type account struct {
	role     string
	email    string
	password string
}

type step struct {
	Name       string
	Method     string
	Path       string
	Status     int
	WantStatus string
	Duration   time.Duration
	Err        error
}

type client struct {
	base string
	http *http.Client
}

func main() {
	var (
		base     string
		password string
		timeout  time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "API base URL including prefix")
	flag.StringVar(&password, "password", os.Getenv("SMOKE_PASSWORD"), "Shared password for the seeded smoke accounts")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	accounts := []account{
		{role: "lecturer", email: "smoke.lecturer@example.edu", password: password},
		{role: "hod", email: "smoke.hod@example.edu", password: password},
		{role: "aa", email: "smoke.aa@example.edu", password: password},
		{role: "principal", email: "smoke.principal@example.edu", password: password},
		{role: "admin", email: "smoke.admin@example.edu", password: password},
	}

	c := &client{base: base, http: &http.Client{Timeout: timeout}}

	tokens := map[string]string{}
	for _, acc := range accounts {
		token, err := c.login(acc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "login %s: %v\n", acc.role, err)
			os.Exit(1)
		}
		tokens[acc.role] = token
	}

	steps := runCycle(c, tokens)
	printReport(steps)
	for _, s := range steps {
		if s.Err != nil {
			os.Exit(1)
		}
	}
}

func runCycle(c *client, tokens map[string]string) []step {
	var steps []step

	id, s := c.createSyllabus(tokens["lecturer"])
	steps = append(steps, s)
	if s.Err != nil {
		return steps
	}

	transitions := []struct {
		name  string
		role  string
		path  string
		body  map[string]string
		want  string
	}{
		{"submit", "lecturer", "/syllabi/" + id + "/submit", nil, "PENDING_HOD"},
		{"hod approve", "hod", "/syllabi/" + id + "/decision", map[string]string{"action": "APPROVE"}, "PENDING_AA"},
		{"aa approve", "aa", "/syllabi/" + id + "/decision", map[string]string{"action": "APPROVE"}, "PENDING_PRINCIPAL"},
		{"principal approve", "principal", "/syllabi/" + id + "/decision", map[string]string{"action": "APPROVE"}, "APPROVED"},
		{"publish", "admin", "/syllabi/" + id + "/decision", map[string]string{"action": "APPROVE", "effectiveDate": time.Now().AddDate(0, 1, 0).Format(time.RFC3339)}, "PUBLISHED"},
	}

	for _, tr := range transitions {
		s := c.post(tr.name, tr.path, tokens[tr.role], tr.body, tr.want)
		steps = append(steps, s)
		if s.Err != nil {
			return steps
		}
	}
	return steps
}

func (c *client) login(acc account) (string, error) {
	body, _ := json.Marshal(map[string]string{"email": acc.email, "password": acc.password})
	resp, err := c.http.Post(c.base+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var out struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Data.AccessToken == "" {
		return "", fmt.Errorf("empty access token")
	}
	return out.Data.AccessToken, nil
}

func (c *client) createSyllabus(token string) (string, step) {
	suffix := time.Now().UnixNano()
	payload := map[string]interface{}{
		"subjectId":     fmt.Sprintf("smoke-%d", suffix),
		"subjectCode":   fmt.Sprintf("SMK%d", suffix%100000),
		"subjectNameVi": "Đề cương kiểm thử",
		"versionNo":     "1.0",
		"content":       json.RawMessage(`{"objectives":["smoke"]}`),
	}
	start := time.Now()
	resp, err := c.do(http.MethodPost, "/syllabi", token, payload)
	s := step{Name: "create draft", Method: http.MethodPost, Path: "/syllabi", Duration: time.Since(start), WantStatus: "DRAFT"}
	if err != nil {
		s.Err = err
		return "", s
	}
	defer resp.Body.Close()
	s.Status = resp.StatusCode
	if resp.StatusCode != http.StatusCreated {
		s.Err = fmt.Errorf("unexpected status %d", resp.StatusCode)
		return "", s
	}
	var out struct {
		Data struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		s.Err = err
		return "", s
	}
	if out.Data.Status != s.WantStatus {
		s.Err = fmt.Errorf("status %q, want %q", out.Data.Status, s.WantStatus)
	}
	return out.Data.ID, s
}

func (c *client) post(name, path, token string, body map[string]string, wantStatus string) step {
	start := time.Now()
	resp, err := c.do(http.MethodPost, path, token, body)
	s := step{Name: name, Method: http.MethodPost, Path: path, Duration: time.Since(start), WantStatus: wantStatus}
	if err != nil {
		s.Err = err
		return s
	}
	defer resp.Body.Close()
	s.Status = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		s.Err = fmt.Errorf("unexpected status %d", resp.StatusCode)
		return s
	}
	var out struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		s.Err = err
		return s
	}
	if out.Data.Status != wantStatus {
		s.Err = fmt.Errorf("status %q, want %q", out.Data.Status, wantStatus)
	}
	return s
}

func (c *client) do(method, path, token string, payload interface{}) (*http.Response, error) {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequest(method, c.base+path, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return c.http.Do(req)
}

func printReport(steps []step) {
	fmt.Println("STEP                  STATUS  TARGET               DURATION  RESULT")
	for _, s := range steps {
		result := "ok"
		if s.Err != nil {
			result = s.Err.Error()
		}
		fmt.Printf("%-20s  %-6d  %-19s  %-8s  %s\n", s.Name, s.Status, s.WantStatus, s.Duration.Round(time.Millisecond), result)
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/pflag"
)

type TestClient struct {
	baseURL string
	client  *http.Client
}

func NewTestClient(baseURL string, timeout time.Duration) *TestClient {
	return &TestClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type options struct {
	baseURL string
	test    string
	brief   string
	filter  string
	mode    string
	target  string
	output  string
	timeout time.Duration
}

func main() {
	var opts options
	pflag.StringVarP(&opts.baseURL, "url", "u", "http://localhost:8080", "Base URL of the agent")
	pflag.StringVarP(&opts.test, "test", "t", "all", "Test type: all, health, agent-card, campaign, download, leads")
	pflag.StringVarP(&opts.brief, "brief", "b", "Dental Glow Up", "Campaign brief")
	pflag.StringVar(&opts.filter, "filter", "dental", "CRM lead filter")
	pflag.StringVar(&opts.mode, "mode", "services", "Campaign mode: services or products")
	pflag.StringVar(&opts.target, "target", "netlify", "Deployment target: netlify or wordpress")
	pflag.StringVarP(&opts.output, "output", "o", "campaign.html", "Where the download test writes the page")
	pflag.DurationVar(&opts.timeout, "timeout", 60*time.Second, "HTTP client timeout")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Radiant Launch Agent smoke tests\n\n")
		fmt.Fprintf(os.Stderr, "USAGE:\n  test [flags]\n\nFLAGS:\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	client := NewTestClient(opts.baseURL, opts.timeout)

	pterm.DefaultHeader.WithFullWidth().Println("Radiant Launch Agent - Test Suite")
	pterm.Info.Printf("Base URL: %s\n\n", opts.baseURL)

	var ok bool
	switch opts.test {
	case "all":
		client.runAllTests(opts)
		return
	case "health":
		ok = client.testHealthCheck()
	case "agent-card":
		ok = client.testAgentCard()
	case "campaign":
		ok = client.testCampaign(opts)
	case "download":
		ok = client.testDownload(opts)
	case "leads":
		ok = client.testLeads(opts)
	default:
		pterm.Error.Printf("Unknown test type: %s\n", opts.test)
		pterm.Println("Available tests: all, health, agent-card, campaign, download, leads")
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
}

func (tc *TestClient) runAllTests(opts options) {
	tests := []struct {
		name string
		fn   func() bool
	}{
		{"Health Check", tc.testHealthCheck},
		{"Agent Card", tc.testAgentCard},
		{"Leads", func() bool { return tc.testLeads(opts) }},
		{"Campaign (A2A)", func() bool { return tc.testCampaign(opts) }},
		{"Campaign Download", func() bool { return tc.testDownload(opts) }},
	}

	rows := [][]string{{"Test", "Result"}}
	failed := 0
	for _, test := range tests {
		result := pterm.Green("PASS")
		if !test.fn() {
			result = pterm.Red("FAIL")
			failed++
		}
		rows = append(rows, []string{test.name, result})
		pterm.Println()
	}

	pterm.DefaultSection.Println("Test Summary")
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	pterm.Printf("Passed: %d  Failed: %d  Total: %d\n", len(tests)-failed, failed, len(tests))

	if failed > 0 {
		os.Exit(1)
	}
}

func (tc *TestClient) get(path string) (int, []byte, error) {
	resp, err := tc.client.Get(tc.baseURL + path)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, err
}

func (tc *TestClient) post(path string, payload interface{}) (*http.Response, []byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	resp, err := tc.client.Post(tc.baseURL+path, "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return resp, body, err
}

func (tc *TestClient) testHealthCheck() bool {
	pterm.DefaultSection.Println("Testing Health Check Endpoint")

	status, body, err := tc.get("/health")
	if err != nil {
		pterm.Error.Printf("Request failed: %v\n", err)
		return false
	}
	if status != http.StatusOK {
		pterm.Error.Printf("Expected status 200, got %d\n", status)
		return false
	}
	if string(body) != "OK" {
		pterm.Error.Printf("Expected body 'OK', got '%s'\n", string(body))
		return false
	}

	pterm.Success.Println("Health check passed")
	return true
}

func (tc *TestClient) testAgentCard() bool {
	pterm.DefaultSection.Println("Testing Agent Card Endpoint")

	status, body, err := tc.get("/.well-known/agent.json")
	if err != nil {
		pterm.Error.Printf("Request failed: %v\n", err)
		return false
	}
	if status != http.StatusOK {
		pterm.Error.Printf("Expected status 200, got %d\n", status)
		return false
	}

	var agentCard map[string]interface{}
	if err := json.Unmarshal(body, &agentCard); err != nil {
		pterm.Error.Printf("Invalid JSON response: %v\n", err)
		return false
	}
	for _, field := range []string{"name", "description", "url", "version", "capabilities", "skills"} {
		if _, ok := agentCard[field]; !ok {
			pterm.Error.Printf("Missing required field: %s\n", field)
			return false
		}
	}

	pterm.Success.Println("Agent card is valid")
	printJSON(body)
	return true
}

func (tc *TestClient) testLeads(opts options) bool {
	pterm.DefaultSection.Println("Testing Lead Store")

	email := fmt.Sprintf("smoke-%d@test.com", time.Now().Unix())
	resp, body, err := tc.post("/leads", map[string]string{"email": email, "name": opts.filter + " smoke test"})
	if err != nil {
		pterm.Error.Printf("Push failed: %v\n", err)
		return false
	}
	if resp.StatusCode != http.StatusCreated {
		pterm.Error.Printf("Expected status 201, got %d: %s\n", resp.StatusCode, string(body))
		return false
	}

	status, body, err := tc.get("/leads?filter=" + email)
	if err != nil || status != http.StatusOK {
		pterm.Error.Printf("Pull failed: status %d, err %v\n", status, err)
		return false
	}
	var result struct {
		Count   int    `json:"count"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		pterm.Error.Printf("Invalid JSON response: %v\n", err)
		return false
	}
	if result.Count != 1 {
		pterm.Error.Printf("Expected the pushed lead exactly once, got %d\n", result.Count)
		return false
	}

	pterm.Success.Println(result.Message)
	return true
}

func (tc *TestClient) testCampaign(opts options) bool {
	pterm.DefaultSection.Println("Testing Campaign Launch")
	pterm.Info.Printf("Brief: %s\n", opts.brief)

	request := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      fmt.Sprintf("test-%d", time.Now().Unix()),
		"method":  "message/send",
		"params": map[string]interface{}{
			"message": map[string]interface{}{
				"kind": "message",
				"role": "user",
				"parts": []map[string]interface{}{
					{"kind": "text", "text": opts.brief},
					{"kind": "data", "data": map[string]string{
						"filter": opts.filter,
						"mode":   opts.mode,
						"target": opts.target,
					}},
				},
			},
			"configuration": map[string]interface{}{
				"blocking":            true,
				"acceptedOutputModes": []string{"text", "text/html"},
			},
		},
	}

	spinner, _ := pterm.DefaultSpinner.Start("Launching campaign...")
	resp, body, err := tc.post("/a2a/campaign", request)
	if err != nil {
		spinner.Fail(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	if resp.StatusCode != http.StatusOK {
		spinner.Fail(fmt.Sprintf("Expected status 200, got %d", resp.StatusCode))
		return false
	}

	var response struct {
		Error  map[string]interface{} `json:"error"`
		Result struct {
			Status struct {
				State   string `json:"state"`
				Message struct {
					Parts []struct {
						Text string `json:"text"`
					} `json:"parts"`
				} `json:"message"`
			} `json:"status"`
			Artifacts []struct {
				Name string `json:"name"`
			} `json:"artifacts"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		spinner.Fail(fmt.Sprintf("Invalid JSON response: %v", err))
		return false
	}
	if response.Error != nil {
		spinner.Fail(fmt.Sprintf("Request returned an error: %v", response.Error["message"]))
		return false
	}
	if response.Result.Status.State != "completed" {
		spinner.Fail(fmt.Sprintf("Expected state 'completed', got '%s'", response.Result.Status.State))
		return false
	}
	spinner.Success("Campaign launched")

	for _, part := range response.Result.Status.Message.Parts {
		pterm.DefaultBox.WithTitle("Report").Println(part.Text)
	}
	for _, a := range response.Result.Artifacts {
		pterm.Info.Printf("Artifact: %s\n", a.Name)
	}
	return true
}

func (tc *TestClient) testDownload(opts options) bool {
	pterm.DefaultSection.Println("Testing Campaign Download")

	resp, body, err := tc.post("/campaigns/download", map[string]string{
		"brief":  opts.brief,
		"filter": opts.filter,
		"mode":   opts.mode,
		"target": opts.target,
	})
	if err != nil {
		pterm.Error.Printf("Request failed: %v\n", err)
		return false
	}
	if resp.StatusCode != http.StatusOK {
		pterm.Error.Printf("Expected status 200, got %d: %s\n", resp.StatusCode, string(body))
		return false
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		pterm.Error.Printf("Expected text/html, got %s\n", resp.Header.Get("Content-Type"))
		return false
	}
	if !strings.Contains(string(body), "<h1") {
		pterm.Error.Println("Page has no heading")
		return false
	}

	if err := os.WriteFile(opts.output, body, 0o644); err != nil {
		pterm.Error.Printf("Failed to write %s: %v\n", opts.output, err)
		return false
	}
	pterm.Success.Printf("Saved %d bytes to %s\n", len(body), opts.output)
	pterm.Info.Println(resp.Header.Get("X-Campaign-Status"))
	return true
}

func printJSON(data []byte) {
	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, data, "", "  "); err == nil {
		pterm.DefaultBox.WithTitle("Response").Println(prettyJSON.String())
	}
}

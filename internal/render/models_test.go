package render

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

const sampleDeploy = `
{
	"id": "dep-cs67ufi3esus73b74a70",
	"commit": {
		"id": "b2be9cf9e3188d00f58ef18a5904528993faeaa2",
		"message": "use sigterm and disable aws healthcheck",
		"createdAt": "2024-10-11T20:02:45Z"
	},
	"status": "build_in_progress",
	"trigger": "api",
	"createdAt": "2024-10-14T02:17:35.868638Z",
	"updatedAt": "2024-10-14T02:17:35.868638Z",
	"finishedAt": null
}`

const sampleService = `
{
	"id": "srv-abc123",
	"name": "web",
	"branch": "main",
	"repo": "https://github.com/example/web",
	"autoDeploy": "yes",
	"dashboardUrl": "https://dashboard.render.com/web/srv-abc123",
	"createdAt": "2024-01-01T00:00:00Z",
	"updatedAt": "2024-10-01T12:30:00Z",
	"suspended": "not_suspended"
}`

func TestDeploy_Unmarshal(t *testing.T) {
	var deploy Deploy
	if err := json.Unmarshal([]byte(sampleDeploy), &deploy); err != nil {
		t.Fatalf("Failed to parse deploy: %v", err)
	}

	if deploy.ID != "dep-cs67ufi3esus73b74a70" {
		t.Errorf("Unexpected id %q", deploy.ID)
	}
	if deploy.Commit.ID != "b2be9cf9e3188d00f58ef18a5904528993faeaa2" {
		t.Errorf("Unexpected commit id %q", deploy.Commit.ID)
	}
	if deploy.Status != StatusBuildInProgress {
		t.Errorf("Expected status %q, got %q", StatusBuildInProgress, deploy.Status)
	}
	if deploy.FinishedAt != nil {
		t.Errorf("Expected nil FinishedAt for null, got %v", deploy.FinishedAt)
	}
	if err := deploy.validate(); err != nil {
		t.Errorf("Expected valid deploy, got %v", err)
	}
}

func TestDeploy_UnmarshalFinished(t *testing.T) {
	body := strings.Replace(sampleDeploy, `"finishedAt": null`, `"finishedAt": "2024-10-14T02:21:10Z"`, 1)
	body = strings.Replace(body, `"build_in_progress"`, `"live"`, 1)

	var deploy Deploy
	if err := json.Unmarshal([]byte(body), &deploy); err != nil {
		t.Fatalf("Failed to parse deploy: %v", err)
	}

	want := time.Date(2024, 10, 14, 2, 21, 10, 0, time.UTC)
	if deploy.FinishedAt == nil || !deploy.FinishedAt.Equal(want) {
		t.Errorf("Expected FinishedAt %v, got %v", want, deploy.FinishedAt)
	}
	if deploy.Status != StatusLive {
		t.Errorf("Expected status live, got %q", deploy.Status)
	}
}

func TestDeploy_UnmarshalMissingFinishedAt(t *testing.T) {
	var deploy Deploy
	if err := json.Unmarshal([]byte(`{"id":"dep-1","status":"created"}`), &deploy); err != nil {
		t.Fatalf("Failed to parse deploy: %v", err)
	}
	if deploy.FinishedAt != nil {
		t.Errorf("Expected nil FinishedAt when absent, got %v", deploy.FinishedAt)
	}
}

func TestDeploy_UnknownStatusRejected(t *testing.T) {
	body := strings.Replace(sampleDeploy, `"build_in_progress"`, `"quantum_superposition"`, 1)

	var deploy Deploy
	err := json.Unmarshal([]byte(body), &deploy)
	if err == nil {
		t.Fatal("Expected unknown status to fail deserialization")
	}
	if !strings.Contains(err.Error(), "quantum_superposition") {
		t.Errorf("Expected error to name the status, got %v", err)
	}
}

func TestDeploy_RoundTrip(t *testing.T) {
	finished := time.Date(2024, 10, 14, 2, 21, 10, 0, time.UTC)
	for _, status := range AllStatuses() {
		t.Run(string(status), func(t *testing.T) {
			in := Deploy{
				ID:        "dep-1",
				Commit:    CommitInfo{ID: "abc", Message: "msg"},
				Status:    status,
				CreatedAt: finished,
				UpdatedAt: finished,
			}
			if status.IsTerminal() {
				in.FinishedAt = &finished
			}

			data, err := json.Marshal(in)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			var out Deploy
			if err := json.Unmarshal(data, &out); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}

			if out.ID != in.ID || out.Commit.ID != in.Commit.ID || out.Status != in.Status {
				t.Errorf("Round trip mismatch: %+v vs %+v", out, in)
			}
			if (out.FinishedAt == nil) != (in.FinishedAt == nil) {
				t.Errorf("FinishedAt presence changed: %v vs %v", out.FinishedAt, in.FinishedAt)
			}
		})
	}
}

func TestDeploy_ValidateRequiresFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing id", `{"status":"live"}`},
		{"missing status", `{"id":"dep-1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Deploy
			if err := json.Unmarshal([]byte(tt.body), &d); err != nil {
				t.Fatalf("Unexpected unmarshal error: %v", err)
			}
			if err := d.validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestService_Unmarshal(t *testing.T) {
	var svc Service
	if err := json.Unmarshal([]byte(sampleService), &svc); err != nil {
		t.Fatalf("Failed to parse service: %v", err)
	}

	if svc.ID != "srv-abc123" || svc.Name != "web" || svc.Branch != "main" {
		t.Errorf("Unexpected service %+v", svc)
	}
	if !svc.AutoDeploy {
		t.Error("Expected autoDeploy yes to be true")
	}
	if svc.DashboardURL != "https://dashboard.render.com/web/srv-abc123" {
		t.Errorf("Unexpected dashboard url %q", svc.DashboardURL)
	}
}

func TestService_ValidateRequiresFields(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"complete", sampleService, ""},
		{"missing id", `{"name":"web","branch":"main","repo":"https://github.com/example/web"}`, `"id"`},
		{"missing name", `{"id":"srv-1","branch":"main","repo":"https://github.com/example/web"}`, `"name"`},
		{"missing branch", `{"id":"srv-1","name":"web","repo":"https://github.com/example/web"}`, `"branch"`},
		{"missing repo", `{"id":"srv-1","name":"web","branch":"main"}`, `"repo"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var svc Service
			if err := json.Unmarshal([]byte(tt.body), &svc); err != nil {
				t.Fatalf("Unexpected unmarshal error: %v", err)
			}
			err := svc.validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected valid service, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error naming %s, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestYesNo_Unmarshal(t *testing.T) {
	tests := []struct {
		input   string
		want    bool
		wantErr bool
	}{
		{`"yes"`, true, false},
		{`"no"`, false, false},
		{`"Yes"`, false, true},
		{`"true"`, false, true},
		{`""`, false, true},
		{`true`, false, true},
		{`false`, false, true},
		{`null`, false, true},
		{`1`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var v YesNo
			err := json.Unmarshal([]byte(tt.input), &v)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && bool(v) != tt.want {
				t.Errorf("Unmarshal(%s) = %v, want %v", tt.input, v, tt.want)
			}
		})
	}
}

func TestService_UnknownAutoDeployRejected(t *testing.T) {
	body := strings.Replace(sampleService, `"autoDeploy": "yes"`, `"autoDeploy": "maybe"`, 1)

	var svc Service
	if err := json.Unmarshal([]byte(body), &svc); err == nil {
		t.Fatal("Expected unknown autoDeploy token to fail deserialization")
	}
}

func TestYesNo_Marshal(t *testing.T) {
	for _, v := range []YesNo{true, false} {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		var back YesNo
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("Unmarshal of %s failed: %v", data, err)
		}
		if back != v {
			t.Errorf("Round trip of %v gave %v", v, back)
		}
	}
}

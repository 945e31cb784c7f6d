package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"renderdeploy/internal/render"
)

var (
	testService = render.Service{
		ID:           "srv-abc",
		Name:         "api",
		Branch:       "main",
		Repo:         "https://github.com/acme/api",
		DashboardURL: "https://dashboard.render.com/web/srv-abc",
	}
	finished = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
)

func TestFound(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Found(testService)

	want := "Found api https://dashboard.render.com/web/srv-abc\n"
	if buf.String() != want {
		t.Errorf("Found() wrote %q, want %q", buf.String(), want)
	}
}

func TestTarget(t *testing.T) {
	tests := []struct {
		name   string
		commit string
		want   string
	}{
		{"branch when no commit", "", "Deploying https://github.com/acme/api #main\n\n"},
		{"commit when given", "abc123", "Deploying https://github.com/acme/api #abc123\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			New(&buf).Target(testService, tt.commit)
			if buf.String() != tt.want {
				t.Errorf("Target() wrote %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestPreviousDeploy(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).PreviousDeploy(render.Deploy{
		ID:         "dep-1",
		Commit:     render.CommitInfo{ID: "abc123", Message: "Fix login\n\nLonger body"},
		Status:     render.StatusLive,
		FinishedAt: &finished,
	})

	want := "Previous Deploy abc123 - Fix login\nStatus: Live on 2024-03-01T12:30:00Z\n\n"
	if buf.String() != want {
		t.Errorf("PreviousDeploy() wrote %q, want %q", buf.String(), want)
	}
}

func TestCreated(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Created(testService, render.Deploy{
		ID:     "dep-2",
		Commit: render.CommitInfo{ID: "def456", Message: "Add feature"},
		Status: render.StatusBuildInProgress,
	})

	want := "Created Deploy #def456 - Add feature\n" +
		"https://dashboard.render.com/web/srv-abc/deploys/dep-2\n" +
		"Status: Build In Progress\n"
	if buf.String() != want {
		t.Errorf("Created() wrote %q, want %q", buf.String(), want)
	}
}

func TestOutcomes(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)

	r.Live(render.Deploy{Status: render.StatusLive, FinishedAt: &finished}, 42*time.Second+900*time.Millisecond)
	r.Stopped(render.Deploy{Status: render.StatusBuildFailed})
	r.TimedOut(10 * time.Minute)

	want := "Deploy is live on 2024-03-01T12:30:00Z in 42 seconds\n" +
		"Deploy has Stopped unknown\n" +
		"Deploy timed out after 10m0s\n"
	if buf.String() != want {
		t.Errorf("Unexpected output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestLatestDeploy(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)

	r.LatestDeploy(testService, nil)
	if buf.String() != "No deploys yet\n" {
		t.Errorf("Unexpected output for no deploys: %q", buf.String())
	}

	buf.Reset()
	r.LatestDeploy(testService, &render.Deploy{
		ID:     "dep-9",
		Commit: render.CommitInfo{ID: "abc123", Message: "Tidy"},
		Status: render.StatusCanceled,
	})
	if !strings.Contains(buf.String(), "/deploys/dep-9") {
		t.Errorf("Expected deploy link, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "Status: Canceled on unknown") {
		t.Errorf("Expected status line, got %q", buf.String())
	}
}

func TestColors(t *testing.T) {
	var plain bytes.Buffer
	New(&plain).AutoDeployWarning()
	if strings.Contains(plain.String(), "\033[") {
		t.Errorf("Expected no escape codes for a non-terminal writer, got %q", plain.String())
	}
	if plain.String() != "Warning: AutoDeploy is true\n" {
		t.Errorf("Unexpected warning %q", plain.String())
	}

	var colored bytes.Buffer
	r := NewWithColor(&colored, true)
	r.Status(render.Deploy{Status: render.StatusLive})
	r.Status(render.Deploy{Status: render.StatusUpdateFailed})
	r.Status(render.Deploy{Status: render.StatusCreated})

	lines := strings.Split(strings.TrimSuffix(colored.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %q", colored.String())
	}
	if lines[0] != "Status: "+colorGreen+"Live"+colorReset {
		t.Errorf("Expected green live status, got %q", lines[0])
	}
	if lines[1] != "Status: "+colorRed+"Update Failed"+colorReset {
		t.Errorf("Expected red failed status, got %q", lines[1])
	}
	if lines[2] != "Status: Created" {
		t.Errorf("Expected plain in-progress status, got %q", lines[2])
	}
}

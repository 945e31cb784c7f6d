// Package report prints deploy progress for humans.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"renderdeploy/internal/render"

	"golang.org/x/term"
)

const (
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

// Reporter writes progress lines. Methods are not safe for concurrent use.
type Reporter struct {
	w     io.Writer
	color bool
}

// New creates a reporter. Colours are enabled only when w is a terminal
// and NO_COLOR is unset.
func New(w io.Writer) *Reporter {
	return &Reporter{w: w, color: isTerminal(w) && os.Getenv("NO_COLOR") == ""}
}

// NewWithColor creates a reporter with colours forced on or off.
func NewWithColor(w io.Writer, color bool) *Reporter {
	return &Reporter{w: w, color: color}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Found reports the resolved service.
func (r *Reporter) Found(svc render.Service) {
	r.printf("Found %s %s\n", svc.Name, svc.DashboardURL)
}

// AutoDeployWarning warns that the platform also deploys on push.
func (r *Reporter) AutoDeployWarning() {
	r.printf("%s\n", r.paint(colorYellow, "Warning: AutoDeploy is true"))
}

// Target reports what is about to be deployed: the commit when one was
// given, the service branch otherwise.
func (r *Reporter) Target(svc render.Service, commit string) {
	ref := svc.Branch
	if commit != "" {
		ref = commit
	}
	r.printf("Deploying %s #%s\n\n", svc.Repo, ref)
}

// PreviousDeploy reports the deploy that was current before triggering.
func (r *Reporter) PreviousDeploy(d render.Deploy) {
	r.printf("Previous Deploy %s - %s\n", d.Commit.ID, firstLine(d.Commit.Message))
	r.printf("Status: %s on %s\n\n", d.Status, finishedAt(d))
}

// LatestDeploy reports the most recent deploy of a service, if any.
func (r *Reporter) LatestDeploy(svc render.Service, d *render.Deploy) {
	if d == nil {
		r.printf("No deploys yet\n")
		return
	}
	r.printf("Latest Deploy %s - %s\n", d.Commit.ID, firstLine(d.Commit.Message))
	r.printf("%s\n", render.DeployURL(svc, *d))
	r.printf("Status: %s on %s\n", r.status(d.Status), finishedAt(*d))
}

// Created reports a freshly triggered deploy.
func (r *Reporter) Created(svc render.Service, d render.Deploy) {
	r.printf("Created Deploy #%s - %s\n", d.Commit.ID, firstLine(d.Commit.Message))
	r.printf("%s\n", render.DeployURL(svc, d))
	r.Status(d)
}

// Status reports one observed status.
func (r *Reporter) Status(d render.Deploy) {
	r.printf("Status: %s\n", r.status(d.Status))
}

// Live reports a successful deploy.
func (r *Reporter) Live(d render.Deploy, elapsed time.Duration) {
	msg := fmt.Sprintf("Deploy is live on %s in %d seconds", finishedAt(d), int64(elapsed/time.Second))
	r.printf("%s\n", r.paint(colorGreen, msg))
}

// Stopped reports a deploy that ended without going live.
func (r *Reporter) Stopped(d render.Deploy) {
	r.printf("%s\n", r.paint(colorRed, "Deploy has Stopped "+finishedAt(d)))
}

// TimedOut reports that waiting gave up. The deploy itself keeps running.
func (r *Reporter) TimedOut(timeout time.Duration) {
	r.printf("%s\n", r.paint(colorRed, "Deploy timed out after "+timeout.String()))
}

func (r *Reporter) status(s render.DeployStatus) string {
	switch s.Class() {
	case render.ClassSucceeded:
		return r.paint(colorGreen, s.String())
	case render.ClassFailed:
		return r.paint(colorRed, s.String())
	default:
		return s.String()
	}
}

func (r *Reporter) paint(color, s string) string {
	if !r.color {
		return s
	}
	return color + s + colorReset
}

func (r *Reporter) printf(format string, args ...any) {
	fmt.Fprintf(r.w, format, args...)
}

func finishedAt(d render.Deploy) string {
	if d.FinishedAt == nil {
		return "unknown"
	}
	return d.FinishedAt.Format(time.RFC3339)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimRight(s[:i], "\r")
	}
	return s
}

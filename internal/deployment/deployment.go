package deployment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"renderdeploy/internal/commitref"
	"renderdeploy/internal/config"
	"renderdeploy/internal/poller"
	"renderdeploy/internal/render"
	"renderdeploy/internal/report"
)

var (
	// ErrTimedOut means waiting gave up. The deploy keeps running remotely.
	ErrTimedOut = errors.New("deploy timed out")

	// ErrDeployFailed means the deploy reached a terminal status other than live
	ErrDeployFailed = errors.New("deploy failed")
)

// API is the part of the platform client a deployment needs
type API interface {
	ResolveService(ctx context.Context, name string) (render.Service, error)
	LatestDeploy(ctx context.Context, serviceID string) (*render.Deploy, error)
	TriggerDeploy(ctx context.Context, serviceID string, opts render.TriggerOptions) (render.Deploy, error)
}

// CommitResolver turns a user-supplied ref into a commit id
type CommitResolver interface {
	Resolve(ctx context.Context, repoURL, ref string) (commitref.Resolved, error)
}

// Outcome describes what a run did. Fields are filled in as far as the run got.
type Outcome struct {
	Service  render.Service
	Previous *render.Deploy
	Commit   commitref.Resolved
	Deploy   render.Deploy
	URL      string

	// Poll is set only when the run waited for the deploy
	Poll *poller.Result
}

// Runner triggers a deploy and optionally waits for it.
type Runner struct {
	Client   API
	Commits  CommitResolver // optional; nil sends the ref as given
	Poller   *poller.Poller // required when waiting
	Reporter *report.Reporter
	Logger   *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

// Run resolves the service, triggers a deploy and, when cfg.Wait is set,
// polls it to a terminal status. A failed deploy returns ErrDeployFailed
// and an expired wait returns ErrTimedOut.
func (r *Runner) Run(ctx context.Context, cfg config.Config) (Outcome, error) {
	logger := r.logger().With("service", cfg.ServiceName)
	var out Outcome

	logger.Debug("Resolving service")
	svc, err := r.Client.ResolveService(ctx, cfg.ServiceName)
	if err != nil {
		return out, err
	}
	out.Service = svc
	logger = logger.With("service_id", svc.ID)

	r.Reporter.Found(svc)
	if svc.AutoDeploy {
		r.Reporter.AutoDeployWarning()
	}
	r.Reporter.Target(svc, cfg.Commit)

	prev, err := r.Client.LatestDeploy(ctx, svc.ID)
	if err != nil {
		return out, fmt.Errorf("fetch previous deploy: %w", err)
	}
	if prev != nil {
		out.Previous = prev
		r.Reporter.PreviousDeploy(*prev)
	}

	out.Commit = commitref.Resolved{Ref: cfg.Commit, CommitID: cfg.Commit, Source: commitref.SourceLiteral}
	if r.Commits != nil {
		out.Commit, err = r.Commits.Resolve(ctx, svc.Repo, cfg.Commit)
		if err != nil {
			return out, err
		}
	}
	if out.Commit.CommitID != out.Commit.Ref {
		logger.Info("Resolved commit", "ref", out.Commit.Ref, "commit", out.Commit.CommitID, "source", out.Commit.Source)
	}

	logger.Info("Triggering deploy", "commit", out.Commit.CommitID, "clear_cache", cfg.ClearCache)
	deploy, err := r.Client.TriggerDeploy(ctx, svc.ID, render.TriggerOptions{
		CommitID:   out.Commit.CommitID,
		ClearCache: cfg.ClearCache,
	})
	if err != nil {
		return out, err
	}
	out.Deploy = deploy
	out.URL = render.DeployURL(svc, deploy)
	r.Reporter.Created(svc, deploy)

	if !cfg.Wait {
		return out, nil
	}
	if r.Poller == nil {
		return out, fmt.Errorf("waiting requested but no poller configured")
	}

	logger.Debug("Waiting for deploy", "deploy_id", deploy.ID, "interval", r.Poller.Interval(), "timeout", r.Poller.Timeout())
	res, err := r.Poller.Poll(ctx, svc.ID, deploy.ID)
	out.Poll = &res
	if res.Polls > 0 {
		out.Deploy = res.Deploy
	}
	if err != nil {
		return out, err
	}

	switch res.State {
	case poller.Succeeded:
		r.Reporter.Live(res.Deploy, res.Elapsed)
		logger.Info("Deploy is live", "deploy_id", deploy.ID, "elapsed", res.Elapsed, "polls", res.Polls)
		return out, nil
	case poller.Failed:
		r.Reporter.Stopped(res.Deploy)
		logger.Warn("Deploy stopped", "deploy_id", deploy.ID, "status", string(res.Deploy.Status))
		return out, fmt.Errorf("%w: %s (%s)", ErrDeployFailed, res.Deploy.Status, out.URL)
	case poller.TimedOut:
		r.Reporter.TimedOut(r.Poller.Timeout())
		logger.Warn("Deploy timed out", "deploy_id", deploy.ID, "elapsed", res.Elapsed, "polls", res.Polls)
		return out, fmt.Errorf("%w after %s; it is still running: %s", ErrTimedOut, r.Poller.Timeout(), out.URL)
	default:
		return out, fmt.Errorf("poller stopped in unexpected state %s", res.State)
	}
}

// Status reports a service and its most recent deploy without changing anything.
func (r *Runner) Status(ctx context.Context, name string) (render.Service, *render.Deploy, error) {
	svc, err := r.Client.ResolveService(ctx, name)
	if err != nil {
		return render.Service{}, nil, err
	}
	r.Reporter.Found(svc)
	if svc.AutoDeploy {
		r.Reporter.AutoDeployWarning()
	}

	latest, err := r.Client.LatestDeploy(ctx, svc.ID)
	if err != nil {
		return svc, nil, fmt.Errorf("fetch latest deploy: %w", err)
	}
	r.Reporter.LatestDeploy(svc, latest)
	return svc, latest, nil
}

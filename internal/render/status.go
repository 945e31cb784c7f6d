package render

import "fmt"

// DeployStatus is the lifecycle state of a deploy as reported by the platform.
type DeployStatus string

const (
	StatusCreated             DeployStatus = "created"
	StatusBuildInProgress     DeployStatus = "build_in_progress"
	StatusUpdateInProgress    DeployStatus = "update_in_progress"
	StatusPreDeployInProgress DeployStatus = "pre_deploy_in_progress"
	StatusLive                DeployStatus = "live"
	StatusDeactivated         DeployStatus = "deactivated"
	StatusBuildFailed         DeployStatus = "build_failed"
	StatusUpdateFailed        DeployStatus = "update_failed"
	StatusCanceled            DeployStatus = "canceled"
	StatusPreDeployFailed     DeployStatus = "pre_deploy_failed"
)

// StatusClass partitions deploy statuses for the poller.
type StatusClass int

const (
	ClassInProgress StatusClass = iota
	ClassSucceeded
	ClassFailed
)

func (c StatusClass) String() string {
	switch c {
	case ClassInProgress:
		return "in_progress"
	case ClassSucceeded:
		return "succeeded"
	case ClassFailed:
		return "failed"
	default:
		return fmt.Sprintf("StatusClass(%d)", int(c))
	}
}

type statusInfo struct {
	class StatusClass
	label string
}

// statuses is the complete table of known statuses. Anything missing here
// is rejected at decode time.
var statuses = map[DeployStatus]statusInfo{
	StatusCreated:             {ClassInProgress, "Created"},
	StatusBuildInProgress:     {ClassInProgress, "Build In Progress"},
	StatusUpdateInProgress:    {ClassInProgress, "Update In Progress"},
	StatusPreDeployInProgress: {ClassInProgress, "Pre-Deploy In Progress"},
	StatusLive:                {ClassSucceeded, "Live"},
	StatusDeactivated:         {ClassFailed, "Deactivated"},
	StatusBuildFailed:         {ClassFailed, "Build Failed"},
	StatusUpdateFailed:        {ClassFailed, "Update Failed"},
	StatusCanceled:            {ClassFailed, "Canceled"},
	StatusPreDeployFailed:     {ClassFailed, "Pre-Deploy Failed"},
}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []DeployStatus {
	return []DeployStatus{
		StatusCreated,
		StatusBuildInProgress,
		StatusUpdateInProgress,
		StatusPreDeployInProgress,
		StatusLive,
		StatusDeactivated,
		StatusBuildFailed,
		StatusUpdateFailed,
		StatusCanceled,
		StatusPreDeployFailed,
	}
}

// ParseDeployStatus converts a wire value into a DeployStatus.
// Unknown values are an error so that new platform statuses are noticed
// instead of being treated as in progress forever.
func ParseDeployStatus(s string) (DeployStatus, error) {
	status := DeployStatus(s)
	if _, ok := statuses[status]; !ok {
		return "", fmt.Errorf("unknown deploy status %q", s)
	}
	return status, nil
}

// Class reports whether the status is in progress, succeeded or failed.
// Callers should only pass statuses produced by ParseDeployStatus; an
// unknown value is classified as failed.
func (s DeployStatus) Class() StatusClass {
	info, ok := statuses[s]
	if !ok {
		return ClassFailed
	}
	return info.class
}

// IsTerminal reports whether no further transition can happen.
func (s DeployStatus) IsTerminal() bool {
	return s.Class() != ClassInProgress
}

func (s DeployStatus) String() string {
	if info, ok := statuses[s]; ok {
		return info.label
	}
	return string(s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *DeployStatus) UnmarshalText(text []byte) error {
	status, err := ParseDeployStatus(string(text))
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (s DeployStatus) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

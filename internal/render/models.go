package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// YesNo is a boolean that the platform encodes as the strings "yes" and "no".
type YesNo bool

// ParseYesNo maps the platform's "yes"/"no" tokens to a bool.
func ParseYesNo(s string) (bool, error) {
	switch s {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, fmt.Errorf("unknown variant %q, expected one of \"yes\", \"no\"", s)
	}
}

// UnmarshalJSON implements json.Unmarshaler. Only the strings "yes" and
// "no" are accepted; JSON booleans are rejected too.
func (b *YesNo) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected \"yes\" or \"no\": %w", err)
	}
	v, err := ParseYesNo(s)
	if err != nil {
		return err
	}
	*b = YesNo(v)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (b YesNo) MarshalJSON() ([]byte, error) {
	if b {
		return []byte(`"yes"`), nil
	}
	return []byte(`"no"`), nil
}

// Service is a deployable unit on the platform
type Service struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Branch       string    `json:"branch"`
	Repo         string    `json:"repo"`
	AutoDeploy   YesNo     `json:"autoDeploy"`
	DashboardURL string    `json:"dashboardUrl"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CommitInfo describes the code snapshot a deploy was built from
type CommitInfo struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Deploy is one deployment attempt of a service
type Deploy struct {
	ID         string       `json:"id"`
	Commit     CommitInfo   `json:"commit"`
	Status     DeployStatus `json:"status"`
	Trigger    string       `json:"trigger,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
	FinishedAt *time.Time   `json:"finishedAt"` // nil until terminal
}

// listServiceItem is one element of the paginated services listing
type listServiceItem struct {
	Cursor  string  `json:"cursor"`
	Service Service `json:"service"`
}

// listDeployItem is one element of the paginated deploys listing
type listDeployItem struct {
	Cursor string `json:"cursor"`
	Deploy Deploy `json:"deploy"`
}

func (s *Service) validate() error {
	required := []struct {
		field, value string
	}{
		{"id", s.ID},
		{"name", s.Name},
		{"branch", s.Branch},
		{"repo", s.Repo},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("service is missing required field %q", r.field)
		}
	}
	return nil
}

func (d *Deploy) validate() error {
	if d.ID == "" {
		return errors.New("deploy is missing required field \"id\"")
	}
	if d.Status == "" {
		return errors.New("deploy is missing required field \"status\"")
	}
	return nil
}

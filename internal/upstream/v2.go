package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/schema"
)

// V2Source reads worklogs from the activity endpoint of the v2 API.
type V2Source struct {
	client  *Client
	company string
}

var _ contract.WorklogSource = &V2Source{} // Compile-time check

// NewV2Source builds a v2 source. Its token travels as a query parameter and cannot be refreshed.
func NewV2Source(cfg contract.UpstreamConfig) *V2Source {
	return &V2Source{
		client:  NewClient(clientConfig(cfg, cfg.V2BaseURL, QueryToken{Token: cfg.V2Token})),
		company: cfg.V2Company,
	}
}

// APIVersion implements contract.WorklogSource.
func (s *V2Source) APIVersion() schema.APIVersion { return schema.APIv2 }

type v2Item struct {
	ID          flexString `json:"id"`
	UserID      flexString `json:"userId"`
	ProjectID   flexString `json:"projectId"`
	ProjectName string     `json:"projectName"`
	TaskID      flexString `json:"taskId"`
	TaskName    string     `json:"taskName"`
	Mode        flexString `json:"mode"`
	Start       string     `json:"start"`
	Time        flexInt64  `json:"time"` // seconds
}

type v2Response struct {
	Data [][]v2Item `json:"data"`
}

// GetUserWorklogs implements contract.WorklogSource.
func (s *V2Source) GetUserWorklogs(ctx context.Context, externalUserID string, dayStart, dayEnd time.Time, offset, limit int) ([]schema.UpstreamWorklog, error) {
	query := url.Values{}
	query.Set("user", externalUserID)
	query.Set("from", dayStart.UTC().Format(time.RFC3339))
	query.Set("to", dayEnd.UTC().Format(time.RFC3339))
	query.Set("company", s.company)
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))

	resp, err := s.client.Get(ctx, "/activity/worklog", query)
	if err != nil {
		return nil, err
	}
	var payload v2Response
	if err := resp.JSON(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode v2 worklogs: %w", contract.ErrDataIntegrity, err)
	}

	var out []schema.UpstreamWorklog
	for _, group := range payload.Data {
		for _, item := range group {
			out = append(out, item.normalize())
		}
	}
	return out, nil
}

// normalize derives the end time from start plus the tracked seconds.
func (i v2Item) normalize() schema.UpstreamWorklog {
	w := schema.UpstreamWorklog{
		ID:              string(i.ID),
		UserID:          string(i.UserID),
		ProjectID:       string(i.ProjectID),
		ProjectName:     i.ProjectName,
		TaskID:          string(i.TaskID),
		TaskName:        i.TaskName,
		WorkMode:        string(i.Mode),
		StartTime:       parseTime(i.Start),
		DurationSeconds: int64(i.Time),
	}
	if !w.StartTime.IsZero() && w.DurationSeconds >= 0 {
		w.EndTime = w.StartTime.Add(time.Duration(w.DurationSeconds) * time.Second)
	}
	return w
}

// New returns the worklog source for the configured API version.
func New(cfg contract.UpstreamConfig) (contract.WorklogSource, error) {
	switch cfg.APIVersion {
	case schema.APIv1, "":
		return NewV1Source(cfg), nil
	case schema.APIv2:
		return NewV2Source(cfg), nil
	default:
		return nil, contract.Validationf("unsupported api version: %s", cfg.APIVersion)
	}
}

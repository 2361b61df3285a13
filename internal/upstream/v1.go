package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/schema"
)

// V1Source reads worklogs from the company-scoped v1 API.
type V1Source struct {
	client    *Client
	companyID string
}

var _ contract.WorklogSource = &V1Source{} // Compile-time check

// NewV1Source builds a v1 source whose client refreshes its bearer token on 401.
func NewV1Source(cfg contract.UpstreamConfig) *V1Source {
	auth := NewOAuthRefresher(cfg.V1Token, cfg.V1RefreshToken, cfg.V1ClientID, cfg.V1ClientSecret, cfg.V1TokenURL)
	return &V1Source{
		client:    NewClient(clientConfig(cfg, cfg.V1BaseURL, auth)),
		companyID: cfg.V1CompanyID,
	}
}

// APIVersion implements contract.WorklogSource.
func (s *V1Source) APIVersion() schema.APIVersion { return schema.APIv1 }

type v1Item struct {
	ID          flexString `json:"id"`
	UserID      flexString `json:"user_id"`
	ProjectID   flexString `json:"project_id"`
	ProjectName string     `json:"project_name"`
	TaskID      flexString `json:"task_id"`
	TaskName    string     `json:"task_name"`
	WorkMode    flexString `json:"work_mode"`
	StartTime   string     `json:"start_time"`
	EndTime     string     `json:"end_time"`
	Length      flexInt64  `json:"length"`
}

type v1Response struct {
	Worklogs json.RawMessage `json:"worklogs"`
}

// GetUserWorklogs implements contract.WorklogSource.
func (s *V1Source) GetUserWorklogs(ctx context.Context, externalUserID string, dayStart, dayEnd time.Time, offset, limit int) ([]schema.UpstreamWorklog, error) {
	query := url.Values{}
	query.Set("start_date", dayStart.UTC().Format(time.RFC3339))
	query.Set("end_date", dayEnd.UTC().Format(time.RFC3339))
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))
	query.Set("user_ids", externalUserID)

	resp, err := s.client.Get(ctx, "/companies/"+url.PathEscape(s.companyID)+"/worklogs", query)
	if err != nil {
		return nil, err
	}
	items, err := decodeV1(resp.Body)
	if err != nil {
		return nil, err
	}

	out := make([]schema.UpstreamWorklog, 0, len(items))
	for _, item := range items {
		out = append(out, item.normalize())
	}
	return out, nil
}

// decodeV1 accepts both {"worklogs":{"items":[...]}} and {"worklogs":[...]}.
func decodeV1(body []byte) ([]v1Item, error) {
	var resp v1Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode v1 worklogs: %w", contract.ErrDataIntegrity, err)
	}
	raw := bytes.TrimSpace(resp.Worklogs)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var items []v1Item
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: decode v1 worklog items: %w", contract.ErrDataIntegrity, err)
		}
		return items, nil
	}

	var wrapped struct {
		Items []v1Item `json:"items"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: decode v1 worklog items: %w", contract.ErrDataIntegrity, err)
	}
	return wrapped.Items, nil
}

func (i v1Item) normalize() schema.UpstreamWorklog {
	w := schema.UpstreamWorklog{
		ID:              string(i.ID),
		UserID:          string(i.UserID),
		ProjectID:       string(i.ProjectID),
		ProjectName:     i.ProjectName,
		TaskID:          string(i.TaskID),
		TaskName:        i.TaskName,
		WorkMode:        string(i.WorkMode),
		StartTime:       parseTime(i.StartTime),
		EndTime:         parseTime(i.EndTime),
		DurationSeconds: int64(i.Length),
	}
	if w.DurationSeconds <= 0 && !w.StartTime.IsZero() && !w.EndTime.IsZero() {
		w.DurationSeconds = int64(w.EndTime.Sub(w.StartTime) / time.Second)
	}
	return w
}

func clientConfig(cfg contract.UpstreamConfig, baseURL string, auth Authenticator) ClientConfig {
	return ClientConfig{
		BaseURL:        baseURL,
		Auth:           auth,
		MaxRetries:     cfg.MaxRetries,
		RetryBackoff:   cfg.RetryBackoff,
		ConnectTimeout: cfg.ConnectTimeout,
		RequestTimeout: cfg.RequestTimeout,
		RateLimit:      cfg.RateLimit,
	}
}

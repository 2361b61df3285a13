// Package refdata loads reference data (users, work status settings, overrides,
// projects, tasks, report categories) from YAML into the store.
package refdata

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/schema"
	"gopkg.in/yaml.v3"
)

// Document is the YAML layout of a reference-data file. Entries refer to each
// other by key rather than by database id.
type Document struct {
	Settings   []Setting  `yaml:"settings"`
	Users      []User     `yaml:"users"`
	Categories []Category `yaml:"categories"`
	Projects   []Project  `yaml:"projects"`
	Tasks      []Task     `yaml:"tasks"`
}

// Setting is a default weekly-hours row.
type Setting struct {
	Key          string  `yaml:"key"`
	WorkStatus   string  `yaml:"work_status"`
	HoursPerWeek float64 `yaml:"hours_per_week"`
	Inactive     bool    `yaml:"inactive"`
}

// User is one IVA user with its history and overrides.
type User struct {
	FullName   string     `yaml:"full_name"`
	Email      string     `yaml:"email"`
	WorkStatus string     `yaml:"work_status"`
	HireDate   string     `yaml:"hire_date"`
	EndDate    string     `yaml:"end_date"`
	V1UserID   string     `yaml:"v1_user_id"`
	V2UserID   string     `yaml:"v2_user_id"`
	Inactive   bool       `yaml:"inactive"`
	Changes    []Change   `yaml:"changes"`
	Overrides  []Override `yaml:"overrides"`
}

// Change is a work status changelog entry.
type Change struct {
	Date string `yaml:"date"`
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Override replaces the weekly hours of a setting for one user.
type Override struct {
	Setting      string  `yaml:"setting"`
	HoursPerWeek float64 `yaml:"hours_per_week"`
	StartDate    string  `yaml:"start_date"`
	EndDate      string  `yaml:"end_date"`
}

// Category is a report category referenced by tasks.
type Category struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Project maps an upstream project id to a local project.
type Project struct {
	ExternalID string `yaml:"external_id"`
	APIVersion string `yaml:"api_version"`
	Name       string `yaml:"name"`
}

// Task is a local task with optional upstream associations and categories.
type Task struct {
	Name         string        `yaml:"name"`
	Associations []Association `yaml:"associations"`
	Categories   []string      `yaml:"categories"`
}

// Association links a task to an upstream task id.
type Association struct {
	ID         string `yaml:"id"`
	APIVersion string `yaml:"api_version"`
}

// Result counts what Import wrote.
type Result struct {
	Settings   int `json:"settings"`
	Users      int `json:"users"`
	Changes    int `json:"changes"`
	Overrides  int `json:"overrides"`
	Categories int `json:"categories"`
	Projects   int `json:"projects"`
	Tasks      int `json:"tasks"`
}

// Load decodes a document, rejecting unknown fields.
func Load(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: invalid reference data: %v", contract.ErrValidation, err)
	}
	return &doc, nil
}

// LoadFile reads and decodes a document from path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference data: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

func parseStatus(s string) (schema.WorkStatus, error) {
	if s == "" {
		return schema.FullTime, nil
	}
	status := schema.WorkStatus(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := schema.ValidWorkStatuses[status]; !ok {
		return "", contract.Validationf("invalid work status %q", s)
	}
	return status, nil
}

func parseVersion(s string) (schema.APIVersion, error) {
	if s == "" {
		return schema.APIv1, nil
	}
	v := schema.APIVersion(strings.ToLower(s))
	if _, ok := schema.ValidAPIVersions[v]; !ok {
		return "", contract.Validationf("invalid api version %q", s)
	}
	return v, nil
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := schema.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contract.ErrValidation, err)
	}
	return &d, nil
}

// Validate checks every value and cross-reference without touching the store.
func (d *Document) Validate() error {
	settings := make(map[string]struct{}, len(d.Settings))
	for _, s := range d.Settings {
		if s.Key == "" {
			return contract.Validationf("setting without key")
		}
		if _, err := parseStatus(s.WorkStatus); err != nil {
			return fmt.Errorf("setting %q: %w", s.Key, err)
		}
		if s.HoursPerWeek <= 0 {
			return contract.Validationf("setting %q: hours_per_week must be positive", s.Key)
		}
		settings[s.Key] = struct{}{}
	}

	for _, u := range d.Users {
		if u.FullName == "" {
			return contract.Validationf("user without full_name")
		}
		if _, err := parseStatus(u.WorkStatus); err != nil {
			return fmt.Errorf("user %q: %w", u.FullName, err)
		}
		for _, raw := range []string{u.HireDate, u.EndDate} {
			if _, err := parseOptionalDate(raw); err != nil {
				return fmt.Errorf("user %q: %w", u.FullName, err)
			}
		}
		for _, c := range u.Changes {
			if _, err := schema.ParseDate(c.Date); err != nil {
				return fmt.Errorf("user %q change: %w: %v", u.FullName, contract.ErrValidation, err)
			}
			if _, err := parseStatus(c.To); err != nil || c.To == "" {
				return contract.Validationf("user %q change on %s: invalid target status %q", u.FullName, c.Date, c.To)
			}
			if c.From != "" {
				if _, err := parseStatus(c.From); err != nil {
					return fmt.Errorf("user %q change on %s: %w", u.FullName, c.Date, err)
				}
			}
		}
		for _, o := range u.Overrides {
			if _, ok := settings[o.Setting]; !ok {
				return contract.Validationf("user %q: override references unknown setting %q", u.FullName, o.Setting)
			}
			if o.HoursPerWeek < 0 {
				return contract.Validationf("user %q: override hours must not be negative", u.FullName)
			}
			start, err := parseOptionalDate(o.StartDate)
			if err != nil {
				return fmt.Errorf("user %q override: %w", u.FullName, err)
			}
			end, err := parseOptionalDate(o.EndDate)
			if err != nil {
				return fmt.Errorf("user %q override: %w", u.FullName, err)
			}
			if start != nil && end != nil && end.Before(*start) {
				return contract.Validationf("user %q: override ends before it starts", u.FullName)
			}
		}
	}

	categories := make(map[string]struct{}, len(d.Categories))
	for _, c := range d.Categories {
		if c.Key == "" || c.Name == "" {
			return contract.Validationf("category requires key and name")
		}
		if c.Type == "" {
			return contract.Validationf("category %q requires a type", c.Key)
		}
		categories[c.Key] = struct{}{}
	}

	for _, p := range d.Projects {
		if p.ExternalID == "" {
			return contract.Validationf("project %q without external_id", p.Name)
		}
		if _, err := parseVersion(p.APIVersion); err != nil {
			return fmt.Errorf("project %q: %w", p.Name, err)
		}
	}

	for _, t := range d.Tasks {
		if t.Name == "" {
			return contract.Validationf("task without name")
		}
		for _, a := range t.Associations {
			if a.ID == "" {
				return contract.Validationf("task %q: association without id", t.Name)
			}
			if _, err := parseVersion(a.APIVersion); err != nil {
				return fmt.Errorf("task %q: %w", t.Name, err)
			}
		}
		for _, key := range t.Categories {
			if _, ok := categories[key]; !ok {
				return contract.Validationf("task %q references unknown category %q", t.Name, key)
			}
		}
	}
	return nil
}

// Import validates the document and writes it through the store. Settings are
// upserted by key; every other entry is inserted.
func Import(ctx context.Context, store contract.ReferenceStore, doc *Document) (Result, error) {
	var res Result
	if err := doc.Validate(); err != nil {
		return res, err
	}

	settingIDs := make(map[string]int64, len(doc.Settings))
	settingStatus := make(map[string]schema.WorkStatus, len(doc.Settings))
	for _, s := range doc.Settings {
		status, _ := parseStatus(s.WorkStatus)
		id, err := store.UpsertWorkStatusSetting(ctx, schema.WorkStatusSetting{
			Key: s.Key, WorkStatus: status, HoursPerWeek: s.HoursPerWeek, IsActive: !s.Inactive,
		})
		if err != nil {
			return res, err
		}
		settingIDs[s.Key] = id
		settingStatus[s.Key] = status
		res.Settings++
	}

	for _, u := range doc.Users {
		status, _ := parseStatus(u.WorkStatus)
		hire, _ := parseOptionalDate(u.HireDate)
		end, _ := parseOptionalDate(u.EndDate)
		userID, err := store.CreateUser(ctx, schema.IvaUser{
			FullName: u.FullName, Email: u.Email, WorkStatus: status, HireDate: hire, EndDate: end,
			ExternalUserIDv1: u.V1UserID, ExternalUserIDv2: u.V2UserID, IsActive: !u.Inactive,
		})
		if err != nil {
			return res, err
		}
		res.Users++

		for _, c := range u.Changes {
			effective, _ := schema.ParseDate(c.Date)
			to, _ := parseStatus(c.To)
			var from schema.WorkStatus
			if c.From != "" {
				from, _ = parseStatus(c.From)
			}
			if _, err := store.AddWorkStatusChange(ctx, schema.WorkStatusChange{
				UserID: userID, OldValue: from, NewValue: to, EffectiveDate: effective,
			}); err != nil {
				return res, err
			}
			res.Changes++
		}

		for _, o := range u.Overrides {
			start, _ := parseOptionalDate(o.StartDate)
			end, _ := parseOptionalDate(o.EndDate)
			if _, err := store.CreateUserOverride(ctx, schema.UserHourOverride{
				UserID: userID, SettingID: settingIDs[o.Setting], WorkStatus: settingStatus[o.Setting],
				HoursPerWeek: o.HoursPerWeek, StartDate: start, EndDate: end,
			}); err != nil {
				return res, err
			}
			res.Overrides++
		}
	}

	categoryIDs := make(map[string]int64, len(doc.Categories))
	for _, c := range doc.Categories {
		id, err := store.CreateReportCategory(ctx, schema.ReportCategory{Name: c.Name, Type: schema.CategoryType(c.Type)})
		if err != nil {
			return res, err
		}
		categoryIDs[c.Key] = id
		res.Categories++
	}

	for _, p := range doc.Projects {
		version, _ := parseVersion(p.APIVersion)
		if _, err := store.CreateProject(ctx, schema.Project{ExternalProjectID: p.ExternalID, APIVersion: version, Name: p.Name}); err != nil {
			return res, err
		}
		res.Projects++
	}

	for _, t := range doc.Tasks {
		task := schema.Task{Name: t.Name}
		for _, a := range t.Associations {
			version, _ := parseVersion(a.APIVersion)
			task.Associations = append(task.Associations, schema.TaskAssociation{TaskID: a.ID, APIVersion: string(version)})
		}
		taskID, err := store.CreateTask(ctx, task)
		if err != nil {
			return res, err
		}
		for _, key := range t.Categories {
			if err := store.LinkTaskCategory(ctx, taskID, categoryIDs[key]); err != nil {
				return res, err
			}
		}
		res.Tasks++
	}
	return res, nil
}

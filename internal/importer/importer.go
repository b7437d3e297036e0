// Package importer creates tasks in bulk from a YAML document.
//
//	tasks:
//	  - key: taxes
//	    name: File taxes
//	    deadline: 2024-04-15
//	  - name: Collect receipts
//	    parent: taxes
//	    repeat: {every: 1, unit: week, start: 2024-01-01, on: [mon, thu]}
//
// A parent is either the key of an earlier entry or the id of an existing
// task.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/civil"
	"gopkg.in/yaml.v3"

	"github.com/nhle/nowtask/internal/model"
	"github.com/nhle/nowtask/internal/service"
)

// Document is the top-level YAML structure.
type Document struct {
	Tasks []Draft `yaml:"tasks"`
}

// Draft is one task entry.
type Draft struct {
	Key        string  `yaml:"key"`
	Name       string  `yaml:"name"`
	Note       string  `yaml:"note"`
	Deadline   string  `yaml:"deadline"`
	StartAfter string  `yaml:"start_after"`
	Scheduled  string  `yaml:"scheduled"`
	Category   string  `yaml:"category"`
	Parent     string  `yaml:"parent"`
	Repeat     *Repeat `yaml:"repeat"`
}

// Repeat is the recurrence of a Draft.
type Repeat struct {
	Every int      `yaml:"every"`
	Unit  string   `yaml:"unit"`
	Start string   `yaml:"start"`
	On    []string `yaml:"on"`
	Week  int      `yaml:"week"`
}

// Created reports one imported task. ID is empty in a dry run.
type Created struct {
	Key      string
	ID       string
	Name     string
	ParentID string
}

// Parse decodes a document. Unknown fields are rejected.
func Parse(r io.Reader) ([]Draft, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding import file: %w", err)
	}
	return doc.Tasks, nil
}

// Importer writes drafts through the service.
type Importer struct {
	svc *service.Service
}

// New creates an Importer.
func New(svc *service.Service) *Importer {
	return &Importer{svc: svc}
}

// Import creates the drafts in order. With dryRun set every entry is
// converted and validated, and parents resolved, without writing. The first
// failing entry stops the import; entries before it stay created.
func (im *Importer) Import(ctx context.Context, drafts []Draft, dryRun bool) ([]Created, error) {
	keys := make(map[string]string, len(drafts))
	created := make([]Created, 0, len(drafts))

	for i, d := range drafts {
		form, err := d.form()
		if err != nil {
			return created, fmt.Errorf("task %d: %w", i+1, err)
		}
		if err := form.Validate(); err != nil {
			return created, fmt.Errorf("task %d: %w", i+1, err)
		}

		parentID, err := im.resolveParent(ctx, d.Parent, keys)
		if err != nil {
			return created, fmt.Errorf("task %d: %w", i+1, err)
		}

		if d.Key != "" {
			if _, dup := keys[d.Key]; dup {
				return created, fmt.Errorf("task %d: duplicate key %q", i+1, d.Key)
			}
		}

		out := Created{Key: d.Key, Name: form.Name, ParentID: parentID}
		if !dryRun {
			if d.Category != "" {
				cat, err := im.svc.CreateCategory(ctx, d.Category)
				if err != nil {
					return created, fmt.Errorf("task %d: %w", i+1, err)
				}
				form.CategoryID = &cat.ID
			}
			if parentID != "" {
				form.ParentID = &parentID
			}
			if out.ID, err = im.svc.Create(ctx, form); err != nil {
				return created, fmt.Errorf("task %d: %w", i+1, err)
			}
		}

		if d.Key != "" {
			// In a dry run the key still resolves, to an empty id.
			keys[d.Key] = out.ID
		}
		created = append(created, out)
	}
	return created, nil
}

func (im *Importer) resolveParent(ctx context.Context, ref string, keys map[string]string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil
	}
	if id, ok := keys[ref]; ok {
		return id, nil
	}
	if _, err := im.svc.GetTask(ctx, ref); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return "", fmt.Errorf("unknown parent %q: %w", ref, err)
		}
		return "", err
	}
	return ref, nil
}

func (d Draft) form() (service.NewTaskForm, error) {
	form := service.NewTaskForm{TaskFields: service.TaskFields{Name: d.Name, Note: d.Note}}

	var err error
	if form.DeadlineDate, form.DeadlineTime, err = service.ParseWhen(d.Deadline); err != nil {
		return form, fmt.Errorf("deadline: %w", err)
	}
	if form.StartAfterDate, form.StartAfterTime, err = service.ParseWhen(d.StartAfter); err != nil {
		return form, fmt.Errorf("start_after: %w", err)
	}
	if form.ScheduledDate, form.ScheduledTime, err = service.ParseWhen(d.Scheduled); err != nil {
		return form, fmt.Errorf("scheduled: %w", err)
	}

	if d.Repeat != nil {
		in, err := d.Repeat.input()
		if err != nil {
			return form, fmt.Errorf("repeat: %w", err)
		}
		form.Recurrences = []service.RecurrenceInput{in}
	}
	return form, nil
}

func (r Repeat) input() (service.RecurrenceInput, error) {
	kind, err := model.ParseRecurrenceType(r.Unit)
	if err != nil {
		return service.RecurrenceInput{}, err
	}
	start, err := civil.ParseDate(strings.TrimSpace(r.Start))
	if err != nil {
		return service.RecurrenceInput{}, fmt.Errorf("invalid start %q: want YYYY-MM-DD", r.Start)
	}
	weekdays, err := service.ParseWeekdays(r.On)
	if err != nil {
		return service.RecurrenceInput{}, err
	}

	every := r.Every
	if every == 0 {
		every = 1
	}
	return service.RecurrenceInput{
		Type:     kind,
		Start:    start,
		Step:     every,
		Weekdays: weekdays,
		Week:     r.Week,
	}, nil
}

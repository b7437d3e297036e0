package taskform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/nowtask/internal/model"
	"github.com/nhle/nowtask/internal/service"
	"github.com/nhle/nowtask/internal/theme"
)

// CreateMsg is dispatched when the user submits a new task.
type CreateMsg struct {
	Form service.NewTaskForm
}

// UpdateMsg is dispatched when the user submits an edited task.
type UpdateMsg struct {
	Form service.EditTaskForm
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// noRepeat is the repeat select value of a one-off task.
const noRepeat = "none"

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	name       string
	note       string
	deadline   string
	startAfter string
	scheduled  string
	categoryID string
	parentID   string

	repeat   string
	every    string
	startOn  string
	weekdays []time.Weekday

	// extra holds further recurrences of the edited task that the form
	// has no fields for. They survive an edit that keeps the repeat type.
	extra      []service.RecurrenceInput
	extraType  string
	origParent string
}

// Model is the Bubble Tea model for the task create/edit form.
type Model struct {
	form       *huh.Form
	fb         *formBindings
	editMode   bool
	editID     string
	tasks      []model.Task
	categories []model.Category
	today      func() civil.Date
	width      int
	height     int
}

// New creates a new task form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{repeat: noRepeat, every: "1"},
		today:  func() civil.Date { return civil.DateOf(time.Now()) },
		width:  width,
		height: height,
	}
}

// SetOptions sets the tasks offered as parents and the categories.
func (m *Model) SetOptions(tasks []model.Task, categories []model.Category) {
	m.tasks = tasks
	m.categories = categories
}

// StartCreate initializes the form for creating a new task.
func (m *Model) StartCreate() tea.Cmd {
	m.editMode = false
	m.editID = ""
	*m.fb = formBindings{repeat: noRepeat, every: "1", startOn: m.today().String()}
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit initializes the form for editing task, whose current rules
// and parent are given.
func (m *Model) StartEdit(task model.Task, rules []model.TaskRecurrence, parentID string) tea.Cmd {
	m.editMode = true
	m.editID = task.ID
	*m.fb = bindingsOf(service.FieldsOf(task, rules), parentID, m.today())
	m.form = m.buildForm()
	return m.form.Init()
}

func bindingsOf(f service.TaskFields, parentID string, today civil.Date) formBindings {
	fb := formBindings{
		name:       f.Name,
		note:       f.Note,
		deadline:   service.FormatWhen(f.DeadlineDate, f.DeadlineTime),
		startAfter: service.FormatWhen(f.StartAfterDate, f.StartAfterTime),
		scheduled:  service.FormatWhen(f.ScheduledDate, f.ScheduledTime),
		parentID:   parentID,
		origParent: parentID,
		repeat:     noRepeat,
		every:      "1",
		startOn:    today.String(),
	}
	if f.CategoryID != nil {
		fb.categoryID = *f.CategoryID
	}
	if len(f.Recurrences) > 0 {
		first := f.Recurrences[0]
		fb.repeat = first.Type.String()
		fb.every = strconv.Itoa(first.Step)
		fb.startOn = first.Start.String()
		fb.weekdays = first.Weekdays
		fb.extra = f.Recurrences[1:]
		fb.extraType = fb.repeat
	}
	return fb
}

// Update handles messages for the task form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the task form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Task"
	if m.editMode {
		titleText = "Edit Task"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(m.coreFields()...).Title("Task"),
		huh.NewGroup(m.repeatFields()...).Title("Repeat"),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) coreFields() []huh.Field {
	fields := []huh.Field{
		huh.NewInput().
			Title("Name").
			Placeholder("What needs to be done?").
			Value(&m.fb.name).
			Validate(validateRequired("Name")),
		huh.NewText().
			Title("Note").
			Placeholder("Optional details...").
			Value(&m.fb.note),
		huh.NewInput().
			Title("Deadline").
			Placeholder("YYYY-MM-DD HH:MM (optional)").
			Value(&m.fb.deadline).
			Validate(validateWhen),
		huh.NewInput().
			Title("Start after").
			Placeholder("YYYY-MM-DD HH:MM (optional)").
			Value(&m.fb.startAfter).
			Validate(validateWhen),
		huh.NewInput().
			Title("Scheduled").
			Placeholder("YYYY-MM-DD HH:MM (optional)").
			Value(&m.fb.scheduled).
			Validate(validateWhen),
		m.parentField(),
	}
	if f := m.categoryField(); f != nil {
		fields = append(fields, f)
	}
	return fields
}

func (m *Model) repeatFields() []huh.Field {
	opts := []huh.Option[string]{huh.NewOption("Never", noRepeat)}
	for _, rt := range model.RecurrenceTypes {
		opts = append(opts, huh.NewOption(repeatLabel(rt), rt.String()))
	}

	days := make([]huh.Option[time.Weekday], 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		days = append(days, huh.NewOption(d.String(), d))
	}

	return []huh.Field{
		huh.NewSelect[string]().
			Title("Repeats").
			Options(opts...).
			Value(&m.fb.repeat),
		huh.NewInput().
			Title("Every").
			Description("Number of days, weeks, months or years between repeats").
			Value(&m.fb.every).
			Validate(validateStep),
		huh.NewInput().
			Title("Starting").
			Placeholder("YYYY-MM-DD").
			Value(&m.fb.startOn).
			Validate(validateOptionalDate),
		huh.NewMultiSelect[time.Weekday]().
			Title("On").
			Description("Weekly repeats only; empty means the starting weekday").
			Options(days...).
			Value(&m.fb.weekdays),
	}
}

func (m *Model) parentField() huh.Field {
	opts := []huh.Option[string]{huh.NewOption("None", "")}
	for _, t := range m.tasks {
		if t.ID == m.editID {
			continue
		}
		opts = append(opts, huh.NewOption(t.Name, t.ID))
	}
	return huh.NewSelect[string]().
		Title("After").
		Description("Task that must be done first").
		Options(opts...).
		Value(&m.fb.parentID)
}

func (m *Model) categoryField() huh.Field {
	if len(m.categories) == 0 {
		return nil
	}
	opts := []huh.Option[string]{huh.NewOption("None", "")}
	for _, c := range m.categories {
		opts = append(opts, huh.NewOption(c.Name, c.ID))
	}
	return huh.NewSelect[string]().
		Title("Category").
		Options(opts...).
		Value(&m.fb.categoryID)
}

func (m Model) handleSubmit() tea.Cmd {
	fields, err := m.fb.fields(m.today())
	if err != nil {
		return func() tea.Msg { return CancelMsg{} }
	}

	if m.editMode {
		form := service.EditTaskForm{ID: m.editID, TaskFields: fields, Parent: m.fb.parentChange()}
		return func() tea.Msg { return UpdateMsg{Form: form} }
	}

	form := service.NewTaskForm{TaskFields: fields}
	if m.fb.parentID != "" {
		parent := m.fb.parentID
		form.ParentID = &parent
	}
	return func() tea.Msg { return CreateMsg{Form: form} }
}

// fields converts the bindings into service fields.
func (fb *formBindings) fields(today civil.Date) (service.TaskFields, error) {
	f := service.TaskFields{
		Name: strings.TrimSpace(fb.name),
		Note: strings.TrimSpace(fb.note),
	}
	var err error
	if f.DeadlineDate, f.DeadlineTime, err = parseOptionalWhen(fb.deadline); err != nil {
		return f, fmt.Errorf("deadline: %w", err)
	}
	if f.StartAfterDate, f.StartAfterTime, err = parseOptionalWhen(fb.startAfter); err != nil {
		return f, fmt.Errorf("start after: %w", err)
	}
	if f.ScheduledDate, f.ScheduledTime, err = parseOptionalWhen(fb.scheduled); err != nil {
		return f, fmt.Errorf("scheduled: %w", err)
	}
	if fb.categoryID != "" {
		id := fb.categoryID
		f.CategoryID = &id
	}

	if fb.repeat == noRepeat {
		return f, nil
	}
	rt, err := model.ParseRecurrenceType(fb.repeat)
	if err != nil {
		return f, err
	}
	step, err := strconv.Atoi(strings.TrimSpace(fb.every))
	if err != nil {
		return f, fmt.Errorf("every: %w", err)
	}
	start := today
	if s := strings.TrimSpace(fb.startOn); s != "" {
		if start, err = civil.ParseDate(s); err != nil {
			return f, fmt.Errorf("starting: %w", err)
		}
	}

	in := service.RecurrenceInput{Type: rt, Start: start, Step: step}
	if rt == model.RecurrenceWeek {
		in.Weekdays = fb.weekdays
	}
	f.Recurrences = append(f.Recurrences, in)
	if fb.repeat == fb.extraType {
		f.Recurrences = append(f.Recurrences, fb.extra...)
	}
	return f, nil
}

func (fb *formBindings) parentChange() model.ParentChange {
	switch {
	case fb.parentID == fb.origParent:
		return model.ParentChange{Action: model.ParentKeep}
	case fb.parentID == "":
		return model.ParentChange{Action: model.ParentRemove}
	default:
		return model.ParentChange{Action: model.ParentReplace, ParentID: fb.parentID}
	}
}

func repeatLabel(rt model.RecurrenceType) string {
	switch rt {
	case model.RecurrenceDay:
		return "Daily"
	case model.RecurrenceWeek:
		return "Weekly"
	case model.RecurrenceDayOfMonth:
		return "Monthly on the same day"
	case model.RecurrenceWeekOfMonth:
		return "Monthly on the same week and weekday"
	case model.RecurrenceYear:
		return "Yearly"
	default:
		return rt.String()
	}
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-4, 10)
}

func parseOptionalWhen(s string) (*civil.Date, *civil.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil, nil
	}
	return service.ParseWhen(s)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateWhen(s string) error {
	if _, _, err := parseOptionalWhen(s); err != nil {
		return fmt.Errorf("use YYYY-MM-DD, HH:MM or both")
	}
	return nil
}

func validateStep(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return fmt.Errorf("must be a whole number of at least 1")
	}
	return nil
}

func validateOptionalDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := civil.ParseDate(s); err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return nil
}

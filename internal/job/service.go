package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/workhub-dev/workhub/internal/model"
	"github.com/workhub-dev/workhub/internal/realtime"
	"github.com/workhub-dev/workhub/internal/store"
)

// Notifier pushes realtime events to a user's live connections.
type Notifier interface {
	Notify(userID, event string, payload any)
}

// Alerter queues durable notifications.
type Alerter interface {
	BookingCancelled(jobTitle, reason string, b model.Booking) error
}

// Service owns the posting lifecycle: draft tasks, publication into jobs and
// client-side cancellation.
type Service struct {
	store  store.Store
	notify Notifier
	alerts Alerter
	log    *slog.Logger
}

func NewService(st store.Store, n Notifier, a Alerter, log *slog.Logger) *Service {
	return &Service{store: st, notify: n, alerts: a, log: log}
}

// Create opens a new draft with its base info step complete.
func (s *Service) Create(ctx context.Context, clientID, title, description string, price int64) (*model.Task, error) {
	t := &model.Task{
		ClientID:    clientID,
		Title:       title,
		Description: description,
		Price:       price,
		State:       model.TaskDraft,
		ViewState:   model.ViewPublic,
		Steps:       map[model.DraftStep]bool{model.StepBaseInfo: true},
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Task returns one of the client's postings.
func (s *Service) Task(ctx context.Context, id, clientID string) (*model.Task, error) {
	return s.store.TaskByID(ctx, id, clientID)
}

// List returns the client's postings.
func (s *Service) List(ctx context.Context, clientID string, p store.Page) ([]model.Task, error) {
	return s.store.ListTasks(ctx, clientID, p)
}

// Delete soft-deletes a draft.
func (s *Service) Delete(ctx context.Context, id, clientID string) error {
	return s.store.DeleteTask(ctx, id, clientID)
}

// editable loads the task and rejects step edits once it left DRAFT.
func (s *Service) editable(ctx context.Context, id, clientID string) (*model.Task, error) {
	t, err := s.store.TaskByID(ctx, id, clientID)
	if err != nil {
		return nil, err
	}
	if t.State != model.TaskDraft {
		return nil, store.ErrInvalidState
	}
	return t, nil
}

func (s *Service) save(ctx context.Context, t *model.Task, steps ...model.DraftStep) (*model.Task, error) {
	for _, st := range steps {
		t.Steps[st] = true
	}
	if err := s.store.UpdateTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateBaseInfo rewrites title, description and price.
func (s *Service) UpdateBaseInfo(ctx context.Context, id, clientID, title, description string, price int64) (*model.Task, error) {
	t, err := s.editable(ctx, id, clientID)
	if err != nil {
		return nil, err
	}
	t.Title, t.Description, t.Price = title, description, price
	return s.save(ctx, t, model.StepBaseInfo)
}

// UpdateCategory sets the category path and optional service.
func (s *Service) UpdateCategory(ctx context.Context, id, clientID, categoryID, subCategoryID, subSubCategoryID, serviceID string) (*model.Task, error) {
	t, err := s.editable(ctx, id, clientID)
	if err != nil {
		return nil, err
	}
	t.CategoryID = categoryID
	steps := []model.DraftStep{model.StepCategory}
	if subCategoryID != "" {
		t.SubCategoryID = subCategoryID
		steps = append(steps, model.StepSubCategory)
	}
	if subSubCategoryID != "" {
		t.SubSubCategory = subSubCategoryID
		steps = append(steps, model.StepSubSubCategory)
	}
	if serviceID != "" {
		t.ServiceID = serviceID
		steps = append(steps, model.StepService)
	}
	return s.save(ctx, t, steps...)
}

// UpdateAddress points the posting at one of the client's addresses.
func (s *Service) UpdateAddress(ctx context.Context, id, clientID, addressID string) (*model.Task, error) {
	t, err := s.editable(ctx, id, clientID)
	if err != nil {
		return nil, err
	}
	t.AddressID = addressID
	return s.save(ctx, t, model.StepAddress)
}

// UpdateImages replaces the image set, capped at MaxTaskImages.
func (s *Service) UpdateImages(ctx context.Context, id, clientID string, images []string) (*model.Task, error) {
	if len(images) > model.MaxTaskImages {
		images = images[:model.MaxTaskImages]
	}
	t, err := s.editable(ctx, id, clientID)
	if err != nil {
		return nil, err
	}
	t.Images = images
	return s.save(ctx, t, model.StepImages)
}

// UpdateStartDate sets when the work should begin.
func (s *Service) UpdateStartDate(ctx context.Context, id, clientID string, start time.Time) (*model.Task, error) {
	t, err := s.editable(ctx, id, clientID)
	if err != nil {
		return nil, err
	}
	t.StartDate = &start
	return s.save(ctx, t, model.StepStartDate)
}

// UpdateProviders sets the allow-list. A non-empty list makes the posting
// PRIVATE, an empty list reverts it to PUBLIC.
func (s *Service) UpdateProviders(ctx context.Context, id, clientID string, providerIDs []string) (*model.Task, error) {
	t, err := s.editable(ctx, id, clientID)
	if err != nil {
		return nil, err
	}
	t.ProviderIDs = providerIDs
	if len(providerIDs) > 0 {
		t.ViewState = model.ViewPrivate
	} else {
		t.ViewState = model.ViewPublic
	}
	return s.save(ctx, t, model.StepServiceProviders)
}

// UpdateAnswers stores the category questionnaire answers.
func (s *Service) UpdateAnswers(ctx context.Context, id, clientID string, answers map[string]string) (*model.Task, error) {
	t, err := s.editable(ctx, id, clientID)
	if err != nil {
		return nil, err
	}
	t.Answers = answers
	return s.save(ctx, t, model.StepAnswers)
}

// Publish turns a completed draft into an OPEN job.
func (s *Service) Publish(ctx context.Context, id, clientID string) (*model.Job, error) {
	return s.store.PublishTask(ctx, id, clientID)
}

// Job returns a published job.
func (s *Service) Job(ctx context.Context, id string) (*model.Job, error) {
	return s.store.JobByID(ctx, id)
}

// OpenJobs is the provider feed: public jobs plus private jobs naming the
// provider.
func (s *Service) OpenJobs(ctx context.Context, f store.JobFilter) ([]model.Job, error) {
	return s.store.ListOpenJobs(ctx, f)
}

// ClientJobs lists the client's own published jobs.
func (s *Service) ClientJobs(ctx context.Context, clientID string, p store.Page) ([]model.Job, error) {
	return s.store.ListClientJobs(ctx, clientID, p)
}

// Cancel closes a job. If a live booking exists it is cancelled in the same
// unit and the provider is told on both channels.
func (s *Service) Cancel(ctx context.Context, jobID, clientID, reasonID, note string) (*store.CancelJobResult, error) {
	res, err := s.store.CancelJob(ctx, jobID, clientID, reasonID, note)
	if err != nil {
		return nil, err
	}
	if b := res.Booking; b != nil {
		s.notify.Notify(b.ServiceProviderID, realtime.EventBookingCancelled, b)
		if err := s.alerts.BookingCancelled(res.Job.Title, note, *b); err != nil {
			s.log.Error("booking cancel alert", "booking_id", b.ID, "err", err)
		}
	}
	return res, nil
}

package model

import "time"

// TaskState tracks a posting through drafting and publication.
type TaskState string

const (
	TaskDraft     TaskState = "DRAFT"
	TaskActive    TaskState = "ACTIVE"
	TaskPublished TaskState = "PUBLISHED"
	TaskClosed    TaskState = "CLOSED"
	TaskInactive  TaskState = "INACTIVE"
)

// ViewState controls which providers may see a posting.
type ViewState string

const (
	ViewPublic  ViewState = "PUBLIC"
	ViewPrivate ViewState = "PRIVATE"
)

// DraftStep names one of the field groups a client completes while drafting.
type DraftStep string

const (
	StepBaseInfo         DraftStep = "BaseInfo"
	StepServiceProviders DraftStep = "ServiceProviders"
	StepAddress          DraftStep = "Address"
	StepAnswers          DraftStep = "Answers"
	StepImages           DraftStep = "Images"
	StepCategory         DraftStep = "Category"
	StepSubCategory      DraftStep = "SubCategory"
	StepSubSubCategory   DraftStep = "SubSubCategory"
	StepService          DraftStep = "Service"
	StepStartDate        DraftStep = "StartDate"
)

// MandatorySteps must all be complete before a task can be published.
var MandatorySteps = []DraftStep{StepBaseInfo, StepCategory, StepAddress, StepStartDate}

// MaxTaskImages caps the image slots on a posting.
const MaxTaskImages = 6

// Task is a draft or private posting. It becomes a Job on publish.
type Task struct {
	ID             string              `json:"id"`
	ClientID       string              `json:"client_id"`
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Price          int64               `json:"price"`
	CategoryID     string              `json:"category_id,omitempty"`
	SubCategoryID  string              `json:"sub_category_id,omitempty"`
	SubSubCategory string              `json:"sub_sub_category_id,omitempty"`
	ServiceID      string              `json:"service_id,omitempty"`
	AddressID      string              `json:"address_id,omitempty"`
	Images         []string            `json:"images,omitempty"`
	Answers        map[string]string   `json:"answers,omitempty"`
	ProviderIDs    []string            `json:"provider_ids,omitempty"`
	ViewState      ViewState           `json:"view_state"`
	State          TaskState           `json:"state"`
	StartDate      *time.Time          `json:"start_date,omitempty"`
	Steps          map[DraftStep]bool  `json:"steps"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// StepsComplete reports whether every mandatory draft step is done.
func (t *Task) StepsComplete() bool {
	for _, s := range MandatorySteps {
		if !t.Steps[s] {
			return false
		}
	}
	return true
}

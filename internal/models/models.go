package models

import "time"

type User struct {
	ID                   string     `db:"id"`
	Email                string     `db:"email"`
	PasswordHash         *string    `db:"password_hash"`
	IsActive             bool       `db:"is_active"`
	IsAdmin              bool       `db:"is_admin"`
	RequirePasswordReset bool       `db:"require_password_reset"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
	LastLoginAt          *time.Time `db:"last_login_at"`
}

type AdminDelegation struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	AdminID   string    `db:"admin_id"`
	CreatedAt time.Time `db:"created_at"`
}

type Session struct {
	Token          string    `db:"token"`
	UserID         string    `db:"user_id"`
	CreatedAt      time.Time `db:"created_at"`
	ExpiresAt      time.Time `db:"expires_at"`
	LastActivityAt time.Time `db:"last_activity_at"`
}

// Quota policy values.
const (
	QuotaUnlimited = "unlimited"
	QuotaLimited   = "limited"
)

// Generation categories gated by quotas.
const (
	GenImage  = "image"
	GenVideo  = "video"
	GenText   = "text"
	GenSpeech = "speech"
)

type Quota struct {
	ID             string    `db:"id"`
	UserID         string    `db:"user_id"`
	GenerationType string    `db:"generation_type"`
	QuotaType      string    `db:"quota_type"`
	QuotaLimit     *int      `db:"quota_limit"`
	QuotaUsed      int       `db:"quota_used"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Remaining returns the unused allowance, or nil for unlimited policies.
func (q Quota) Remaining() *int {
	if q.QuotaType == QuotaUnlimited || q.QuotaLimit == nil {
		return nil
	}
	rest := *q.QuotaLimit - q.QuotaUsed
	if rest < 0 {
		rest = 0
	}
	return &rest
}

// Media types.
const (
	MediaImage = "image"
	MediaVideo = "video"
	MediaAudio = "audio"
)

type MediaItem struct {
	ID        string    `db:"id"`
	Type      string    `db:"type"`
	Filename  string    `db:"filename"`
	Prompt    string    `db:"prompt"`
	Model     string    `db:"model"`
	UserID    string    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
	FileSize  int64     `db:"file_size"`
	MimeType  string    `db:"mime_type"`
	Details   *string   `db:"details"`
	IPAddress *string   `db:"ip_address"`
}

// MediaDetails is the structured portion of a media item's details blob.
// Extra carries provider-specific fields that have no schema yet.
type MediaDetails struct {
	Mode            string         `json:"mode,omitempty"`
	NegativePrompt  string         `json:"negativePrompt,omitempty"`
	ReferenceImages int            `json:"referenceImages,omitempty"`
	SourceImages    int            `json:"sourceImages,omitempty"`
	AspectRatio     string         `json:"aspectRatio,omitempty"`
	Voice           string         `json:"voice,omitempty"`
	Extra           map[string]any `json:"extra,omitempty"`
}

// Video job statuses. Completed and failed are terminal.
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

type VideoJob struct {
	ID          string     `db:"id"`
	JobID       *string    `db:"job_id"`
	OperationID *string    `db:"operation_id"`
	UserID      string     `db:"user_id"`
	Prompt      string     `db:"prompt"`
	Model       string     `db:"model"`
	Mode        string     `db:"mode"`
	Status      string     `db:"status"`
	Progress    int        `db:"progress"`
	Error       *string    `db:"error"`
	Details     *string    `db:"details"`
	VideoURL    *string    `db:"video_url"`
	MediaID     *string    `db:"media_id"`
	IPAddress   *string    `db:"ip_address"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
	CompletedAt *time.Time `db:"completed_at"`
}

// Terminal reports whether the job can no longer change state.
func (j VideoJob) Terminal() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}

type PromptTemplate struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	Name         string    `db:"name"`
	MediaType    string    `db:"media_type"`
	TemplateText string    `db:"template_text"`
	Variables    *string   `db:"variables"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type SystemPrompt struct {
	ID         string    `db:"id"`
	UserID     string    `db:"user_id"`
	Name       string    `db:"name"`
	MediaType  string    `db:"media_type"`
	PromptText string    `db:"prompt_text"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type TextGeneration struct {
	ID             string    `db:"id"`
	UserID         string    `db:"user_id"`
	Mode           string    `db:"mode"`
	SystemPrompt   *string   `db:"system_prompt"`
	SystemPromptID *string   `db:"system_prompt_id"`
	UserMessage    *string   `db:"user_message"`
	TemplateID     *string   `db:"template_id"`
	ModelResponse  *string   `db:"model_response"`
	Model          *string   `db:"model"`
	IPAddress      *string   `db:"ip_address"`
	CreatedAt      time.Time `db:"created_at"`
}

type ChatSession struct {
	ID             string    `db:"id"`
	UserID         string    `db:"user_id"`
	Name           *string   `db:"name"`
	SystemPrompt   *string   `db:"system_prompt"`
	SystemPromptID *string   `db:"system_prompt_id"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

type ChatMessage struct {
	ID        string    `db:"id"`
	SessionID string    `db:"session_id"`
	Role      string    `db:"role"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

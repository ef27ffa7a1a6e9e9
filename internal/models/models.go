package models

import "time"

type SMTPConfig struct {
	ID        int64     `json:"id"`
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	FromEmail string    `json:"from_email"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UploadedFile struct {
	ID             int64     `json:"id"`
	FileID         string    `json:"file_id"`
	FileName       string    `json:"file_name"`
	FilePath       string    `json:"file_path"`
	FileSize       int64     `json:"file_size"`
	MimeType       string    `json:"mime_type"`
	IsFolder       bool      `json:"is_folder"`
	ParentFolderID *string   `json:"parent_folder_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type DownloadLink struct {
	ID               int64      `json:"id"`
	Token            string     `json:"token"`
	FileID           string     `json:"file_id"`
	FileName         string     `json:"file_name"`
	OriginalFileName string     `json:"original_file_name"`
	Description      *string    `json:"description"`
	MaxDownloads     *int       `json:"max_downloads"`
	DownloadCount    int        `json:"download_count"`
	ExpiresAt        *time.Time `json:"expires_at"`
	CreatedBy        string     `json:"created_by"`
	CreatedAt        time.Time  `json:"created_at"`
	IsActive         bool       `json:"is_active"`
}

type DownloadRecord struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	FilePath      string    `json:"file_path"`
	FileName      string    `json:"file_name"`
	IPAddress     string    `json:"ip_address"`
	UserAgent     string    `json:"user_agent"`
	AgreedToTerms bool      `json:"agreed_to_terms"`
	CreatedAt     time.Time `json:"created_at"`
}

// Email log statuses. Sent and failed are terminal.
const (
	EmailStatusPending = "pending"
	EmailStatusSent    = "sent"
	EmailStatusFailed  = "failed"
)

type EmailLog struct {
	ID             int64      `json:"id"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject"`
	Body           string     `json:"-"`
	Status         string     `json:"status"`
	ErrorMessage   *string    `json:"error_message"`
	SentAt         *time.Time `json:"sent_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Report statuses. A report only ever moves pending -> resolved or
// pending -> dismissed.
const (
	ReportStatusPending   = "pending"
	ReportStatusResolved  = "resolved"
	ReportStatusDismissed = "dismissed"
)

type FileReport struct {
	ID            int64      `json:"id"`
	DownloadToken string     `json:"download_token"`
	FileName      string     `json:"file_name"`
	ReporterEmail string     `json:"reporter_email"`
	Reason        string     `json:"reason"`
	Description   *string    `json:"description"`
	Status        string     `json:"status"`
	Notes         *string    `json:"notes"`
	CreatedAt     time.Time  `json:"created_at"`
	ResolvedAt    *time.Time `json:"resolved_at"`
}

type BulkEmailStats struct {
	SuccessCount int `json:"successCount"`
	FailedCount  int `json:"failedCount"`
	TotalCount   int `json:"totalCount"`
}

type DownloadStats struct {
	TotalDownloads  int               `json:"total_downloads"`
	UniqueEmails    int               `json:"unique_emails"`
	RecentDownloads []*DownloadRecord `json:"recent_downloads"`
}

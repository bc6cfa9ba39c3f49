package entity

import (
	"io"
	"time"
)

type TaskState string

const (
	TaskStatePending  TaskState = "in_progress"
	TaskStateComplete TaskState = "complete"
	TaskStateError    TaskState = "error"
)

func (s TaskState) String() string {
	return string(s)
}

func (s TaskState) IsFinished() bool {
	return s == TaskStateComplete || s == TaskStateError
}

// DownloadTask is the message carried by the download queue. It is never
// mutated after creation.
type DownloadTask struct {
	ID        string
	URL       string
	FormatID  string
	CreatedAt time.Time
}

// TaskStatus is the registry record for one task.
type TaskStatus struct {
	ID         string    `yaml:"id"`
	URL        string    `yaml:"url"`
	FormatID   string    `yaml:"format_id"`
	State      TaskState `yaml:"state"`
	Filename   string    `yaml:"filename,omitempty"`
	Error      string    `yaml:"error,omitempty"`
	CreatedAt  time.Time `yaml:"created_at"`
	FinishedAt time.Time `yaml:"finished_at,omitempty"`
}

// ResultFile is an opened download result ready to be streamed.
type ResultFile struct {
	Name     string
	Size     int64
	MIMEType string
	ModTime  time.Time
	Content  io.ReadSeekCloser
}

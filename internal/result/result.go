package result

import (
	"encoding/hex"
	"encoding/json"
	"time"
)

// Status tags the terminal outcome of one crack run.
type Status int

const (
	StatusSuccess Status = iota
	StatusNotFound
	StatusCancelled
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNotFound:
		return "not-found"
	case StatusCancelled:
		return "cancelled"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	switch str {
	case "success":
		*s = StatusSuccess
	case "not-found":
		*s = StatusNotFound
	case "cancelled":
		*s = StatusCancelled
	default:
		*s = StatusError
	}
	return nil
}

// CrackResult is the terminal outcome of one dictionary attack: exactly one
// of Success (password + PMK), NotFound, Cancelled, or Error. The error
// reason distinguishes bad capture data from engine unavailability so the
// caller can suggest recapture versus retry.
type CrackResult struct {
	Status      Status    `json:"status"`
	Password    string    `json:"password,omitempty"`
	PMK         []byte    `json:"-"`
	PMKHex      string    `json:"pmk,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	FrameSource string    `json:"frame_source,omitempty"`
	BSSID       string    `json:"bssid,omitempty"`
	ESSID       string    `json:"essid,omitempty"`
	Tested      int       `json:"tested"`
	Duration    Duration  `json:"duration,omitempty"`
	Timestamp   time.Time `json:"timestamp"`

	// Err carries the underlying error for StatusError; Reason is its
	// rendered form for serialization.
	Err error `json:"-"`
}

// Duration wraps time.Duration for JSON serialization.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func Success(password string, pmk []byte, frameSource string) *CrackResult {
	return &CrackResult{
		Status:      StatusSuccess,
		Password:    password,
		PMK:         pmk,
		PMKHex:      hex.EncodeToString(pmk),
		FrameSource: frameSource,
		Timestamp:   time.Now(),
	}
}

func NotFound() *CrackResult {
	return &CrackResult{Status: StatusNotFound, Timestamp: time.Now()}
}

func Cancelled() *CrackResult {
	return &CrackResult{Status: StatusCancelled, Timestamp: time.Now()}
}

func Failure(err error) *CrackResult {
	return &CrackResult{
		Status:    StatusError,
		Reason:    err.Error(),
		Err:       err,
		Timestamp: time.Now(),
	}
}

func (r *CrackResult) Cracked() bool {
	return r.Status == StatusSuccess
}

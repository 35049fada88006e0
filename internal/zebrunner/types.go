package zebrunner

import (
	"encoding/json"
	"fmt"
	"time"
)

// maxMillisTimestamp is the upper bound for a value to be interpreted as
// milliseconds (approximately year 2286). Values at or above this threshold
// are treated as microseconds.
const maxMillisTimestamp int64 = 1e13

// EpochMillis represents a point in time serialized as an integer epoch
// timestamp. On deserialization it auto-detects milliseconds vs
// microseconds by magnitude; serialization always produces milliseconds.
type EpochMillis time.Time

// Time returns the underlying time.Time value.
func (e EpochMillis) Time() time.Time { return time.Time(e) }

// MarshalJSON serializes EpochMillis as Unix milliseconds.
func (e EpochMillis) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(e).UnixMilli())
}

// UnmarshalJSON deserializes an integer timestamp, auto-detecting ms or us.
func (e *EpochMillis) UnmarshalJSON(data []byte) error {
	var value int64
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("unmarshal epoch millis: %w", err)
	}
	if value >= maxMillisTimestamp {
		*e = EpochMillis(time.UnixMicro(value))
	} else {
		*e = EpochMillis(time.UnixMilli(value))
	}
	return nil
}

// --- Reporting API resources ---

// TestResource is one test result inside a launch.
type TestResource struct {
	ID            int          `json:"id"`
	Name          string       `json:"name,omitempty"`
	Status        string       `json:"status,omitempty"`
	TestCaseKeys  []string     `json:"testCaseKeys,omitempty"`
	StartedAt     *EpochMillis `json:"startedAt,omitempty"`
	FinishedAt    *EpochMillis `json:"finishedAt,omitempty"`
	ClassName     string       `json:"className,omitempty"`
	MethodName    string       `json:"methodName,omitempty"`
	MaintainerRef string       `json:"maintainer,omitempty"`
}

// TestSessionResource is one device/browser session recorded for a launch.
type TestSessionResource struct {
	ID           int                 `json:"id"`
	SessionID    string              `json:"sessionId,omitempty"`
	Status       string              `json:"status,omitempty"`
	StartedAt    *EpochMillis        `json:"startedAt,omitempty"`
	EndedAt      *EpochMillis        `json:"endedAt,omitempty"`
	PlatformName string              `json:"platformName,omitempty"`
	DeviceName   string              `json:"deviceName,omitempty"`
	TestIDs      []int               `json:"testIds,omitempty"`
	Artifacts    []ArtifactReference `json:"artifactReferences,omitempty"`
}

// ArtifactReference links a named artifact (e.g. "video") to its URL.
type ArtifactReference struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// VideoArtifactName is the artifact name Zebrunner assigns to session
// recordings.
const VideoArtifactName = "video"

// VideoURL returns the session's recording URL, or "" when the session has
// no video artifact.
func (s *TestSessionResource) VideoURL() string {
	for _, a := range s.Artifacts {
		if a.Name == VideoArtifactName {
			return a.Value
		}
	}
	return ""
}

// LogItemResource is one log line or screenshot reference of a test.
type LogItemResource struct {
	Timestamp *EpochMillis `json:"timestamp,omitempty"`
	Level     string       `json:"level,omitempty"`
	Message   string       `json:"message,omitempty"`
	Kind      string       `json:"kind,omitempty"`
	TestID    int          `json:"testId,omitempty"`
}

// ProjectResource identifies one Zebrunner project.
type ProjectResource struct {
	ID   int    `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
}

// --- TCM resources ---

// TestCaseResource is one authored TCM test case.
type TestCaseResource struct {
	ID    int            `json:"id"`
	Key   string         `json:"key"`
	Title string         `json:"title,omitempty"`
	Steps []TestCaseStep `json:"steps,omitempty"`
}

// TestCaseStep is one authored step. The API serves steps either as plain
// strings or as objects carrying an "action" or "name" field; UnmarshalJSON
// accepts both and flattens to text.
type TestCaseStep struct {
	Text string
}

// UnmarshalJSON accepts a string, or an object with "action" or "name".
func (s *TestCaseStep) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		s.Text = text
		return nil
	}
	var obj struct {
		Action string `json:"action"`
		Name   string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("unmarshal test case step: %w", err)
	}
	if obj.Action != "" {
		s.Text = obj.Action
	} else {
		s.Text = obj.Name
	}
	return nil
}

// MarshalJSON serializes the step back as its flattened text.
func (s TestCaseStep) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Text)
}

// --- Paginated wrappers ---

// PagedTests is the paginated response for test listing.
type PagedTests struct {
	Items []TestResource `json:"items"`
	Meta  PageMeta       `json:"_meta"`
}

// PagedSessions is the paginated response for session listing.
type PagedSessions struct {
	Items []TestSessionResource `json:"items"`
	Meta  PageMeta              `json:"_meta"`
}

// PagedLogItems is the paginated response for log/screenshot listing.
type PagedLogItems struct {
	Items []LogItemResource `json:"items"`
	Meta  PageMeta          `json:"_meta"`
}

// PageMeta holds pagination metadata.
type PageMeta struct {
	Total    int `json:"total"`
	NextPage int `json:"nextPage,omitempty"`
}

// dataEnvelope is the {"data": ...} wrapper some endpoints use.
type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

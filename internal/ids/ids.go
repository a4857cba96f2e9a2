package ids

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// MaxLength is the longest id the platform hands out. Ids are ULIDs, but a few legacy
// objects (system users, "00000000000000000000000000") share the same width.
const MaxLength = ulid.EncodedSize

type ID struct {
	Raw       string
	Timestamp int64
}

func Parse(id string) (ID, error) {
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return ID{}, fmt.Errorf("parse id %q: %w", id, err)
	}

	return ID{
		Raw:       id,
		Timestamp: int64(parsed.Time()),
	}, nil
}

// ExtractTimestamp returns the unix millisecond component of id, or 0 when id is not a
// ULID. Ids shorter than four characters are placeholders and never carry a time.
func ExtractTimestamp(id string) int64 {
	if len(id) <= 3 {
		return 0
	}
	parsed, err := Parse(id)
	if err != nil {
		return 0
	}
	return parsed.Timestamp
}

func CreatedAt(id string) time.Time {
	ms := ExtractTimestamp(id)
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func Valid(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}

// Generate returns a fresh id, used for message nonces and in tests that need ids the
// platform would accept.
func Generate() string {
	return ulid.Make().String()
}

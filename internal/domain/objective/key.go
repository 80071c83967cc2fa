// Package objective implements the objective-completion decision logic:
// the stable objective identity and the keyword heuristic that backs up the
// model's own completion judgment.
package objective

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/coach-hub/science-coach-hub/internal/domain/lesson"
)

// Key derives the stable identity for "this objective, as currently worded":
// lesson slug joined with the md5 digest of the objective text, sanitized to
// a key-safe string. Rewording the objective changes the key and therefore
// resets completion state for the new wording. The md5 digest is an identity,
// not a security boundary, and keeps existing award keys valid.
func Key(lessonSlug, objectiveText string) string {
	sum := md5.Sum([]byte(objectiveText))
	return lesson.SanitizeKey(lessonSlug + "_" + hex.EncodeToString(sum[:]))
}

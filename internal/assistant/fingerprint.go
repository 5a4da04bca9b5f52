package assistant

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"

	"github.com/openclaw/clawbot/internal/history"
)

// fingerprint digests the semantically relevant inputs of a request into a
// cache key: the prompt, the history length, the last history entry and
// whether an image is attached. md5 is fine here, the key is not a security
// boundary.
func fingerprint(prompt string, hist []history.Message, image string) string {
	var last *history.Message
	if len(hist) > 0 {
		last = &hist[len(hist)-1]
	}
	raw, _ := json.Marshal(struct {
		Prompt   string           `json:"prompt"`
		Context  int              `json:"context"`
		LastMsg  *history.Message `json:"last_msg,omitempty"`
		HasImage bool             `json:"has_image"`
	}{prompt, len(hist), last, image != ""})

	sum := md5.Sum(raw)
	return "clawbot:response:" + hex.EncodeToString(sum[:])
}

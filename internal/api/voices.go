package api

import (
	"encoding/json"
	"net/http"
	"sort"
)

// voiceAliases maps OpenAI-style voice names onto backend neural voices.
// Full backend voice names pass through untouched.
var voiceAliases = map[string]string{
	"alloy":   "en-US-AvaMultilingualNeural",
	"echo":    "en-US-AndrewMultilingualNeural",
	"fable":   "en-US-EmmaMultilingualNeural",
	"onyx":    "en-US-BrianMultilingualNeural",
	"nova":    "en-US-JennyNeural",
	"shimmer": "en-US-AriaNeural",
}

func resolveVoice(requested, fallback string) string {
	if requested == "" {
		return fallback
	}
	if mapped, ok := voiceAliases[requested]; ok {
		return mapped
	}
	return requested
}

type voiceInfo struct {
	Alias string `json:"alias"`
	Voice string `json:"voice"`
}

func (h *Handler) handleVoices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "invalid_request_error", "method_not_allowed",
			"only GET is supported")
		return
	}

	voices := make([]voiceInfo, 0, len(voiceAliases))
	for alias, voice := range voiceAliases {
		voices = append(voices, voiceInfo{Alias: alias, Voice: voice})
	}
	sort.Slice(voices, func(i, j int) bool { return voices[i].Alias < voices[j].Alias })

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"voices": voices})
}

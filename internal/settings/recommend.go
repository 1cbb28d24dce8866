package settings

import "github.com/voxkit/voxkit/pkg/types"

// Recommend picks a voice from voices via a deterministic cascade:
//
//  1. filter by language; an empty result falls back to the unfiltered set
//  2. filter by prefs.PreferredGender; an empty result keeps the prior set
//  3. prefer an entry with IsDefault set
//  4. otherwise the first element in input order
//
// The second return value is false only when voices is empty.
func Recommend(voices []types.Voice, prefs types.VoicePreferences, language string) (types.Voice, bool) {
	if len(voices) == 0 {
		return types.Voice{}, false
	}

	candidates := voices
	if language != "" {
		filtered := filterVoices(candidates, func(v types.Voice) bool {
			return v.Language == language
		})
		if len(filtered) > 0 {
			candidates = filtered
		}
	}
	if prefs.PreferredGender != "" {
		filtered := filterVoices(candidates, func(v types.Voice) bool {
			return v.Gender == prefs.PreferredGender
		})
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	for _, v := range candidates {
		if v.IsDefault {
			return v, true
		}
	}
	return candidates[0], true
}

func filterVoices(voices []types.Voice, keep func(types.Voice) bool) []types.Voice {
	var out []types.Voice
	for _, v := range voices {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

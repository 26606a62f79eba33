package asr

import (
	"fmt"

	platformerrors "captionkit-server-go/internal/platform/errors"
)

// Provider names as registered by the adapter packages.
const (
	ProviderSpeechmatics = "speechmatics"
	ProviderDeepgram     = "deepgram"
	ProviderAssemblyAI   = "assemblyai"
)

// defaultRouting maps each supported source language to the vendor that
// handles it best. English goes to AssemblyAI for its turn model; long-tail
// languages go to Speechmatics; everything else to Deepgram.
var defaultRouting = map[string]string{
	"ar":     ProviderSpeechmatics,
	"ba":     ProviderSpeechmatics,
	"eu":     ProviderSpeechmatics,
	"be":     ProviderSpeechmatics,
	"bn":     ProviderSpeechmatics,
	"bg":     ProviderDeepgram,
	"ca":     ProviderDeepgram,
	"zh":     ProviderDeepgram,
	"zh-TW":  ProviderDeepgram,
	"zh-HK":  ProviderDeepgram,
	"hr":     ProviderSpeechmatics,
	"cs":     ProviderDeepgram,
	"da":     ProviderDeepgram,
	"nl":     ProviderDeepgram,
	"en":     ProviderAssemblyAI,
	"en-US":  ProviderAssemblyAI,
	"en-AU":  ProviderAssemblyAI,
	"en-GB":  ProviderAssemblyAI,
	"en-NZ":  ProviderAssemblyAI,
	"eo":     ProviderSpeechmatics,
	"et":     ProviderDeepgram,
	"fi":     ProviderDeepgram,
	"fr":     ProviderDeepgram,
	"fr-CA":  ProviderDeepgram,
	"gl":     ProviderSpeechmatics,
	"de":     ProviderDeepgram,
	"de-CH":  ProviderDeepgram,
	"el":     ProviderDeepgram,
	"he":     ProviderSpeechmatics,
	"hi":     ProviderDeepgram,
	"hu":     ProviderDeepgram,
	"id":     ProviderDeepgram,
	"ga":     ProviderSpeechmatics,
	"it":     ProviderDeepgram,
	"ja":     ProviderDeepgram,
	"ko":     ProviderDeepgram,
	"lv":     ProviderDeepgram,
	"lt":     ProviderDeepgram,
	"ms":     ProviderDeepgram,
	"mt":     ProviderSpeechmatics,
	"mr":     ProviderSpeechmatics,
	"mn":     ProviderSpeechmatics,
	"no":     ProviderDeepgram,
	"fa":     ProviderSpeechmatics,
	"pl":     ProviderDeepgram,
	"pt":     ProviderDeepgram,
	"pt-BR":  ProviderDeepgram,
	"ro":     ProviderDeepgram,
	"ru":     ProviderDeepgram,
	"sk":     ProviderDeepgram,
	"sl":     ProviderDeepgram,
	"es":     ProviderDeepgram,
	"es-419": ProviderDeepgram,
	"multi":  ProviderDeepgram,
	"sw":     ProviderSpeechmatics,
	"sv":     ProviderDeepgram,
	"tl":     ProviderSpeechmatics,
	"ta":     ProviderSpeechmatics,
	"th":     ProviderSpeechmatics,
	"tr":     ProviderDeepgram,
	"uk":     ProviderDeepgram,
	"ur":     ProviderSpeechmatics,
	"ug":     ProviderSpeechmatics,
	"vi":     ProviderDeepgram,
	"cy":     ProviderSpeechmatics,
}

// Route resolves a source language to a provider name. Entries in overrides
// (from configuration) win over the built-in table.
func Route(language string, overrides map[string]string) (string, error) {
	if name, ok := overrides[language]; ok && name != "" {
		return name, nil
	}
	if name, ok := defaultRouting[language]; ok {
		return name, nil
	}
	return "", platformerrors.New(platformerrors.KindValidation, "asr.route",
		fmt.Sprintf("no provider for language %q", language))
}

package caption

// InputLanguages maps every supported source language code to its English
// name. The name is what the translation prompt uses, so keep these
// human-readable.
var InputLanguages = map[string]string{
	"ar":     "Arabic",
	"ba":     "Bashkir",
	"eu":     "Basque",
	"be":     "Belarusian",
	"bn":     "Bengali",
	"bg":     "Bulgarian",
	"ca":     "Catalan",
	"zh":     "Chinese (Mandarin, Simplified)",
	"zh-TW":  "Chinese (Mandarin, Traditional)",
	"zh-HK":  "Chinese (Cantonese, Traditional)",
	"hr":     "Croatian",
	"cs":     "Czech",
	"da":     "Danish",
	"nl":     "Dutch",
	"en":     "English",
	"en-US":  "English (United States)",
	"en-AU":  "English (Australia)",
	"en-GB":  "English (United Kingdom)",
	"en-NZ":  "English (New Zealand)",
	"eo":     "Esperanto",
	"et":     "Estonian",
	"fi":     "Finnish",
	"fr":     "French",
	"fr-CA":  "French (Canada)",
	"gl":     "Galician",
	"de":     "German",
	"de-CH":  "German (Switzerland)",
	"el":     "Greek",
	"he":     "Hebrew",
	"hi":     "Hindi",
	"hu":     "Hungarian",
	"id":     "Indonesian",
	"ga":     "Irish",
	"it":     "Italian",
	"ja":     "Japanese",
	"ko":     "Korean",
	"lv":     "Latvian",
	"lt":     "Lithuanian",
	"ms":     "Malay",
	"mt":     "Maltese",
	"mr":     "Marathi",
	"mn":     "Mongolian",
	"no":     "Norwegian",
	"fa":     "Persian",
	"pl":     "Polish",
	"pt":     "Portuguese",
	"pt-BR":  "Portuguese (Brazil)",
	"ro":     "Romanian",
	"ru":     "Russian",
	"sk":     "Slovak",
	"sl":     "Slovenian",
	"es":     "Spanish",
	"es-419": "Spanish (Latin America)",
	"multi":  "Multilingual (Spanish + English)",
	"sw":     "Swahili",
	"sv":     "Swedish",
	"tl":     "Tagalog",
	"ta":     "Tamil",
	"th":     "Thai",
	"tr":     "Turkish",
	"uk":     "Ukrainian",
	"ur":     "Urdu",
	"ug":     "Uyghur",
	"vi":     "Vietnamese",
	"cy":     "Welsh",
}

// OutputLanguages maps supported translation targets to their English names.
var OutputLanguages = map[string]string{
	"ar":     "Arabic",
	"bn":     "Bengali",
	"bg":     "Bulgarian",
	"ca":     "Catalan",
	"zh":     "Chinese (Simplified)",
	"zh-TW":  "Chinese (Traditional)",
	"hr":     "Croatian",
	"cs":     "Czech",
	"da":     "Danish",
	"nl":     "Dutch",
	"en":     "English",
	"et":     "Estonian",
	"fi":     "Finnish",
	"fr":     "French",
	"de":     "German",
	"el":     "Greek",
	"he":     "Hebrew",
	"hi":     "Hindi",
	"hu":     "Hungarian",
	"id":     "Indonesian",
	"it":     "Italian",
	"ja":     "Japanese",
	"ko":     "Korean",
	"lv":     "Latvian",
	"lt":     "Lithuanian",
	"ms":     "Malay",
	"no":     "Norwegian",
	"fa":     "Persian",
	"pl":     "Polish",
	"pt":     "Portuguese",
	"pt-BR":  "Portuguese (Brazil)",
	"ro":     "Romanian",
	"ru":     "Russian",
	"sk":     "Slovak",
	"sl":     "Slovenian",
	"es":     "Spanish",
	"es-419": "Spanish (Latin America)",
	"sw":     "Swahili",
	"sv":     "Swedish",
	"tl":     "Tagalog",
	"ta":     "Tamil",
	"th":     "Thai",
	"tr":     "Turkish",
	"uk":     "Ukrainian",
	"ur":     "Urdu",
	"vi":     "Vietnamese",
}

// InputLanguageName returns the English name for a source language code,
// falling back to the code itself.
func InputLanguageName(code string) string {
	if name, ok := InputLanguages[code]; ok {
		return name
	}
	return code
}

// OutputLanguageName returns the English name for a target language code,
// falling back to the code itself.
func OutputLanguageName(code string) string {
	if name, ok := OutputLanguages[code]; ok {
		return name
	}
	return code
}

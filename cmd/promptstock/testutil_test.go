package main

import "promptstock/pkg/types"

func testAnalysis(name, note string) types.Analysis {
	return types.Analysis{
		TemplateName:    name,
		GeneratedPrompt: "prompt",
		ImageCount:      1,
		UserNote:        note,
		Tags:            []string{"test"},
	}
}

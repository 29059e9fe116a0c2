package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"promptstock/pkg/types"
)

// Options are the per-request parameters for Generate.
type Options struct {
	ImageCount int
	Mode       types.Mode
	// Inputs supply template variable values by key. Missing or empty
	// values fall back to the variable's default.
	Inputs map[string]string
	// PortfolioText is recognized text pasted in place of screenshots.
	PortfolioText string
}

// localPreamble wraps custom templates in local mode.
const localPreamble = "당신은 전문 포트폴리오 분석가입니다. 제공된 이미지를 분석하고 아래 요청에 간결하게 답해주세요."

const portfolioTextHeader = "[포트폴리오 데이터]"

// Generate builds the prompt for t. The result is trimmed.
func Generate(t types.Template, opts Options) string {
	var out string
	if opts.Mode == types.ModeOnDevice {
		out = localBody(t, opts.ImageCount)
	} else {
		out = strings.ReplaceAll(t.PromptTemplate, ImagePhrase, clipboardPhrase(opts.ImageCount))
	}
	out = substitute(out, t.Variables, opts.Inputs)
	if txt := strings.TrimSpace(opts.PortfolioText); txt != "" {
		out = strings.TrimSpace(out) + "\n\n" + portfolioTextHeader + "\n" + txt
	}
	return strings.TrimSpace(out)
}

func clipboardPhrase(n int) string {
	if n > 1 {
		return fmt.Sprintf("위 %d개의 포트폴리오 이미지를 보고", n)
	}
	return ImagePhrase
}

func localPhrase(n int) string {
	if n > 1 {
		return fmt.Sprintf("이 %d개의 포트폴리오 이미지를 분석해서", n)
	}
	return "이 포트폴리오 이미지를 분석해서"
}

func localBody(t types.Template, imageCount int) string {
	if !t.IsCustom {
		if s, ok := Simplified(t.ID); ok {
			return s
		}
	}
	body := strings.ReplaceAll(t.PromptTemplate, ImagePhrase, localPhrase(imageCount))
	return localPreamble + "\n\n" + Sanitize(body)
}

var (
	emphasisMarkers = strings.NewReplacer("**", "", "__", "")
	blankRuns       = regexp.MustCompile(`\n{3,}`)
	tableDirective  = regexp.MustCompile(`(?i)\s*\b(as|in) a table\b`)

	// 표로 only as a standalone word; 지표로 and 도표로 are ordinary text.
	koreanTable = regexp.MustCompile(`(^|\s)표로(\s+|$)`)

	// A format directive runs to the end of its sentence or line.
	formatDirective = regexp.MustCompile(`(?i)(출력\s*형식|output\s*format)[^.!?\n]*[.!?]?\s*`)
)

// Sanitize flattens markdown for small models: emphasis markers and heading
// hashes go, output format directives are cut from their line, and "as a
// table" phrasing is removed. A line left empty by a cut is dropped.
func Sanitize(s string) string {
	s = emphasisMarkers.Replace(s)
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, l := range lines {
		cut := formatDirective.ReplaceAllString(l, "")
		if cut != l && strings.TrimSpace(strings.Trim(cut, "#:-*")) == "" {
			continue
		}
		l = strings.TrimLeft(cut, "#")
		l = tableDirective.ReplaceAllString(l, "")
		l = koreanTable.ReplaceAllString(l, "${1}")
		kept = append(kept, strings.TrimRight(strings.TrimLeft(l, " "), " \t"))
	}
	s = strings.Join(kept, "\n")
	return strings.TrimSpace(blankRuns.ReplaceAllString(s, "\n\n"))
}

func substitute(s string, vars []types.TemplateVariable, inputs map[string]string) string {
	for _, v := range vars {
		val := inputs[v.Key]
		if val == "" {
			val = v.DefaultValue
		}
		s = strings.ReplaceAll(s, "{{"+v.Key+"}}", val)
	}
	return s
}

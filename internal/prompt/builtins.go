package prompt

import (
	"time"

	"promptstock/pkg/types"
)

// ImagePhrase is the count-dependent phrase every built-in template body
// contains. Generate rewrites it for the image count and execution mode.
const ImagePhrase = "위 포트폴리오 이미지를 보고"

// builtinsCreated is the fixed creation time reported for built-in templates.
var builtinsCreated = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

var builtins = []types.Template{
	{
		ID:          "risk-analysis",
		Name:        "리스크 분석",
		Category:    types.CategoryRisk,
		Description: "집중도, 변동성, 하락 위험을 점검합니다",
		PromptTemplate: `## 1. 포트폴리오 리스크 분석
위 포트폴리오 이미지를 보고 다음 항목을 분석해주세요.

## 2. 분석 항목
- **집중도**: 단일 종목 또는 단일 섹터 비중이 과도한지
- **변동성**: 변동성이 큰 자산의 비중
- **하락 위험**: 시장 급락 시 예상되는 손실 범위
- **상관관계**: 함께 움직이는 자산들

## 3. 개선 제안
리스크를 낮추기 위한 구체적인 조정 방안을 제시해주세요.

**출력 형식**: 각 항목을 표로 정리하고, 위험도를 상/중/하로 표시해주세요.`,
		OutputFormat: "table",
	},
	{
		ID:          "rebalancing",
		Name:        "리밸런싱 제안",
		Category:    types.CategoryRebalance,
		Description: "목표 비중과 비교해 매수/매도 조정안을 제시합니다",
		PromptTemplate: `## 1. 리밸런싱 분석
위 포트폴리오 이미지를 보고 현재 자산 배분을 파악해주세요.

## 2. 목표 비중
- 목표 자산 배분: {{targetAllocation}}
- 현재 비중과 목표 비중의 차이를 계산해주세요.

## 3. 조정 방안
- **매도 후보**: 목표 대비 초과된 자산
- **매수 후보**: 목표 대비 부족한 자산
- 거래 비용과 세금을 고려한 우선순위

**출력 형식**: 종목별 현재 비중, 목표 비중, 조정 금액을 표로 정리해주세요.`,
		OutputFormat: "table",
		Variables: []types.TemplateVariable{
			{Key: "targetAllocation", Label: "목표 자산 배분", Type: "text", DefaultValue: "주식 60% / 채권 40%"},
		},
	},
	{
		ID:          "checklist",
		Name:        "투자 체크리스트",
		Category:    types.CategoryChecklist,
		Description: "보유 종목을 점검 항목별로 확인합니다",
		PromptTemplate: `## 1. 투자 점검 체크리스트
위 포트폴리오 이미지를 보고 아래 체크리스트를 점검해주세요.

## 2. 점검 항목
- [ ] 분산 투자가 충분한가
- [ ] 손실 중인 종목의 보유 근거가 유효한가
- [ ] 현금 비중이 적절한가
- [ ] 투자 기간({{horizon}})에 맞는 자산 구성인가

## 3. 종합 의견
점검 결과를 바탕으로 가장 먼저 해야 할 행동을 알려주세요.

**출력 형식**: 항목마다 통과/주의/위험으로 표시해주세요.`,
		OutputFormat: "checklist",
		Variables: []types.TemplateVariable{
			{Key: "horizon", Label: "투자 기간", Type: "select", Options: []string{"1년 이하", "1~3년", "3년 이상"}, DefaultValue: "3년 이상"},
		},
	},
	{
		ID:          "sector-analysis",
		Name:        "섹터 분석",
		Category:    types.CategorySector,
		Description: "섹터별 비중과 쏠림을 분석합니다",
		PromptTemplate: `## 1. 섹터 배분 분석
위 포트폴리오 이미지를 보고 보유 종목을 섹터별로 분류해주세요.

## 2. 분석 항목
- **섹터 비중**: 각 섹터가 차지하는 비율
- **쏠림 여부**: 특정 섹터에 과도하게 집중되어 있는지
- **누락 섹터**: 분산을 위해 고려할 만한 섹터

## 3. 전망
현재 시장 환경에서 비중이 큰 섹터의 기회와 위험을 설명해주세요.

**출력 형식**: 섹터별 비중을 표로 정리해주세요.`,
		OutputFormat: "table",
	},
	{
		ID:          "profit-analysis",
		Name:        "수익률 분석",
		Category:    types.CategoryProfit,
		Description: "종목별 손익과 수익 기여도를 분석합니다",
		PromptTemplate: `## 1. 수익률 분석
위 포트폴리오 이미지를 보고 종목별 수익률을 정리해주세요.

## 2. 분석 항목
- **수익 기여도**: 전체 수익에 가장 크게 기여한 종목
- **손실 종목**: 손실 규모와 원인 추정
- **평균 수익률**: 포트폴리오 전체의 가중 평균 수익률

## 3. 대응 전략
수익 실현과 손절에 대한 의견을 제시해주세요.

**출력 형식**: 종목명, 수익률, 평가손익을 표로 정리해주세요.`,
		OutputFormat: "table",
	},
}

// Builtins returns copies of the built-in templates.
func Builtins() []types.Template {
	out := make([]types.Template, len(builtins))
	for i, t := range builtins {
		t.CreatedAt = builtinsCreated
		t.Variables = append([]types.TemplateVariable(nil), t.Variables...)
		out[i] = t
	}
	return out
}

// Lookup returns the built-in template with the given identifier.
func Lookup(id string) (types.Template, bool) {
	for _, t := range Builtins() {
		if t.ID == id {
			return t, true
		}
	}
	return types.Template{}, false
}

package prompt

// simplified holds flattened instructions for small on-device models, keyed
// by built-in template ID. Plain sentences only: no markdown emphasis, no
// table or output format directives.
var simplified = map[string]string{
	"risk-analysis": `당신은 포트폴리오 분석가입니다. 이미지 속 포트폴리오를 보고 위험 요소를 찾아주세요.
1. 한 종목이나 한 섹터에 너무 몰려 있는지 말해주세요.
2. 변동성이 큰 자산이 얼마나 되는지 말해주세요.
3. 위험을 줄이는 방법을 두세 가지 제안해주세요.
짧고 분명하게 답해주세요.`,
	"rebalancing": `당신은 포트폴리오 분석가입니다. 이미지 속 포트폴리오의 자산 비중을 파악해주세요.
목표 배분은 {{targetAllocation}} 입니다.
1. 목표보다 많은 자산과 적은 자산을 말해주세요.
2. 무엇을 팔고 무엇을 살지 순서대로 제안해주세요.
짧고 분명하게 답해주세요.`,
	"checklist": `당신은 포트폴리오 분석가입니다. 이미지 속 포트폴리오를 점검해주세요.
1. 분산이 충분한지 말해주세요.
2. 손실 종목을 계속 들고 있어도 되는지 말해주세요.
3. 현금 비중이 적절한지 말해주세요.
4. 투자 기간 {{horizon}}에 맞는지 말해주세요.
마지막으로 가장 먼저 할 일 하나를 알려주세요.`,
	"sector-analysis": `당신은 포트폴리오 분석가입니다. 이미지 속 종목들을 섹터별로 나눠주세요.
1. 가장 비중이 큰 섹터와 그 비율을 말해주세요.
2. 한 섹터에 몰려 있다면 그 위험을 설명해주세요.
3. 분산을 위해 추가할 만한 섹터를 추천해주세요.
짧고 분명하게 답해주세요.`,
	"profit-analysis": `당신은 포트폴리오 분석가입니다. 이미지 속 종목들의 수익률을 살펴봐주세요.
1. 수익이 가장 큰 종목과 손실이 가장 큰 종목을 말해주세요.
2. 전체 수익률을 대략 계산해주세요.
3. 수익 실현이나 손절이 필요한 종목이 있는지 말해주세요.
짧고 분명하게 답해주세요.`,
}

// Simplified returns the flattened on-device instructions for a built-in
// template ID.
func Simplified(id string) (string, bool) {
	s, ok := simplified[id]
	return s, ok
}
